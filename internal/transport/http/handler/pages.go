package handler

import (
	"bytes"
	"html/template"
)

var resultPage = template.Must(template.New("result").Parse(`
<h1>{{.Heading}}</h1>
<p>You are fully verified and can now login.</p>
<a href="{{.LoginURL}}">Click here to login</a>
`))

const (
	headingVerified        = "Your email has been successfully verified!"
	headingAlreadyVerified = "This email has already been verified!"
)

type resultPageData struct {
	Heading  string
	LoginURL string
}

func renderResultPage(heading, loginURL string) (string, error) {
	var buf bytes.Buffer
	if err := resultPage.Execute(&buf, resultPageData{Heading: heading, LoginURL: loginURL}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
