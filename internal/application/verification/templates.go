package verification

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"

	"github.com/go-email-verify/internal/domain"
)

const (
	userEmailSubject = "メールアドレス認証"
	leadEmailSubject = "Email verification"
)

var userEmailTmpl = template.Must(template.New("user").Parse(`
<p>SmartBids.aiへようこそ！</p>
<p>以下のリンクをクリックしてメールアドレスを認証してください：</p>
<a href="{{.Link}}">メールアドレスを認証</a>
<p>ありがとうございます。</p>
<p>SmartBids.aiチーム</p>
`))

var leadEmailTmpl = template.Must(template.New("lead").Parse(
	`<p>Welcome to SmartBids.ai, {{.Name}}!</p>` +
		`<p>Please click on the following link to verify your email:</p>` +
		`<a href="{{.Link}}">Verify Email</a>` +
		`<p>Thank you,</p><p>SmartBids.ai Team</p>`))

type userEmailData struct {
	Link template.URL
}

type leadEmailData struct {
	Name string
	Link template.URL
}

func renderUserEmail(d userEmailData) (string, error) {
	var buf bytes.Buffer
	if err := userEmailTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderLeadEmail(d leadEmailData) (string, error) {
	var buf bytes.Buffer
	if err := leadEmailTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// verificationLink builds
// {base}/verify_client?token=T&email=E[&phone=P]&db_type=C with E and P percent-encoded.
// The parameter order is fixed so links stay stable across releases.
func verificationLink(baseURL, token, email, phone string, c domain.Collection) template.URL {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteString("/verify_client?token=")
	b.WriteString(escapeParam(token))
	b.WriteString("&email=")
	b.WriteString(escapeParam(email))
	if phone != "" {
		b.WriteString("&phone=")
		b.WriteString(escapeParam(phone))
	}
	b.WriteString("&db_type=")
	b.WriteString(string(c))
	return template.URL(b.String())
}

// escapeParam percent-encodes a query value with spaces as %20 rather than '+'.
func escapeParam(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

func leadSMSText(link template.URL) string {
	return "SmartBids.ai: verify your email at " + string(link)
}
