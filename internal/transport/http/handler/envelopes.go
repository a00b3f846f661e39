package handler

import (
	"net/http"

	"github.com/go-chi/render"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, MessageEnvelope{Error: msg})
}

func writeHTML(w http.ResponseWriter, r *http.Request, status int, page string) {
	render.Status(r, status)
	render.HTML(w, r, page)
}
