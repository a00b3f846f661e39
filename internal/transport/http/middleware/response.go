package middleware

import (
	"net/http"

	"github.com/go-chi/render"
)

// writeJSONError answers with the same {"error": "..."} envelope the handlers use.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}
