package http

import (
	"log/slog"

	"github.com/go-email-verify/internal/application/verification"
)

// Deps holds the infrastructure the router wires into the verification service.
type Deps struct {
	Log       *slog.Logger
	Store     verification.RecordStore
	Mailer    verification.Mailer
	SMSSender verification.SMSSender // nil disables lead SMS
}
