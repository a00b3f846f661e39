package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Stores return ErrNotFound; services wrap it so handlers never see infrastructure details.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid token or email")
	ErrStoreUnreachable   = errors.New("record store unreachable")
)

// Failure classes of a send attempt. Every error a mailer returns wraps exactly one of these.
var (
	ErrMailNotConfigured = errors.New("mail credentials not configured")
	ErrMailAuth          = errors.New("mail relay rejected credentials")
	ErrMailTransport     = errors.New("mail transport failure")
	ErrMailUnexpected    = errors.New("unexpected mail failure")
)

// Kind classifies a failure. The HTTP boundary maps kinds to status codes; nothing below it does.
type Kind int

const (
	KindInternal Kind = iota
	KindConfig
	KindInfra
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindInfra:
		return "infra"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a tagged error carrying a human-readable message and the original cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

func ConfigError(msg string, err error) error {
	return &Error{Kind: KindConfig, Msg: msg, Err: err}
}

func InfraError(msg string, err error) error {
	return &Error{Kind: KindInfra, Msg: msg, Err: err}
}

func ValidationError(msg string, err error) error {
	return &Error{Kind: KindValidation, Msg: msg, Err: err}
}

func NotFoundError(msg string, err error) error {
	return &Error{Kind: KindNotFound, Msg: msg, Err: err}
}

func InternalError(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}
