package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-email-verify/internal/domain"
	"github.com/go-email-verify/internal/pkg/logger/sl"
	pkgtoken "github.com/go-email-verify/internal/pkg/token"
	"github.com/go-email-verify/internal/pkg/validate"
)

// RecordStore is the store capability the service needs. Implementations return
// domain.ErrNotFound (possibly wrapped) when no record matches.
type RecordStore interface {
	FindByEmail(ctx context.Context, c domain.Collection, email string) (*domain.Record, error)
	FindByEmailAndToken(ctx context.Context, c domain.Collection, email, token string) (*domain.Record, error)
	UpsertUnverified(ctx context.Context, c domain.Collection, fields domain.RecordFields, token string) (*domain.Record, error)
	MarkVerified(ctx context.Context, c domain.Collection, rec *domain.Record) error
	Ping(ctx context.Context) error
}

// Mailer delivers one HTML message. Errors are already classified as *domain.Error.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// SMSSender texts a lead. Optional.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Outcome is the observable result of a successful call.
type Outcome int

const (
	OutcomeSent Outcome = iota + 1
	OutcomeAlreadyVerified
	OutcomeVerified
)

type Service interface {
	SendVerification(ctx context.Context, req domain.SendVerificationRequest) (Outcome, error)
	CreateLead(ctx context.Context, req domain.CreateLeadRequest) (Outcome, error)
	Verify(ctx context.Context, req domain.VerifyRequest) (Outcome, error)
}

// ServiceDeps groups the collaborators of the verification service.
type ServiceDeps struct {
	Log          *slog.Logger
	Store        RecordStore
	Mailer       Mailer
	SMSSender    SMSSender // nil disables lead SMS
	BaseURL      string
	ProbeTimeout time.Duration
	NewToken     func() (string, error) // defaults to pkg/token
}

type service struct {
	log          *slog.Logger
	store        RecordStore
	mailer       Mailer
	sms          SMSSender
	baseURL      string
	probeTimeout time.Duration
	newToken     func() (string, error)
}

func NewService(d ServiceDeps) Service {
	s := &service{
		log:          d.Log,
		store:        d.Store,
		mailer:       d.Mailer,
		sms:          d.SMSSender,
		baseURL:      d.BaseURL,
		probeTimeout: d.ProbeTimeout,
		newToken:     d.NewToken,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.newToken == nil {
		s.newToken = pkgtoken.NewVerificationToken
	}
	if s.probeTimeout <= 0 {
		s.probeTimeout = 5 * time.Second
	}
	return s
}

func (s *service) SendVerification(ctx context.Context, req domain.SendVerificationRequest) (Outcome, error) {
	const op = "verification.SendVerification"
	log := s.log.With(slog.String("op", op), slog.String("email", req.Email))

	if err := validate.Struct(&req); err != nil {
		return 0, domain.ValidationError("invalid request", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	err := s.store.Ping(probeCtx)
	cancel()
	if err != nil {
		log.Error("record store unreachable", sl.Err(err))
		return 0, domain.InfraError("database connection error", fmt.Errorf("%w: %w", domain.ErrStoreUnreachable, err))
	}

	outcome, tok, err := s.issue(ctx, domain.CollectionUsers, domain.RecordFields{Email: req.Email})
	if err != nil || outcome == OutcomeAlreadyVerified {
		return outcome, err
	}

	body, err := renderUserEmail(userEmailData{Link: verificationLink(s.baseURL, tok, req.Email, "", domain.CollectionUsers)})
	if err != nil {
		return 0, domain.InternalError("render email", err)
	}
	if err := s.mailer.SendEmail(ctx, req.Email, userEmailSubject, body); err != nil {
		log.Error("failed to send verification email", sl.Err(err))
		return 0, err
	}

	log.Info("verification email sent")
	return OutcomeSent, nil
}

func (s *service) CreateLead(ctx context.Context, req domain.CreateLeadRequest) (Outcome, error) {
	const op = "verification.CreateLead"
	log := s.log.With(slog.String("op", op), slog.String("email", req.Email))

	if err := validate.Struct(&req); err != nil {
		return 0, domain.ValidationError("invalid request", err)
	}

	fields := domain.RecordFields{Email: req.Email, Name: req.Name, Phone: req.Phone}
	outcome, tok, err := s.issue(ctx, domain.CollectionLeads, fields)
	if err != nil || outcome == OutcomeAlreadyVerified {
		return outcome, err
	}

	link := verificationLink(s.baseURL, tok, req.Email, req.Phone, domain.CollectionLeads)
	body, err := renderLeadEmail(leadEmailData{Name: req.Name, Link: link})
	if err != nil {
		return 0, domain.InternalError("render email", err)
	}
	if err := s.mailer.SendEmail(ctx, req.Email, leadEmailSubject, body); err != nil {
		log.Error("failed to send verification email", sl.Err(err))
		return 0, err
	}

	if s.sms != nil {
		if err := s.sms.SendSMS(ctx, req.Phone, leadSMSText(link)); err != nil {
			log.Warn("failed to text verification link", sl.Err(err))
		}
	}

	log.Info("verification email sent")
	return OutcomeSent, nil
}

// issue runs the request half of the state machine: a verified record short-circuits,
// anything else gets a fresh token and is forced back to unverified.
func (s *service) issue(ctx context.Context, c domain.Collection, fields domain.RecordFields) (Outcome, string, error) {
	existing, err := s.store.FindByEmail(ctx, c, fields.Email)
	switch {
	case err == nil && existing.Verified:
		s.log.Info("email already verified", slog.String("collection", string(c)), slog.String("email", fields.Email))
		return OutcomeAlreadyVerified, "", nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return 0, "", domain.InfraError("find record", err)
	}

	tok, err := s.newToken()
	if err != nil {
		return 0, "", domain.InternalError("issue token", err)
	}
	rec, err := s.store.UpsertUnverified(ctx, c, fields, tok)
	if err != nil {
		return 0, "", domain.InfraError("store record", err)
	}
	s.log.Debug("token issued", slog.String("collection", string(c)), slog.String("record_id", rec.ID))
	return OutcomeSent, tok, nil
}

func (s *service) Verify(ctx context.Context, req domain.VerifyRequest) (Outcome, error) {
	const op = "verification.Verify"
	log := s.log.With(slog.String("op", op), slog.String("email", req.Email))

	c, err := domain.ParseCollection(req.DBType)
	if err != nil {
		return 0, err
	}
	if err := validate.Struct(&req); err != nil {
		return 0, domain.ValidationError("invalid request", err)
	}
	log = log.With(slog.String("collection", string(c)))
	if req.Phone != "" {
		log = log.With(slog.String("phone", req.Phone))
	}

	rec, err := s.store.FindByEmailAndToken(ctx, c, req.Email, req.Token)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error("record lookup failed", sl.Err(err))
			return 0, domain.InfraError("find record", err)
		}
		return s.verifyMiss(ctx, log, c, req.Email)
	}

	if rec.Verified {
		log.Info("email already verified")
		return OutcomeAlreadyVerified, nil
	}
	if err := s.store.MarkVerified(ctx, c, rec); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Token re-issued between lookup and update.
			return s.verifyMiss(ctx, log, c, req.Email)
		}
		log.Error("failed to mark record verified", sl.Err(err))
		return 0, domain.InfraError("mark verified", err)
	}
	log.Info("email verified", slog.String("record_id", rec.ID))
	return OutcomeVerified, nil
}

// verifyMiss keeps the terminal state idempotent: a verified email answers "already verified"
// whatever token was supplied. Every other miss is the same undifferentiated error.
func (s *service) verifyMiss(ctx context.Context, log *slog.Logger, c domain.Collection, email string) (Outcome, error) {
	rec, err := s.store.FindByEmail(ctx, c, email)
	switch {
	case err == nil && rec.Verified:
		log.Info("email already verified")
		return OutcomeAlreadyVerified, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		log.Error("record lookup failed", sl.Err(err))
		return 0, domain.InfraError("find record", err)
	}
	log.Warn("verification rejected")
	return 0, domain.NotFoundError("", fmt.Errorf("verify: %w", domain.ErrInvalidCredentials))
}
