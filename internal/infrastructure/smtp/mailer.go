package smtp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/go-email-verify/internal/config"
	"github.com/go-email-verify/internal/domain"
	"github.com/wneessen/go-mail"
)

// implicitTLSPort is the SMTPS port; every other port negotiates STARTTLS.
const implicitTLSPort = 465

// Mailer sends HTML emails through an authenticated relay. One attempt per call.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

type mailer struct {
	host       string
	port       int
	username   string
	password   string
	senderName string
	timeout    time.Duration
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:       cfg.SMTPHost,
		port:       cfg.SMTPPort,
		username:   cfg.SMTPUsername,
		password:   cfg.SMTPPassword,
		senderName: cfg.SMTPSenderName,
		timeout:    cfg.SMTPTimeout,
	}
}

func (m *mailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if m.username == "" || m.password == "" {
		return domain.ConfigError("mail settings error", domain.ErrMailNotConfigured)
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.senderName, m.username); err != nil {
		return domain.ConfigError("invalid sender address", err)
	}
	if err := msg.To(to); err != nil {
		return domain.ValidationError("invalid recipient address", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(m.host, m.options()...)
	if err != nil {
		return domain.ConfigError("mail client", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return classify(err)
	}
	return nil
}

func (m *mailer) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.username),
		mail.WithPassword(m.password),
	}
	if m.timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.timeout))
	}
	if m.port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	return opts
}

// classify maps a go-mail failure onto the three reported failure classes, keeping
// the original cause in the chain.
func classify(err error) error {
	var tpErr *textproto.Error
	hasReply := errors.As(err, &tpErr)

	switch {
	case hasReply && (tpErr.Code == 530 || tpErr.Code == 534 || tpErr.Code == 535),
		strings.Contains(err.Error(), "SMTP AUTH failed"):
		return domain.InfraError("mail authentication failed", fmt.Errorf("%w: %w", domain.ErrMailAuth, err))
	case hasReply && tpErr.Code >= 400 && tpErr.Code < 500,
		isTemporarySend(err),
		isNetwork(err):
		return domain.InfraError("mail send error", fmt.Errorf("%w: %w", domain.ErrMailTransport, err))
	default:
		return domain.InternalError("unexpected error while sending mail", fmt.Errorf("%w: %w", domain.ErrMailUnexpected, err))
	}
}

func isTemporarySend(err error) bool {
	var se *mail.SendError
	return errors.As(err, &se) && se.IsTemp()
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
