// Package mail delivers contact-form messages over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/config"
)

// ContactMessage is what a visitor submits through the contact form.
type ContactMessage struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// Sender delivers a contact message to the site operator.
// The service layer depends on this interface so tests can swap in a fake.
type Sender interface {
	Send(ctx context.Context, msg ContactMessage) error
}

var errNotConfigured = errors.New("mail: SMTP is not configured")

// SMTPMailer sends through one authenticated STARTTLS session per message.
type SMTPMailer struct {
	cfg    config.Mail
	logger *slog.Logger
}

// NewSMTPMailer creates a mailer for cfg. A mailer with an incomplete cfg is
// valid; it fails every Send with MailTransportFailure without dialling.
func NewSMTPMailer(cfg config.Mail, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Send composes msg and delivers it to the operator address with Reply-To set
// to the visitor. Any failure is reported as apperror.ErrMailTransport.
func (m *SMTPMailer) Send(ctx context.Context, msg ContactMessage) error {
	if !m.cfg.Enabled() {
		return apperror.MailTransportFailure(errNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	out, err := m.build(msg)
	if err != nil {
		return apperror.MailTransportFailure(err)
	}

	client, err := gomail.NewClient(m.cfg.Host,
		gomail.WithPort(m.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.Address),
		gomail.WithPassword(m.cfg.Password),
		gomail.WithTimeout(m.cfg.Timeout),
	)
	if err != nil {
		return apperror.MailTransportFailure(fmt.Errorf("mail: creating client: %w", err))
	}

	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return apperror.MailTransportFailure(fmt.Errorf("mail: sending via %s:%d: %w", m.cfg.Host, m.cfg.Port, err))
	}

	m.logger.Info("contact message sent", slog.String("replyTo", msg.Email))
	return nil
}

func (m *SMTPMailer) build(msg ContactMessage) (*gomail.Msg, error) {
	out := gomail.NewMsg()
	if err := out.From(m.cfg.Address); err != nil {
		return nil, fmt.Errorf("mail: invalid from address: %w", err)
	}
	if err := out.To(m.cfg.To); err != nil {
		return nil, fmt.Errorf("mail: invalid operator address: %w", err)
	}
	if err := out.ReplyTo(msg.Email); err != nil {
		return nil, fmt.Errorf("mail: invalid reply-to address: %w", err)
	}
	out.Subject(Subject(msg))
	out.SetBodyString(gomail.TypeTextPlain, Compose(msg))
	return out, nil
}

// Subject is the subject line of the operator notification.
func Subject(msg ContactMessage) string {
	return "New message from " + singleLine(msg.Name)
}

// Compose renders the plain-text body of the operator notification. Line
// breaks in name, email and phone become spaces; only the message spans lines.
func Compose(msg ContactMessage) string {
	phone := singleLine(msg.Phone)
	if phone == "" {
		phone = "(not given)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", singleLine(msg.Name))
	fmt.Fprintf(&b, "Email: %s\n", singleLine(msg.Email))
	fmt.Fprintf(&b, "Phone: %s\n", phone)
	b.WriteString("\n")
	b.WriteString(msg.Message)
	b.WriteString("\n")
	return b.String()
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func singleLine(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}
