package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/mail"
)

// ContactService forwards contact-form messages to the site operator.
type ContactService struct {
	sender mail.Sender
	logger *slog.Logger
}

func NewContactService(sender mail.Sender, logger *slog.Logger) *ContactService {
	return &ContactService{sender: sender, logger: logger}
}

// Send delivers msg. Every delivery failure comes back as
// apperror.ErrMailTransport so the handler can show one failure message.
func (s *ContactService) Send(ctx context.Context, msg mail.ContactMessage) error {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Phone = strings.TrimSpace(msg.Phone)

	switch {
	case msg.Name == "":
		return apperror.ValidationFailed("name", "name is required")
	case msg.Email == "":
		return apperror.ValidationFailed("email", "email is required")
	case strings.TrimSpace(msg.Message) == "":
		return apperror.ValidationFailed("message", "message is required")
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("contact message failed",
			slog.String("replyTo", msg.Email),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, apperror.ErrMailTransport) {
			return err
		}
		return apperror.MailTransportFailure(err)
	}
	return nil
}
