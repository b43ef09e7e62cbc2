package services

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/HammerMeetNail/giftcircle/internal/config"
	"github.com/HammerMeetNail/giftcircle/internal/logging"
)

// ConsoleSender writes emails to the log instead of delivering them.
type ConsoleSender struct {
	logger *logging.Logger
}

func NewConsoleSender(logger *logging.Logger) *ConsoleSender {
	return &ConsoleSender{logger: logger}
}

func (s *ConsoleSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("Email (console provider)", map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Text,
	})
	return nil
}

type resendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendSender struct {
	emails resendEmails
	from   string
}

func NewResendSender(apiKey, fromAddress, fromName string) *ResendSender {
	client := resend.NewClient(apiKey)
	return &ResendSender{emails: client.Emails, from: formatFrom(fromAddress, fromName)}
}

func (s *ResendSender) Send(ctx context.Context, msg EmailMessage) error {
	_, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("sending email via resend: %w", err)
	}
	return nil
}

// NewEmailSender picks the delivery provider from config.
func NewEmailSender(cfg *config.EmailConfig, logger *logging.Logger) (EmailSender, error) {
	switch cfg.Provider {
	case "", "console":
		return NewConsoleSender(logger), nil
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, fmt.Errorf("RESEND_API_KEY is required for the resend email provider")
		}
		return NewResendSender(cfg.ResendAPIKey, cfg.FromAddress, cfg.FromName), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

func formatFrom(address, name string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}
