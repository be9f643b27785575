package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/yasinhessnawi1/hideme-auth/internal/config"
	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/models"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

// ErrMissingAPIKey is returned when the sendgrid transport has no key
var ErrMissingAPIKey = errors.New("sendgrid API key not configured")

// Mailer delivers password reset mails. A returned error means the mail was
// not accepted for delivery.
type Mailer interface {
	SendPasswordReset(ctx context.Context, account *models.Account, resetURL, message string) error
}

// SendGridClient is the part of the SendGrid client used by EmailService
type SendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailService handles sending emails through SendGrid.
type EmailService struct {
	client      SendGridClient
	fromAddress string
	fromName    string
}

// NewEmailService creates a new EmailService from the email settings.
func NewEmailService(cfg *config.EmailSettings) (*EmailService, error) {
	if cfg.SendGridAPIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return NewEmailServiceWithClient(sendgrid.NewSendClient(cfg.SendGridAPIKey), cfg), nil
}

// NewEmailServiceWithClient creates an EmailService around an existing client.
func NewEmailServiceWithClient(client SendGridClient, cfg *config.EmailSettings) *EmailService {
	fromAddress := cfg.FromAddress
	if fromAddress == "" {
		fromAddress = constants.DefaultMailFromAddress
	}
	fromName := cfg.FromName
	if fromName == "" {
		fromName = constants.DefaultMailFromName
	}
	return &EmailService{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
	}
}

// SendPasswordReset sends the reset mail. Non-2xx answers from SendGrid count
// as failed deliveries.
func (s *EmailService) SendPasswordReset(ctx context.Context, account *models.Account, resetURL, message string) error {
	from := mail.NewEmail(s.fromName, s.fromAddress)
	to := mail.NewEmail("", account.Email)
	htmlContent := fmt.Sprintf("<p>%s</p><p><a href=\"%s\">Reset Password</a></p>",
		html.EscapeString(message), html.EscapeString(resetURL))
	email := mail.NewSingleEmail(from, constants.ResetMailSubject, to, message, htmlContent)

	response, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		log.Error().Err(err).Str("email", utils.MaskEmail(account.Email)).Msg("Failed to send password reset email")
		return fmt.Errorf("sendgrid request failed: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		log.Error().
			Int("status_code", response.StatusCode).
			Str("email", utils.MaskEmail(account.Email)).
			Msg("SendGrid rejected password reset email")
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	log.Info().
		Int("status_code", response.StatusCode).
		Str("email", utils.MaskEmail(account.Email)).
		Msg("Password reset email sent")
	return nil
}

// LogMailer writes reset mails to the application log. Used in development.
type LogMailer struct{}

// SendPasswordReset logs the reset link instead of mailing it.
func (LogMailer) SendPasswordReset(ctx context.Context, account *models.Account, resetURL, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Info().
		Str("email", utils.MaskEmail(account.Email)).
		Str("reset_url", resetURL).
		Msg("Password reset email (log transport)")
	return nil
}

// NewMailer builds the mailer named by the email transport setting.
func NewMailer(cfg *config.EmailSettings) (Mailer, error) {
	switch cfg.Transport {
	case constants.MailTransportSendGrid:
		service, err := NewEmailService(cfg)
		if err != nil {
			return nil, err
		}
		return service, nil
	case constants.MailTransportLog, "":
		return LogMailer{}, nil
	default:
		return nil, fmt.Errorf("unsupported email transport %q", cfg.Transport)
	}
}

func mailTimeout(cfg *config.EmailSettings) time.Duration {
	if cfg != nil && cfg.SendTimeout > 0 {
		return cfg.SendTimeout
	}
	return constants.DefaultMailTimeout
}
