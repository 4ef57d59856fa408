package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// SMTPConfig holds the SMTP transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// HomeURL is linked from the welcome email. Optional.
	HomeURL string
}

// SMTPMailer sends emails through an SMTP relay using go-mail.
type SMTPMailer struct {
	client *gomail.Client
	cfg    SMTPConfig
	logger *zap.Logger
}

// NewSMTPMailer creates an SMTP mailer. Returns ErrNotConfigured when host
// or sender address is missing, so callers can degrade to no-mail mode.
func NewSMTPMailer(cfg SMTPConfig, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, ErrNotConfigured
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPMailer{client: client, cfg: cfg, logger: logger}, nil
}

// SendOTP emails a verification code.
func (m *SMTPMailer) SendOTP(ctx context.Context, userID uuid.UUID, email, name, code string, expiresAt time.Time) error {
	body, err := RenderOTP(name, code, expiresAt)
	if err != nil {
		return err
	}
	return m.send(ctx, userID, email, SubjectOTP, body)
}

// SendWelcome emails the post-verification welcome message.
func (m *SMTPMailer) SendWelcome(ctx context.Context, userID uuid.UUID, email, name string) error {
	body, err := RenderWelcome(name, m.cfg.HomeURL)
	if err != nil {
		return err
	}
	return m.send(ctx, userID, email, SubjectWelcome, body)
}

func (m *SMTPMailer) send(ctx context.Context, userID uuid.UUID, to, subject, htmlBody string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if m.logger != nil {
		m.logger.Debug("Email sent",
			zap.String("subject", subject),
			zap.String("user_id", userID.String()))
	}
	return nil
}
