package sender

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/boardlab/notify-api/internal/model"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
}

// EmailSender delivers payloads over SMTP.
type EmailSender struct {
	dialer *gomail.Dialer
	config SMTPConfig
}

func NewEmailSender(config SMTPConfig) *EmailSender {
	if config.Subject == "" {
		config.Subject = "You have a new notification"
	}
	return &EmailSender{
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		config: config,
	}
}

func (s *EmailSender) Send(ctx context.Context, _ model.DeliveryMethod, address, payload string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.config.From)
	msg.SetHeader("To", address)
	msg.SetHeader("Subject", s.config.Subject)
	msg.SetBody("text/plain", payload)

	// gomail has no context support, run the dial in a goroutine so the
	// dispatcher's timeout still bounds the attempt.
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("email send timed out: %w", ctx.Err())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	}
}
