// Package mailer delivers notification emails.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// Message is a single transactional email. Either Text or HTML is set.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryError reports a message the provider did not accept.
type DeliveryError struct {
	Subject string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver %q: %v", e.Subject, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// resendSender is the Resend-backed implementation of Sender.
type resendSender struct {
	client *resend.Client
	logger *slog.Logger
}

// NewResendSender creates a sender using the given Resend API key.
func NewResendSender(apiKey string) Sender {
	return NewResendSenderWithLogger(apiKey, slog.Default())
}

// NewResendSenderWithLogger creates a Resend sender with a custom logger.
func NewResendSenderWithLogger(apiKey string, logger *slog.Logger) Sender {
	return &resendSender{
		client: resend.NewClient(apiKey),
		logger: logger.With("component", "mailer.resend"),
	}
}

// Send submits the message to Resend.
func (s *resendSender) Send(ctx context.Context, msg Message) error {
	logger := s.logger.With(
		"subject", msg.Subject,
		"recipients", len(msg.To),
	)
	logger.DebugContext(ctx, "Sending email")

	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
		Html:    msg.HTML,
	}

	start := time.Now()
	sent, err := s.client.Emails.SendWithContext(ctx, params)
	duration := time.Since(start)

	if err != nil {
		logger.ErrorContext(ctx, "Resend rejected email",
			"error", err,
			"duration_ms", duration.Milliseconds())
		return &DeliveryError{Subject: msg.Subject, Err: err}
	}

	logger.InfoContext(ctx, "Email sent",
		"email_id", sent.Id,
		"duration_ms", duration.Milliseconds())
	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender for dry runs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "mailer.log")}
}

// Send logs the message.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	body := msg.Text
	if msg.HTML != "" {
		body = msg.HTML
	}
	s.logger.InfoContext(ctx, "Dry run - email not sent",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"body", body)
	return nil
}

var (
	_ Sender = &resendSender{}
	_ Sender = &LogSender{}
)
