package auth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/rs/zerolog"
)

// Delivery channels accepted by RequestCode.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// CodeSender delivers a one-time code to an identifier through an external
// channel. Implementations are collaborators (Twilio, SMTP, ...); this core
// only invokes them.
type CodeSender interface {
	Send(ctx context.Context, to, code string) error
}

// SMSSender delivers codes over SMS through the configured gateway.
type SMSSender struct {
	From   string
	Logger zerolog.Logger
}

func (s *SMSSender) Send(ctx context.Context, to, code string) error {
	if to == "" || code == "" {
		return validationError("recipient and code are required")
	}

	// The gateway client goes here. The message body matches what the
	// mobile clients expect during signup.
	body := fmt.Sprintf("Welcome to JustXchange! Your OTP code for completing the signup process is: %s. Thank You.", code)

	s.Logger.Info().Str("to", to).Int("body_len", len(body)).Msg("sms dispatched")
	return nil
}

// EmailSender delivers codes over email.
type EmailSender struct {
	From   string
	Logger zerolog.Logger
}

func (s *EmailSender) Send(ctx context.Context, to, code string) error {
	if to == "" || code == "" {
		return validationError("recipient and code are required")
	}

	s.Logger.Info().Str("to", to).Str("from", s.From).Msg("email dispatched")
	return nil
}

type timeoutSender struct {
	next    CodeSender
	timeout time.Duration
}

// WithTimeout bounds how long a dispatch may block code generation. The
// send runs against a child context; a slow collaborator surfaces as a
// delivery error without invalidating the already stored code.
func WithTimeout(next CodeSender, timeout time.Duration) CodeSender {
	if timeout <= 0 {
		return next
	}
	return &timeoutSender{next: next, timeout: timeout}
}

func (s *timeoutSender) Send(ctx context.Context, to, code string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.next.Send(ctx, to, code) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "code dispatch timed out")
	}
}
