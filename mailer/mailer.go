// Package mailer delivers the transactional emails of the authentication
// flow over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net/url"

	gomail "gopkg.in/gomail.v2"

	"github.com/ledgerly/backend/config"
)

// Logger is the minimal logging surface the mailer needs.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

// Sender delivers account confirmation and password reset emails. Links
// point at the frontend, which forwards the embedded token back to the API.
type Sender struct {
	dialer      *gomail.Dialer
	from        string
	fromName    string
	frontendURL string
	locale      Locale
	logger      Logger
}

// Option configures a Sender.
type Option func(*Sender)

// WithLocale selects the template language. Defaults to English.
func WithLocale(locale Locale) Option {
	return func(s *Sender) {
		s.locale = locale
	}
}

// WithLogger attaches a logger.
func WithLogger(logger Logger) Option {
	return func(s *Sender) {
		s.logger = logger
	}
}

// New builds a Sender from SMTP configuration.
func New(smtp config.SMTP, frontendURL string, opts ...Option) *Sender {
	s := &Sender{
		dialer:      gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password),
		from:        smtp.Sender,
		fromName:    smtp.SenderName,
		frontendURL: frontendURL,
		locale:      LocaleEN,
		logger:      noopLogger{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SendAccountConfirmation emails the activation link issued at sign-up.
func (s *Sender) SendAccountConfirmation(ctx context.Context, email, firstName, token string) error {
	link := s.link("/signin", "confirmAccountToken", token)
	tpl := templateFor(s.locale).confirmation
	return s.send(ctx, email, tpl.subject, tpl.render(firstName, link))
}

// SendPasswordReset emails the reset link issued on a reset request.
func (s *Sender) SendPasswordReset(ctx context.Context, email, firstName, token string) error {
	link := s.link("/reset-password", "resetPasswordToken", token)
	tpl := templateFor(s.locale).reset
	return s.send(ctx, email, tpl.subject, tpl.render(firstName, link))
}

func (s *Sender) link(path, param, token string) string {
	return fmt.Sprintf("%s%s?%s=%s", s.frontendURL, path, param, url.QueryEscape(token))
}

func (s *Sender) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(s.from, s.fromName))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		s.logger.Error("failed to deliver %q to %s: %v", subject, to, err)
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	s.logger.Debug("delivered %q to %s", subject, to)
	return nil
}
