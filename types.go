package auth

import (
	"context"
	"fmt"
)

// Logger is the minimal logging contract components depend on. Every
// constructor falls back to the package default when given nil.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// EmailSender dispatches transactional email. Implementations own transport,
// templates, and localization; the session manager only fires send requests
// and logs failures without rolling back persisted state.
type EmailSender interface {
	SendAccountConfirmation(ctx context.Context, email, firstName, token string) error
	SendPasswordReset(ctx context.Context, email, firstName, token string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type noopEmailSender struct{}

func (noopEmailSender) SendAccountConfirmation(context.Context, string, string, string) error {
	return nil
}

func (noopEmailSender) SendPasswordReset(context.Context, string, string, string) error {
	return nil
}

// NoopEmailSender returns a sender that drops every message. Useful for
// tests and development setups without SMTP access.
func NoopEmailSender() EmailSender { return noopEmailSender{} }
