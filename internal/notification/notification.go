package notification

import (
	"context"
	"log/slog"
)

// Notifier delivers verification and password-reset codes out-of-band.
// Delivery is best-effort: callers fire it asynchronously and only log errors.
type Notifier interface {
	SendVerificationCode(ctx context.Context, email, code, displayName string) error
	SendPasswordResetCode(ctx context.Context, email, code, displayName string) error
}

// LoggerNotifier is a stub implementation that writes codes to the logger.
// Used in development and tests where no SMTP server is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// SendVerificationCode writes the code to the structured logger.
func (n *LoggerNotifier) SendVerificationCode(_ context.Context, email, code, displayName string) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("verification code", "email", email, "code", code, "name", displayName)
	return nil
}

// SendPasswordResetCode writes the code to the structured logger.
func (n *LoggerNotifier) SendPasswordResetCode(_ context.Context, email, code, displayName string) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("password reset code", "email", email, "code", code, "name", displayName)
	return nil
}
