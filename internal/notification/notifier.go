// Package notification delivers account-related messages to users.
package notification

import (
	"context"

	"go.uber.org/zap"
)

// Notifier sends account messages. Production deployments plug in a mail
// provider; the default implementation records them in the log stream.
type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
	SendAccountLocked(ctx context.Context, email string) error
}

// LogNotifier writes notifications to the structured log. Useful for local
// development and as a fallback when no mail transport is configured.
type LogNotifier struct {
	logger *zap.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendVerification(ctx context.Context, email, token string) error {
	n.logger.Info("verification email queued",
		zap.String("email", email),
		zap.String("token", token),
	)
	return nil
}

func (n *LogNotifier) SendAccountLocked(ctx context.Context, email string) error {
	n.logger.Warn("account locked notice queued", zap.String("email", email))
	return nil
}
