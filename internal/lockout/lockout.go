// Package lockout tracks failed login attempts and locks accounts that
// exceed the configured threshold.
package lockout

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/domain"
	"github.com/manziosee/IST-auth-system/internal/repository"
)

type Policy struct {
	users     repository.UserStore
	threshold int
	logger    *zap.Logger
}

func NewPolicy(users repository.UserStore, threshold int, logger *zap.Logger) *Policy {
	if threshold < 1 {
		threshold = 1
	}
	return &Policy{users: users, threshold: threshold, logger: logger}
}

// RecordFailure increments the user's failed attempt counter and locks the
// account once the counter reaches the threshold. The updated user is
// returned so callers can observe the new state.
func (p *Policy) RecordFailure(ctx context.Context, user domain.User) (domain.User, error) {
	user.FailedLoginAttempts++
	if user.FailedLoginAttempts >= p.threshold && !user.AccountLocked {
		user.AccountLocked = true
		p.log().Warn("account locked after repeated failures",
			zap.Int64("user_id", user.ID),
			zap.Int("failed_attempts", user.FailedLoginAttempts),
		)
	}
	if err := p.users.Save(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("record login failure: %w", err)
	}
	return user, nil
}

// RecordSuccess clears the lockout state and stamps the login time. The
// lock is dropped unconditionally; a successful authentication proves the
// caller holds the credentials.
func (p *Policy) RecordSuccess(ctx context.Context, user domain.User) (domain.User, error) {
	now := time.Now().UTC()
	user.FailedLoginAttempts = 0
	user.AccountLocked = false
	user.LastLogin = &now
	if err := p.users.Save(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("record login success: %w", err)
	}
	return user, nil
}

// Unlock clears the lock and the failure counter. Intended for admin use.
func (p *Policy) Unlock(ctx context.Context, userID int64) error {
	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", userID, err)
	}
	user.AccountLocked = false
	user.FailedLoginAttempts = 0
	if err := p.users.Save(ctx, user); err != nil {
		return fmt.Errorf("unlock user %d: %w", userID, err)
	}
	p.log().Info("account unlocked", zap.Int64("user_id", userID))
	return nil
}

func (p *Policy) Threshold() int { return p.threshold }

func (p *Policy) log() *zap.Logger {
	if p.logger == nil {
		return zap.NewNop()
	}
	return p.logger
}
