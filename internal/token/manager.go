// Package token manages the refresh token lifecycle: issuance with per-user
// capacity eviction, one-time-use rotation, revocation, and expiry cleanup.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/domain"
	"github.com/manziosee/IST-auth-system/internal/jwt"
	"github.com/manziosee/IST-auth-system/internal/repository"
)

// Manager coordinates refresh token persistence with the JWT codec.
type Manager struct {
	tokens     repository.RefreshTokenStore
	users      repository.UserStore
	codec      *jwt.Codec
	ids        jwt.IDGenerator
	maxPerUser int
	logger     *zap.Logger
}

// NewManager wires a refresh token manager. maxPerUser caps the number of
// simultaneously valid tokens a user may hold.
func NewManager(tokens repository.RefreshTokenStore, users repository.UserStore, codec *jwt.Codec, ids jwt.IDGenerator, maxPerUser int, logger *zap.Logger) *Manager {
	if maxPerUser < 1 {
		maxPerUser = 1
	}
	return &Manager{
		tokens:     tokens,
		users:      users,
		codec:      codec,
		ids:        ids,
		maxPerUser: maxPerUser,
		logger:     logger,
	}
}

// Issue creates a signed refresh token for the user, evicting oldest valid
// tokens first so the user never exceeds the configured cap.
func (m *Manager) Issue(ctx context.Context, user domain.User) (domain.RefreshToken, error) {
	if err := m.evictOldest(ctx, user); err != nil {
		return domain.RefreshToken{}, err
	}

	signed, err := m.codec.SignRefreshToken(user)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("sign refresh token: %w", err)
	}

	record := domain.RefreshToken{
		ID:        m.ids.Generate(),
		Token:     signed,
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(m.codec.RefreshTokenTTL()),
	}
	created, err := m.tokens.Create(ctx, record)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("persist refresh token: %w", err)
	}

	m.log().Debug("refresh token issued", zap.Int64("user_id", user.ID))
	return created, nil
}

// evictOldest revokes oldest-first (created_at, then insertion id) until the
// user has room for one more token under the cap.
func (m *Manager) evictOldest(ctx context.Context, user domain.User) error {
	now := time.Now().UTC()
	count, err := m.tokens.CountValidByUser(ctx, user.ID, now)
	if err != nil {
		return err
	}
	if count < m.maxPerUser {
		return nil
	}

	valid, err := m.tokens.ListValidByUser(ctx, user.ID, now)
	if err != nil {
		return err
	}
	evict := count - m.maxPerUser + 1
	if evict > len(valid) {
		evict = len(valid)
	}
	for _, stale := range valid[:evict] {
		if _, err := m.tokens.Revoke(ctx, stale.ID); err != nil {
			return err
		}
	}

	m.log().Debug("evicted refresh tokens",
		zap.Int64("user_id", user.ID), zap.Int("evicted", evict))
	return nil
}

// ValidateAndRotate redeems a presented refresh token: the token is revoked
// (one-time-use) and a replacement is issued for the same user. Of two
// concurrent calls with the same token, at most one succeeds; the other
// fails with domain.ErrTokenRevoked.
func (m *Manager) ValidateAndRotate(ctx context.Context, tokenValue string) (domain.User, domain.RefreshToken, error) {
	stored, err := m.tokens.GetByToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.RefreshToken{}, domain.ErrTokenNotFound
		}
		return domain.User{}, domain.RefreshToken{}, err
	}

	now := time.Now().UTC()
	if !stored.ExpiresAt.After(now) {
		// Expired rows are dead weight; drop them on sight.
		if err := m.tokens.Delete(ctx, stored.ID); err != nil {
			m.log().Warn("delete expired refresh token", zap.Error(err))
		}
		return domain.User{}, domain.RefreshToken{}, domain.ErrTokenExpired
	}
	if stored.Revoked {
		return domain.User{}, domain.RefreshToken{}, domain.ErrTokenRevoked
	}

	user, err := m.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.RefreshToken{}, domain.ErrTokenRevoked
		}
		return domain.User{}, domain.RefreshToken{}, err
	}
	if !user.AccountEnabled || user.AccountLocked {
		if err := m.tokens.RevokeAllByUser(ctx, user.ID); err != nil {
			m.log().Warn("revoke tokens of disabled account", zap.Error(err))
		}
		return domain.User{}, domain.RefreshToken{}, domain.ErrAccountDisabled
	}

	flipped, err := m.tokens.Revoke(ctx, stored.ID)
	if err != nil {
		return domain.User{}, domain.RefreshToken{}, err
	}
	if !flipped {
		return domain.User{}, domain.RefreshToken{}, domain.ErrTokenRevoked
	}

	replacement, err := m.Issue(ctx, user)
	if err != nil {
		return domain.User{}, domain.RefreshToken{}, err
	}
	return user, replacement, nil
}

// Revoke marks the token revoked. Unknown or already revoked tokens are not
// an error; logout is idempotent.
func (m *Manager) Revoke(ctx context.Context, tokenValue string) error {
	stored, err := m.tokens.GetByToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if _, err := m.tokens.Revoke(ctx, stored.ID); err != nil {
		return err
	}
	return nil
}

// RevokeAll bulk-revokes every token the user holds.
func (m *Manager) RevokeAll(ctx context.Context, userID int64) error {
	return m.tokens.RevokeAllByUser(ctx, userID)
}

// IsValid reports whether the token is live in the store and carries a
// verifiable refresh-type signature.
func (m *Manager) IsValid(ctx context.Context, tokenValue string) bool {
	stored, err := m.tokens.GetByToken(ctx, tokenValue)
	if err != nil {
		return false
	}
	if stored.Revoked || !stored.ExpiresAt.After(time.Now().UTC()) {
		return false
	}
	_, custom, err := m.codec.Verify(tokenValue)
	return err == nil && custom.IsRefresh()
}

// Cleanup deletes rows that expired before the cutoff or were revoked.
func (m *Manager) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := m.tokens.DeleteExpiredAndRevoked(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup refresh tokens: %w", err)
	}
	if deleted > 0 {
		m.log().Info("purged refresh tokens", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

func (m *Manager) log() *zap.Logger {
	if m.logger != nil {
		return m.logger
	}
	return zap.L()
}
