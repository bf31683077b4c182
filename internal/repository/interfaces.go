package repository

import (
	"context"
	"time"

	"github.com/manziosee/IST-auth-system/internal/domain"
)

// UserStore exposes persistence for user accounts.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByEmailOrUsername(ctx context.Context, identifier string) (domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Save(ctx context.Context, user domain.User) error
}

// RefreshTokenStore handles refresh token rows.
type RefreshTokenStore interface {
	Create(ctx context.Context, token domain.RefreshToken) (domain.RefreshToken, error)
	GetByToken(ctx context.Context, token string) (domain.RefreshToken, error)
	// ListValidByUser returns unrevoked, unexpired tokens ordered oldest
	// first (created_at, then id).
	ListValidByUser(ctx context.Context, userID int64, now time.Time) ([]domain.RefreshToken, error)
	CountValidByUser(ctx context.Context, userID int64, now time.Time) (int, error)
	// Revoke flips revoked to true and reports whether this call performed
	// the transition. A false result means another caller got there first.
	Revoke(ctx context.Context, tokenID int64) (bool, error)
	RevokeAllByUser(ctx context.Context, userID int64) error
	Delete(ctx context.Context, tokenID int64) error
	DeleteExpiredAndRevoked(ctx context.Context, cutoff time.Time) (int64, error)
}

// KeyStore persists signing key pairs.
type KeyStore interface {
	GetActive(ctx context.Context) (domain.SigningKey, error)
	Create(ctx context.Context, key domain.SigningKey) (domain.SigningKey, error)
}

// OAuthClientStore exposes registered client metadata.
type OAuthClientStore interface {
	GetActiveByClientID(ctx context.Context, clientID string) (domain.OAuthClient, error)
	ExistsByClientID(ctx context.Context, clientID string) (bool, error)
	Create(ctx context.Context, client domain.OAuthClient) (domain.OAuthClient, error)
	UpdateSecretHash(ctx context.Context, clientID, secretHash string) error
	SetActive(ctx context.Context, clientID string, active bool) error
}

// VerificationTokenStore keeps short-lived email verification tokens.
type VerificationTokenStore interface {
	Save(ctx context.Context, token string, userID int64, ttl time.Duration) error
	// Consume returns the owning user id and deletes the token. A zero id
	// with nil error means the token is unknown or expired.
	Consume(ctx context.Context, token string) (int64, error)
}
