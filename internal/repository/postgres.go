package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manziosee/IST-auth-system/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserStore         = (*PostgresUserStore)(nil)
	_ RefreshTokenStore = (*PostgresRefreshTokenStore)(nil)
	_ KeyStore          = (*PostgresKeyStore)(nil)
	_ OAuthClientStore  = (*PostgresOAuthClientStore)(nil)
)

const userColumns = `id, username, email, first_name, last_name, password_hash, roles,
email_verified, account_enabled, account_locked, failed_login_attempts,
auth_provider, provider_id, last_login, created_at, updated_at`

// PostgresUserStore implements UserStore over pgx.
type PostgresUserStore struct {
	db *pgxpool.Pool
}

func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{db: pool}
}

func (s *PostgresUserStore) GetByID(ctx context.Context, id int64) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return s.scanUser(s.db.QueryRow(ctx, query, id), "get user by id")
}

func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return s.scanUser(s.db.QueryRow(ctx, query, email), "get user by email")
}

func (s *PostgresUserStore) GetByEmailOrUsername(ctx context.Context, identifier string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 OR username = $1`, userColumns)
	return s.scanUser(s.db.QueryRow(ctx, query, identifier), "get user by identifier")
}

func (s *PostgresUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by email: %w", err)
	}
	return exists, nil
}

func (s *PostgresUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by username: %w", err)
	}
	return exists, nil
}

func (s *PostgresUserStore) Create(ctx context.Context, user domain.User) (domain.User, error) {
	query := fmt.Sprintf(`INSERT INTO users
(id, username, email, first_name, last_name, password_hash, roles, email_verified,
 account_enabled, account_locked, failed_login_attempts, auth_provider, provider_id, last_login)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING %s`, userColumns)

	row := s.db.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.Roles, user.EmailVerified,
		user.AccountEnabled, user.AccountLocked, user.FailedLoginAttempts,
		user.AuthProvider, user.ProviderID, user.LastLogin,
	)
	return s.scanUser(row, "create user")
}

func (s *PostgresUserStore) Save(ctx context.Context, user domain.User) error {
	const query = `UPDATE users SET
username = $2, email = $3, first_name = $4, last_name = $5, password_hash = $6,
roles = $7, email_verified = $8, account_enabled = $9, account_locked = $10,
failed_login_attempts = $11, auth_provider = $12, provider_id = $13,
last_login = $14, updated_at = NOW()
WHERE id = $1`

	if _, err := s.db.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.Roles, user.EmailVerified, user.AccountEnabled,
		user.AccountLocked, user.FailedLoginAttempts, user.AuthProvider,
		user.ProviderID, user.LastLogin,
	); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresUserStore) scanUser(row rowScanner, op string) (domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.Roles, &u.EmailVerified, &u.AccountEnabled,
		&u.AccountLocked, &u.FailedLoginAttempts, &u.AuthProvider,
		&u.ProviderID, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// PostgresRefreshTokenStore implements RefreshTokenStore.
type PostgresRefreshTokenStore struct {
	db *pgxpool.Pool
}

func NewPostgresRefreshTokenStore(pool *pgxpool.Pool) *PostgresRefreshTokenStore {
	return &PostgresRefreshTokenStore{db: pool}
}

const tokenColumns = `id, token, user_id, expires_at, revoked, created_at`

func (s *PostgresRefreshTokenStore) Create(ctx context.Context, token domain.RefreshToken) (domain.RefreshToken, error) {
	query := fmt.Sprintf(`INSERT INTO refresh_tokens (id, token, user_id, expires_at, revoked)
VALUES ($1, $2, $3, $4, $5)
RETURNING %s`, tokenColumns)

	row := s.db.QueryRow(ctx, query, token.ID, token.Token, token.UserID, token.ExpiresAt, token.Revoked)
	return scanToken(row, "create refresh token")
}

func (s *PostgresRefreshTokenStore) GetByToken(ctx context.Context, token string) (domain.RefreshToken, error) {
	query := fmt.Sprintf(`SELECT %s FROM refresh_tokens WHERE token = $1`, tokenColumns)
	return scanToken(s.db.QueryRow(ctx, query, token), "get refresh token")
}

func (s *PostgresRefreshTokenStore) ListValidByUser(ctx context.Context, userID int64, now time.Time) ([]domain.RefreshToken, error) {
	query := fmt.Sprintf(`SELECT %s FROM refresh_tokens
WHERE user_id = $1 AND revoked = FALSE AND expires_at > $2
ORDER BY created_at ASC, id ASC`, tokenColumns)

	rows, err := s.db.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("list valid tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.RefreshToken
	for rows.Next() {
		token, err := scanToken(rows, "list valid tokens")
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list valid tokens: %w", err)
	}
	return tokens, nil
}

func (s *PostgresRefreshTokenStore) CountValidByUser(ctx context.Context, userID int64, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM refresh_tokens WHERE user_id = $1 AND revoked = FALSE AND expires_at > $2`,
		userID, now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count valid tokens: %w", err)
	}
	return count, nil
}

// Revoke is the one-time gate for rotation: the conditional update touches at
// most one row, so of two concurrent callers only one sees flipped == true.
func (s *PostgresRefreshTokenStore) Revoke(ctx context.Context, tokenID int64) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE id = $1 AND revoked = FALSE`, tokenID)
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresRefreshTokenStore) RevokeAllByUser(ctx context.Context, userID int64) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}
	return nil
}

func (s *PostgresRefreshTokenStore) Delete(ctx context.Context, tokenID int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, tokenID); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (s *PostgresRefreshTokenStore) DeleteExpiredAndRevoked(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1 OR revoked = TRUE`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanToken(row rowScanner, op string) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	if err := row.Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.Revoked, &t.CreatedAt); err != nil {
		return domain.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// PostgresKeyStore implements KeyStore.
type PostgresKeyStore struct {
	db *pgxpool.Pool
}

func NewPostgresKeyStore(pool *pgxpool.Pool) *PostgresKeyStore {
	return &PostgresKeyStore{db: pool}
}

func (s *PostgresKeyStore) GetActive(ctx context.Context) (domain.SigningKey, error) {
	const query = `SELECT id, key_id, private_key, public_key, active, created_at
FROM signing_keys WHERE active = TRUE LIMIT 1`

	var k domain.SigningKey
	if err := s.db.QueryRow(ctx, query).Scan(
		&k.ID, &k.KeyID, &k.PrivateKey, &k.PublicKey, &k.Active, &k.CreatedAt,
	); err != nil {
		return domain.SigningKey{}, fmt.Errorf("get active key: %w", err)
	}
	return k, nil
}

func (s *PostgresKeyStore) Create(ctx context.Context, key domain.SigningKey) (domain.SigningKey, error) {
	const query = `INSERT INTO signing_keys (id, key_id, private_key, public_key, active)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, key_id, private_key, public_key, active, created_at`

	var k domain.SigningKey
	if err := s.db.QueryRow(ctx, query,
		key.ID, key.KeyID, key.PrivateKey, key.PublicKey, key.Active,
	).Scan(&k.ID, &k.KeyID, &k.PrivateKey, &k.PublicKey, &k.Active, &k.CreatedAt); err != nil {
		return domain.SigningKey{}, fmt.Errorf("create key: %w", err)
	}
	return k, nil
}

// PostgresOAuthClientStore implements OAuthClientStore.
type PostgresOAuthClientStore struct {
	db *pgxpool.Pool
}

func NewPostgresOAuthClientStore(pool *pgxpool.Pool) *PostgresOAuthClientStore {
	return &PostgresOAuthClientStore{db: pool}
}

const clientColumns = `id, client_id, client_secret_hash, client_name, description,
redirect_uris, grant_types, scopes, active, created_at, updated_at`

func (s *PostgresOAuthClientStore) GetActiveByClientID(ctx context.Context, clientID string) (domain.OAuthClient, error) {
	query := fmt.Sprintf(`SELECT %s FROM oauth_clients WHERE client_id = $1 AND active = TRUE`, clientColumns)
	return scanClient(s.db.QueryRow(ctx, query, clientID), "get oauth client")
}

func (s *PostgresOAuthClientStore) ExistsByClientID(ctx context.Context, clientID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM oauth_clients WHERE client_id = $1)`, clientID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by client id: %w", err)
	}
	return exists, nil
}

func (s *PostgresOAuthClientStore) Create(ctx context.Context, client domain.OAuthClient) (domain.OAuthClient, error) {
	query := fmt.Sprintf(`INSERT INTO oauth_clients
(id, client_id, client_secret_hash, client_name, description, redirect_uris, grant_types, scopes, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING %s`, clientColumns)

	row := s.db.QueryRow(ctx, query,
		client.ID, client.ClientID, client.ClientSecretHash, client.ClientName,
		client.Description, client.RedirectURIs, client.GrantTypes, client.Scopes, client.Active,
	)
	return scanClient(row, "create oauth client")
}

func (s *PostgresOAuthClientStore) UpdateSecretHash(ctx context.Context, clientID, secretHash string) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE oauth_clients SET client_secret_hash = $2, updated_at = NOW() WHERE client_id = $1`,
		clientID, secretHash); err != nil {
		return fmt.Errorf("update client secret: %w", err)
	}
	return nil
}

func (s *PostgresOAuthClientStore) SetActive(ctx context.Context, clientID string, active bool) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE oauth_clients SET active = $2, updated_at = NOW() WHERE client_id = $1`,
		clientID, active); err != nil {
		return fmt.Errorf("set client active: %w", err)
	}
	return nil
}

func scanClient(row rowScanner, op string) (domain.OAuthClient, error) {
	var c domain.OAuthClient
	if err := row.Scan(
		&c.ID, &c.ClientID, &c.ClientSecretHash, &c.ClientName, &c.Description,
		&c.RedirectURIs, &c.GrantTypes, &c.Scopes, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return domain.OAuthClient{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}
