package domain

import "time"

// Token type discriminator carried in the tokenType claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// RefreshToken persists one issued refresh token. The Token column holds the
// signed JWT itself; Revoked only ever transitions false -> true.
type RefreshToken struct {
	ID        int64
	Token     string
	UserID    int64
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// SigningKey stores the RSA key pair used to sign tokens. Exactly one row is
// active at a time; material is DER encoded (PKCS#8 private, PKIX public).
type SigningKey struct {
	ID         int64
	KeyID      string
	PrivateKey []byte
	PublicKey  []byte
	Active     bool
	CreatedAt  time.Time
}
