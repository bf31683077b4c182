package jwt

import (
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/manziosee/IST-auth-system/internal/domain"
)

// Claims is the custom JWT payload alongside the registered claim set.
type Claims struct {
	Email         string   `json:"email,omitempty"`
	Username      string   `json:"username,omitempty"`
	FirstName     string   `json:"firstName,omitempty"`
	LastName      string   `json:"lastName,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	EmailVerified bool     `json:"emailVerified,omitempty"`
	AuthProvider  string   `json:"authProvider,omitempty"`
	TokenType     string   `json:"tokenType"`
}

// IsAccess reports whether the claims belong to an access token.
func (c Claims) IsAccess() bool { return c.TokenType == domain.TokenTypeAccess }

// IsRefresh reports whether the claims belong to a refresh token.
func (c Claims) IsRefresh() bool { return c.TokenType == domain.TokenTypeRefresh }

// HasRole reports whether the claims carry the named role.
func (c Claims) HasRole(name string) bool {
	for _, role := range c.Roles {
		if role == name {
			return true
		}
	}
	return false
}

// Codec signs and verifies tokens with the active key pair. It is stateless
// beyond the key material and safe for concurrent use after key init.
type Codec struct {
	keys       *KeyManager
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec constructs a token codec bound to the key manager.
func NewCodec(keys *KeyManager, issuer, audience string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		keys:       keys,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTokenTTL returns the configured access token lifetime.
func (c *Codec) AccessTokenTTL() time.Duration { return c.accessTTL }

// RefreshTokenTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTokenTTL() time.Duration { return c.refreshTTL }

// SignAccessToken issues a signed access token carrying the full identity
// claim set.
func (c *Codec) SignAccessToken(user domain.User) (string, error) {
	custom := Claims{
		Email:         user.Email,
		Username:      user.Username,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Roles:         user.Roles,
		EmailVerified: user.EmailVerified,
		AuthProvider:  user.AuthProvider,
		TokenType:     domain.TokenTypeAccess,
	}
	return c.sign(user.ID, c.accessTTL, custom)
}

// SignRefreshToken issues a signed refresh token. Only the email travels
// beyond the registered claims; the durable record lives in the store.
func (c *Codec) SignRefreshToken(user domain.User) (string, error) {
	custom := Claims{
		Email:     user.Email,
		TokenType: domain.TokenTypeRefresh,
	}
	return c.sign(user.ID, c.refreshTTL, custom)
}

func (c *Codec) sign(subject int64, ttl time.Duration, custom Claims) (string, error) {
	signingKey := gojose.SigningKey{Algorithm: gojose.RS256, Key: c.keys.PrivateKey()}
	opts := (&gojose.SignerOptions{}).WithType("JWT").WithHeader("kid", c.keys.KeyID())
	signer, err := gojose.NewSigner(signingKey, opts)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	std := gojwt.Claims{
		Subject:   fmt.Sprintf("%d", subject),
		Issuer:    c.issuer,
		Audience:  gojwt.Audience{c.audience},
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		Expiry:    gojwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	token, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize token: %w", err)
	}
	return token, nil
}

// Verify checks a token in strict order: structure, signature, expiry, then
// not-before. Expiry tolerates no clock skew; a token expiring exactly now is
// already expired. Token-type discrimination is the caller's job.
func (c *Codec) Verify(token string) (*gojwt.Claims, *Claims, error) {
	return c.verifyAt(token, time.Now().UTC())
}

func (c *Codec) verifyAt(token string, now time.Time) (*gojwt.Claims, *Claims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.RS256})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}

	var std gojwt.Claims
	var custom Claims
	if err := parsed.Claims(c.keys.PublicKey(), &std, &custom); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrTokenSignature, err)
	}

	if std.Expiry == nil || !std.Expiry.Time().After(now) {
		return nil, nil, domain.ErrTokenExpired
	}
	if std.NotBefore != nil && std.NotBefore.Time().After(now) {
		return nil, nil, domain.ErrTokenNotYetValid
	}

	return &std, &custom, nil
}

// IsValid reports token validity without surfacing the failure kind.
func (c *Codec) IsValid(token string) bool {
	_, _, err := c.Verify(token)
	return err == nil
}
