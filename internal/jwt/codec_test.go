package jwt_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/domain"
	"github.com/manziosee/IST-auth-system/internal/jwt"
)

const (
	testIssuer   = "ist-auth-system"
	testAudience = "ist-clients"
)

func newTestCodec(t *testing.T, accessTTL, refreshTTL time.Duration) (*jwt.Codec, *jwt.KeyManager) {
	t.Helper()
	manager := jwt.NewKeyManager(&fakeKeyStore{}, &sequenceIDs{}, 2048, zap.NewNop())
	require.NoError(t, manager.Initialize(context.Background()))
	return jwt.NewCodec(manager, testIssuer, testAudience, accessTTL, refreshTTL), manager
}

func testUser() domain.User {
	return domain.User{
		ID:            42,
		Username:      "jdoe",
		Email:         "jdoe@example.com",
		FirstName:     "Jane",
		LastName:      "Doe",
		Roles:         []string{"STUDENT"},
		EmailVerified: true,
		AuthProvider:  domain.ProviderLocal,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec, _ := newTestCodec(t, 15*time.Minute, 7*24*time.Hour)
	user := testUser()

	token, err := codec.SignAccessToken(user)
	require.NoError(t, err)

	std, custom, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "42", std.Subject)
	require.Equal(t, testIssuer, std.Issuer)
	require.Contains(t, std.Audience, testAudience)
	require.NotEmpty(t, std.ID)
	require.Equal(t, user.Email, custom.Email)
	require.Equal(t, user.Username, custom.Username)
	require.Equal(t, user.FirstName, custom.FirstName)
	require.Equal(t, user.LastName, custom.LastName)
	require.Equal(t, user.Roles, custom.Roles)
	require.True(t, custom.EmailVerified)
	require.Equal(t, domain.ProviderLocal, custom.AuthProvider)
	require.True(t, custom.IsAccess())
	require.False(t, custom.IsRefresh())
}

func TestClaimsRoleMembership(t *testing.T) {
	claims := jwt.Claims{Roles: []string{"STUDENT", "TEACHER"}}
	require.True(t, claims.HasRole("TEACHER"))
	require.False(t, claims.HasRole("ADMIN"))
	require.False(t, jwt.Claims{}.HasRole("STUDENT"))
}

func TestRefreshTokenCarriesRefreshType(t *testing.T) {
	codec, _ := newTestCodec(t, 15*time.Minute, 7*24*time.Hour)

	token, err := codec.SignRefreshToken(testUser())
	require.NoError(t, err)

	_, custom, err := codec.Verify(token)
	require.NoError(t, err)
	require.True(t, custom.IsRefresh())
	require.Empty(t, custom.Roles)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	// Zero TTL puts the expiry at the issuance instant; exactly-now counts
	// as expired.
	codec, _ := newTestCodec(t, 0, 0)

	token, err := codec.SignAccessToken(testUser())
	require.NoError(t, err)

	_, _, err = codec.Verify(token)
	require.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	codec, manager := newTestCodec(t, time.Minute, time.Hour)

	token := signWith(t, manager.PrivateKey(), manager.KeyID(), gojwt.Claims{
		Subject: "42",
		Issuer:  testIssuer,
	})
	_, _, err := codec.Verify(token)
	require.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestVerifyRejectsFutureNotBefore(t *testing.T) {
	codec, manager := newTestCodec(t, time.Minute, time.Hour)

	now := time.Now().UTC()
	token := signWith(t, manager.PrivateKey(), manager.KeyID(), gojwt.Claims{
		Subject:   "42",
		Issuer:    testIssuer,
		Expiry:    gojwt.NewNumericDate(now.Add(time.Hour)),
		NotBefore: gojwt.NewNumericDate(now.Add(30 * time.Minute)),
	})
	_, _, err := codec.Verify(token)
	require.ErrorIs(t, err, domain.ErrTokenNotYetValid)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	codec, _ := newTestCodec(t, time.Minute, time.Hour)

	foreign, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	now := time.Now().UTC()
	token := signWith(t, foreign, "other-key", gojwt.Claims{
		Subject: "42",
		Issuer:  testIssuer,
		Expiry:  gojwt.NewNumericDate(now.Add(time.Hour)),
	})
	_, _, err = codec.Verify(token)
	require.ErrorIs(t, err, domain.ErrTokenSignature)
}

func TestVerifyRejectsExpiredEvenWithValidSignature(t *testing.T) {
	codec, manager := newTestCodec(t, time.Minute, time.Hour)

	now := time.Now().UTC()
	token := signWith(t, manager.PrivateKey(), manager.KeyID(), gojwt.Claims{
		Subject: "42",
		Issuer:  testIssuer,
		Expiry:  gojwt.NewNumericDate(now.Add(-time.Second)),
	})
	_, _, err := codec.Verify(token)
	require.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	codec, _ := newTestCodec(t, time.Minute, time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, _, err := codec.Verify(token)
		require.ErrorIs(t, err, domain.ErrTokenMalformed, "token %q", token)
	}
}

func signWith(t *testing.T, key *rsa.PrivateKey, kid string, claims gojwt.Claims) string {
	t.Helper()
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.RS256, Key: key},
		(&gojose.SignerOptions{}).WithType("JWT").WithHeader("kid", kid),
	)
	require.NoError(t, err)
	token, err := gojwt.Signed(signer).Claims(claims).Serialize()
	require.NoError(t, err)
	return token
}

type fakeKeyStore struct {
	key   domain.SigningKey
	saved bool
}

func (f *fakeKeyStore) GetActive(ctx context.Context) (domain.SigningKey, error) {
	if !f.saved {
		return domain.SigningKey{}, pgx.ErrNoRows
	}
	return f.key, nil
}

func (f *fakeKeyStore) Create(ctx context.Context, key domain.SigningKey) (domain.SigningKey, error) {
	f.key = key
	f.saved = true
	return key, nil
}

type sequenceIDs struct {
	next int64
}

func (s *sequenceIDs) Generate() int64 {
	s.next++
	return s.next
}
