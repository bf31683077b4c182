package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manziosee/IST-auth-system/internal/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("s3cret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := password.Verify("s3cret", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = password.Verify("wrong", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	first, err := password.Hash("same input")
	require.NoError(t, err)
	second, err := password.Hash("same input")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$not-base64!$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$c2FsdA",
	} {
		_, err := password.Verify("anything", encoded)
		require.Error(t, err, "hash %q", encoded)
	}
}
