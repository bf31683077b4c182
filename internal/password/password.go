// Package password hashes and verifies secrets with argon2id. It is used for
// both user passwords and OAuth client secrets.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

type params struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

var defaultParams = params{
	memory:  64 * 1024,
	time:    3,
	threads: 2,
	keyLen:  32,
}

const saltLen = 16

var errInvalidHash = errors.New("invalid password hash")

// Hash returns an encoded argon2id hash carrying its own parameters and salt.
func Hash(secret string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	p := defaultParams
	sum := argon2.IDKey([]byte(secret), salt, p.time, p.memory, p.threads, p.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify checks a secret against an encoded argon2id hash in constant time.
func Verify(secret, encoded string) (bool, error) {
	p, salt, expected, err := decode(encoded)
	if err != nil {
		return false, err
	}
	actual := argon2.IDKey([]byte(secret), salt, p.time, p.memory, p.threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

func decode(encoded string) (params, []byte, []byte, error) {
	var (
		version    int
		p          params
		saltB64    string
		sumB64     string
		numThreads uint32
	)

	n, err := fmt.Sscanf(encoded, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		&version, &p.memory, &p.time, &numThreads, &saltB64)
	if err != nil || n != 5 || version != argon2.Version || numThreads == 0 || numThreads > 255 {
		return params{}, nil, nil, errInvalidHash
	}
	p.threads = uint8(numThreads)

	// Sscanf's %s is greedy; the salt and hash segments arrive joined.
	for i := 0; i < len(saltB64); i++ {
		if saltB64[i] == '$' {
			sumB64 = saltB64[i+1:]
			saltB64 = saltB64[:i]
			break
		}
	}
	if sumB64 == "" {
		return params{}, nil, nil, errInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return params{}, nil, nil, errInvalidHash
	}
	sum, err := base64.RawStdEncoding.DecodeString(sumB64)
	if err != nil {
		return params{}, nil, nil, errInvalidHash
	}
	return p, salt, sum, nil
}
