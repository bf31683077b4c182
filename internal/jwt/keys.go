package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/domain"
	"github.com/manziosee/IST-auth-system/internal/repository"
)

// IDGenerator yields unique row ids for newly persisted keys.
type IDGenerator interface {
	Generate() int64
}

// KeyManager owns the single active RSA signing key for the process lifetime.
// Initialize must run once before traffic; afterwards the key material is
// read-only, so sign and verify paths need no locking.
type KeyManager struct {
	store   repository.KeyStore
	ids     IDGenerator
	keyBits int
	logger  *zap.Logger

	keyID      string
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// NewKeyManager creates an uninitialized KeyManager.
func NewKeyManager(store repository.KeyStore, ids IDGenerator, keyBits int, logger *zap.Logger) *KeyManager {
	if keyBits < 2048 {
		keyBits = 2048
	}
	return &KeyManager{store: store, ids: ids, keyBits: keyBits, logger: logger}
}

// Initialize loads the active key pair from storage, generating and
// persisting a fresh one on first boot. Any failure wraps
// domain.ErrKeyInitialization and must abort startup.
func (m *KeyManager) Initialize(ctx context.Context) error {
	stored, err := m.store.GetActive(ctx)
	switch {
	case err == nil:
		if err := m.loadStored(stored); err != nil {
			return err
		}
		m.log().Info("loaded signing key", zap.String("key_id", m.keyID))
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		if err := m.generateAndPersist(ctx); err != nil {
			return err
		}
		m.log().Info("generated signing key", zap.String("key_id", m.keyID), zap.Int("bits", m.keyBits))
		return nil
	default:
		return fmt.Errorf("%w: load active key: %v", domain.ErrKeyInitialization, err)
	}
}

func (m *KeyManager) loadStored(stored domain.SigningKey) error {
	parsedPrivate, err := x509.ParsePKCS8PrivateKey(stored.PrivateKey)
	if err != nil {
		return fmt.Errorf("%w: parse private key %s: %v", domain.ErrKeyInitialization, stored.KeyID, err)
	}
	privateKey, ok := parsedPrivate.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("%w: key %s is not RSA", domain.ErrKeyInitialization, stored.KeyID)
	}

	parsedPublic, err := x509.ParsePKIXPublicKey(stored.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: parse public key %s: %v", domain.ErrKeyInitialization, stored.KeyID, err)
	}
	publicKey, ok := parsedPublic.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: public key %s is not RSA", domain.ErrKeyInitialization, stored.KeyID)
	}

	m.keyID = stored.KeyID
	m.privateKey = privateKey
	m.publicKey = publicKey
	return nil
}

func (m *KeyManager) generateAndPersist(ctx context.Context) error {
	generated, err := rsa.GenerateKey(rand.Reader, m.keyBits)
	if err != nil {
		return fmt.Errorf("%w: generate key pair: %v", domain.ErrKeyInitialization, err)
	}

	privateDER, err := x509.MarshalPKCS8PrivateKey(generated)
	if err != nil {
		return fmt.Errorf("%w: encode private key: %v", domain.ErrKeyInitialization, err)
	}
	publicDER, err := x509.MarshalPKIXPublicKey(&generated.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: encode public key: %v", domain.ErrKeyInitialization, err)
	}

	key := domain.SigningKey{
		ID:         m.ids.Generate(),
		KeyID:      uuid.NewString(),
		PrivateKey: privateDER,
		PublicKey:  publicDER,
		Active:     true,
	}
	if _, err := m.store.Create(ctx, key); err != nil {
		return fmt.Errorf("%w: persist key pair: %v", domain.ErrKeyInitialization, err)
	}

	m.keyID = key.KeyID
	m.privateKey = generated
	m.publicKey = &generated.PublicKey
	return nil
}

// KeyID returns the active key identifier.
func (m *KeyManager) KeyID() string { return m.keyID }

// PrivateKey returns the signing key. Nil before Initialize.
func (m *KeyManager) PrivateKey() *rsa.PrivateKey { return m.privateKey }

// PublicKey returns the verification key. Nil before Initialize.
func (m *KeyManager) PublicKey() *rsa.PublicKey { return m.publicKey }

// JWKS returns the published key set. Only public material is exposed.
func (m *KeyManager) JWKS() jose.JSONWebKeySet {
	if m.publicKey == nil {
		return jose.JSONWebKeySet{}
	}
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		KeyID:     m.keyID,
		Use:       "sig",
		Algorithm: string(jose.RS256),
		Key:       m.publicKey,
	}}}
}

func (m *KeyManager) log() *zap.Logger {
	if m.logger != nil {
		return m.logger
	}
	return zap.L()
}
