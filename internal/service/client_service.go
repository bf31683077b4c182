package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/domain"
	"github.com/manziosee/IST-auth-system/internal/jwt"
	pw "github.com/manziosee/IST-auth-system/internal/password"
	"github.com/manziosee/IST-auth-system/internal/repository"
)

const clientSecretBytes = 32

// ClientService manages OAuth client registrations. Secrets are hashed at
// rest and returned in cleartext exactly once, at creation or regeneration.
type ClientService struct {
	clients repository.OAuthClientStore
	ids     jwt.IDGenerator
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewClientService(clients repository.OAuthClientStore, ids jwt.IDGenerator, logger *zap.Logger) *ClientService {
	return &ClientService{
		clients: clients,
		ids:     ids,
		logger:  logger,
		tracer:  otel.Tracer("github.com/manziosee/IST-auth-system/internal/service"),
	}
}

// Register creates a client and returns its credentials. The secret cannot
// be read back later.
func (s *ClientService) Register(ctx context.Context, req RegisterClientRequest) (*ClientRegistration, error) {
	ctx, span := s.startSpan(ctx, "ClientService.Register")
	defer span.End()

	secret, err := randomSecret()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("generate client secret: %w", err)
	}
	secretHash, err := pw.Hash(secret)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("hash client secret: %w", err)
	}

	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{domain.GrantClientCredentials}
	}

	now := time.Now().UTC()
	client, err := s.clients.Create(ctx, domain.OAuthClient{
		ID:               s.ids.Generate(),
		ClientID:         newClientID(),
		ClientSecretHash: secretHash,
		ClientName:       strings.TrimSpace(req.ClientName),
		Description:      strings.TrimSpace(req.Description),
		RedirectURIs:     req.RedirectURIs,
		GrantTypes:       grantTypes,
		Scopes:           req.Scopes,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create client: %w", err)
	}

	s.audit("client.registered", "client_id", client.ClientID, "client_name", client.ClientName)
	return &ClientRegistration{
		ClientID:     client.ClientID,
		ClientSecret: secret,
		ClientName:   client.ClientName,
		RedirectURIs: client.RedirectURIs,
		GrantTypes:   client.GrantTypes,
		Scopes:       client.Scopes,
	}, nil
}

// RegenerateSecret replaces the client's secret and returns the new value.
// Outstanding copies of the old secret stop working immediately.
func (s *ClientService) RegenerateSecret(ctx context.Context, clientID string) (string, error) {
	ctx, span := s.startSpan(ctx, "ClientService.RegenerateSecret")
	defer span.End()

	client, err := s.clients.GetActiveByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrClientNotFound
		}
		span.RecordError(err)
		return "", fmt.Errorf("load client: %w", err)
	}

	secret, err := randomSecret()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("generate client secret: %w", err)
	}
	secretHash, err := pw.Hash(secret)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("hash client secret: %w", err)
	}
	if err := s.clients.UpdateSecretHash(ctx, client.ClientID, secretHash); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("store client secret: %w", err)
	}

	s.audit("client.secret.rotated", "client_id", client.ClientID)
	return secret, nil
}

// Validate checks a client id/secret pair against the stored hash. Unknown
// clients and wrong secrets are indistinguishable to the caller.
func (s *ClientService) Validate(ctx context.Context, clientID, clientSecret string) (domain.OAuthClient, error) {
	ctx, span := s.startSpan(ctx, "ClientService.Validate")
	defer span.End()

	client, err := s.clients.GetActiveByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OAuthClient{}, domain.ErrCredentials
		}
		span.RecordError(err)
		return domain.OAuthClient{}, fmt.Errorf("load client: %w", err)
	}

	ok, err := pw.Verify(clientSecret, client.ClientSecretHash)
	if err != nil || !ok {
		s.audit("client.validate.failed", "client_id", clientID)
		return domain.OAuthClient{}, domain.ErrCredentials
	}
	return client, nil
}

// Deactivate disables a client without deleting its record.
func (s *ClientService) Deactivate(ctx context.Context, clientID string) error {
	ctx, span := s.startSpan(ctx, "ClientService.Deactivate")
	defer span.End()

	client, err := s.clients.GetActiveByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrClientNotFound
		}
		span.RecordError(err)
		return fmt.Errorf("load client: %w", err)
	}
	if err := s.clients.SetActive(ctx, client.ClientID, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("deactivate client: %w", err)
	}
	s.audit("client.deactivated", "client_id", clientID)
	return nil
}

func newClientID() string {
	// URL-safe, no padding. Stable public identifier for the client.
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "ist_" + base64.RawURLEncoding.EncodeToString(buf)
}

func randomSecret() (string, error) {
	buf := make([]byte, clientSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *ClientService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *ClientService) audit(event string, attrs ...any) {
	if s.logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	s.logger.Info("audit", fields...)
}
