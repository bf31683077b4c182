package service_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/domain"
	"github.com/manziosee/IST-auth-system/internal/service"
)

func newClientService() (*service.ClientService, *memClients) {
	clients := &memClients{byID: map[int64]domain.OAuthClient{}}
	return service.NewClientService(clients, &seqIDs{}, zap.NewNop()), clients
}

func TestRegisterClientReturnsSecretOnce(t *testing.T) {
	ctx := context.Background()
	svc, clients := newClientService()

	reg, err := svc.Register(ctx, service.RegisterClientRequest{
		ClientName:   "grading portal",
		RedirectURIs: []string{"https://portal.example.com/callback"},
		Scopes:       []string{"openid", "profile"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, reg.ClientID)
	require.NotEmpty(t, reg.ClientSecret)
	require.Equal(t, []string{domain.GrantClientCredentials}, reg.GrantTypes)

	// Only the hash is persisted.
	stored := clients.byClientID(reg.ClientID)
	require.NotEqual(t, reg.ClientSecret, stored.ClientSecretHash)
	require.Contains(t, stored.ClientSecretHash, "$argon2id$")
}

func TestValidateClient(t *testing.T) {
	ctx := context.Background()
	svc, _ := newClientService()

	reg, err := svc.Register(ctx, service.RegisterClientRequest{ClientName: "svc"})
	require.NoError(t, err)

	client, err := svc.Validate(ctx, reg.ClientID, reg.ClientSecret)
	require.NoError(t, err)
	require.Equal(t, reg.ClientID, client.ClientID)

	// Wrong secret and unknown client produce the same error.
	_, err = svc.Validate(ctx, reg.ClientID, "wrong")
	require.ErrorIs(t, err, domain.ErrCredentials)
	_, err = svc.Validate(ctx, "ist_unknown", reg.ClientSecret)
	require.ErrorIs(t, err, domain.ErrCredentials)
}

func TestRegenerateSecretInvalidatesOldOne(t *testing.T) {
	ctx := context.Background()
	svc, _ := newClientService()

	reg, err := svc.Register(ctx, service.RegisterClientRequest{ClientName: "svc"})
	require.NoError(t, err)

	fresh, err := svc.RegenerateSecret(ctx, reg.ClientID)
	require.NoError(t, err)
	require.NotEqual(t, reg.ClientSecret, fresh)

	_, err = svc.Validate(ctx, reg.ClientID, reg.ClientSecret)
	require.ErrorIs(t, err, domain.ErrCredentials)
	_, err = svc.Validate(ctx, reg.ClientID, fresh)
	require.NoError(t, err)

	_, err = svc.RegenerateSecret(ctx, "ist_unknown")
	require.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestDeactivateClient(t *testing.T) {
	ctx := context.Background()
	svc, _ := newClientService()

	reg, err := svc.Register(ctx, service.RegisterClientRequest{ClientName: "svc"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, reg.ClientID))

	// A deactivated client can no longer authenticate.
	_, err = svc.Validate(ctx, reg.ClientID, reg.ClientSecret)
	require.ErrorIs(t, err, domain.ErrCredentials)

	require.ErrorIs(t, svc.Deactivate(ctx, reg.ClientID), domain.ErrClientNotFound)
}

type memClients struct {
	byID map[int64]domain.OAuthClient
}

func (m *memClients) byClientID(clientID string) domain.OAuthClient {
	for _, c := range m.byID {
		if c.ClientID == clientID {
			return c
		}
	}
	return domain.OAuthClient{}
}

func (m *memClients) GetActiveByClientID(ctx context.Context, clientID string) (domain.OAuthClient, error) {
	for _, c := range m.byID {
		if c.ClientID == clientID && c.Active {
			return c, nil
		}
	}
	return domain.OAuthClient{}, pgx.ErrNoRows
}

func (m *memClients) ExistsByClientID(ctx context.Context, clientID string) (bool, error) {
	for _, c := range m.byID {
		if c.ClientID == clientID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memClients) Create(ctx context.Context, c domain.OAuthClient) (domain.OAuthClient, error) {
	m.byID[c.ID] = c
	return c, nil
}

func (m *memClients) UpdateSecretHash(ctx context.Context, clientID, hash string) error {
	for id, c := range m.byID {
		if c.ClientID == clientID {
			c.ClientSecretHash = hash
			m.byID[id] = c
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memClients) SetActive(ctx context.Context, clientID string, active bool) error {
	for id, c := range m.byID {
		if c.ClientID == clientID {
			c.Active = active
			m.byID[id] = c
			return nil
		}
	}
	return pgx.ErrNoRows
}
