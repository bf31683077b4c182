package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/domain"
	httpHandler "github.com/manziosee/IST-auth-system/internal/http/handler"
	"github.com/manziosee/IST-auth-system/internal/service"
)

func TestClientValidateVerdictShape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewClientService(&stubClientStore{byID: map[int64]domain.OAuthClient{}}, &stubIDs{}, zap.NewNop())
	handler := httpHandler.NewClientHandler(svc, zap.NewNop())

	reg, err := svc.Register(context.Background(), service.RegisterClientRequest{ClientName: "portal"})
	require.NoError(t, err)

	// Correct credentials yield valid: true with client metadata.
	body := validateClient(t, handler, reg.ClientID, reg.ClientSecret)
	require.Equal(t, true, body["valid"])
	require.Equal(t, reg.ClientID, body["clientId"])

	// A wrong secret is still a 200; the verdict carries the failure.
	body = validateClient(t, handler, reg.ClientID, "wrong")
	require.Equal(t, false, body["valid"])
	require.NotContains(t, body, "error")

	// Unknown clients answer identically to wrong secrets.
	body = validateClient(t, handler, "ist_unknown", reg.ClientSecret)
	require.Equal(t, false, body["valid"])
}

func validateClient(t *testing.T, handler *httpHandler.ClientHandler, clientID, secret string) map[string]any {
	t.Helper()
	payload, err := json.Marshal(map[string]string{
		"clientId":     clientID,
		"clientSecret": secret,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/clients/validate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Validate(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

type stubClientStore struct {
	byID map[int64]domain.OAuthClient
}

func (s *stubClientStore) GetActiveByClientID(ctx context.Context, clientID string) (domain.OAuthClient, error) {
	for _, c := range s.byID {
		if c.ClientID == clientID && c.Active {
			return c, nil
		}
	}
	return domain.OAuthClient{}, pgx.ErrNoRows
}

func (s *stubClientStore) ExistsByClientID(ctx context.Context, clientID string) (bool, error) {
	for _, c := range s.byID {
		if c.ClientID == clientID {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubClientStore) Create(ctx context.Context, c domain.OAuthClient) (domain.OAuthClient, error) {
	s.byID[c.ID] = c
	return c, nil
}

func (s *stubClientStore) UpdateSecretHash(ctx context.Context, clientID, hash string) error {
	for id, c := range s.byID {
		if c.ClientID == clientID {
			c.ClientSecretHash = hash
			s.byID[id] = c
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (s *stubClientStore) SetActive(ctx context.Context, clientID string, active bool) error {
	for id, c := range s.byID {
		if c.ClientID == clientID {
			c.Active = active
			s.byID[id] = c
			return nil
		}
	}
	return pgx.ErrNoRows
}
