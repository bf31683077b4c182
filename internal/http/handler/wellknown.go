package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manziosee/IST-auth-system/internal/jwt"
)

// WellKnownHandler serves key material and discovery metadata.
type WellKnownHandler struct {
	Keys   *jwt.KeyManager
	Issuer string
}

func NewWellKnownHandler(keys *jwt.KeyManager, issuer string) *WellKnownHandler {
	return &WellKnownHandler{Keys: keys, Issuer: issuer}
}

// JWKS exposes the public signing key. Clients may cache it for an hour.
func (h *WellKnownHandler) JWKS(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, h.Keys.JWKS())
}

// OpenIDConfig returns the discovery document for this deployment.
func (h *WellKnownHandler) OpenIDConfig(c *gin.Context) {
	base := fmt.Sprintf("%s://%s", schemeOnly(c.Request), c.Request.Host)
	c.JSON(http.StatusOK, gin.H{
		"issuer":                                h.Issuer,
		"jwks_uri":                              base + "/.well-known/jwks.json",
		"token_endpoint":                        base + "/api/auth/login",
		"userinfo_endpoint":                     base + "/api/auth/me",
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"subject_types_supported":               []string{"public"},
		"grant_types_supported": []string{
			"password", "refresh_token", "client_credentials",
		},
	})
}

func schemeOnly(r *http.Request) string {
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
