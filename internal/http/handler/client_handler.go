package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/domain"
	"github.com/manziosee/IST-auth-system/internal/service"
)

// ClientHandler serves OAuth client management endpoints.
type ClientHandler struct {
	Clients *service.ClientService
	Logger  *zap.Logger
}

func NewClientHandler(clients *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{Clients: clients, Logger: logger}
}

// Register creates a client. The secret in the response is shown only once.
func (h *ClientHandler) Register(c *gin.Context) {
	var req service.RegisterClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid client registration request"})
		return
	}
	reg, err := h.Clients.Register(c.Request.Context(), req)
	if err != nil {
		h.logError("client_register", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Client registration failed"})
		return
	}
	c.JSON(http.StatusCreated, reg)
}

// RegenerateSecret rotates a client's secret.
func (h *ClientHandler) RegenerateSecret(c *gin.Context) {
	secret, err := h.Clients.RegenerateSecret(c.Request.Context(), c.Param("clientId"))
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
			return
		}
		h.logError("client_regenerate", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Secret rotation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clientId": c.Param("clientId"), "clientSecret": secret})
}

// Validate checks a client id and secret pair. The verdict is always a 200
// carrying a valid flag; unknown clients and wrong secrets are
// indistinguishable.
func (h *ClientHandler) Validate(c *gin.Context) {
	var req struct {
		ClientID     string `json:"clientId" binding:"required"`
		ClientSecret string `json:"clientSecret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Client credentials required"})
		return
	}

	client, err := h.Clients.Validate(c.Request.Context(), req.ClientID, req.ClientSecret)
	if err != nil {
		if errors.Is(err, domain.ErrCredentials) {
			c.JSON(http.StatusOK, gin.H{"valid": false})
			return
		}
		h.logError("client_validate", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Client validation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"clientId":   client.ClientID,
		"clientName": client.ClientName,
		"grantTypes": client.GrantTypes,
		"scopes":     client.Scopes,
	})
}

// Deactivate disables a client.
func (h *ClientHandler) Deactivate(c *gin.Context) {
	if err := h.Clients.Deactivate(c.Request.Context(), c.Param("clientId")); err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
			return
		}
		h.logError("client_deactivate", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Client deactivation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Client deactivated"})
}

func (h *ClientHandler) logError(op string, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.Error("handler error", zap.String("op", op), zap.Error(err))
}
