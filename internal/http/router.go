// Package http wires the Gin route table.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/config"
	"github.com/manziosee/IST-auth-system/internal/http/handler"
	httpmiddleware "github.com/manziosee/IST-auth-system/internal/http/middleware"
	"github.com/manziosee/IST-auth-system/internal/middleware"
)

// NewRouter wires routes and middleware.
func NewRouter(cfg config.Config, logger *zap.Logger, authHandler *handler.AuthHandler, clientHandler *handler.ClientHandler, wellKnown *handler.WellKnownHandler, authMiddleware *httpmiddleware.Auth, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/validate-token", authHandler.ValidateToken)
		auth.GET("/verify-email", authHandler.VerifyEmail)
		auth.POST("/resend-verification", authHandler.ResendVerification)

		auth.POST("/logout-all", authMiddleware.ValidateJWT, authHandler.LogoutAll)
		auth.GET("/me", authMiddleware.ValidateJWT, authHandler.Me)
		auth.POST("/unlock/:userId", authMiddleware.ValidateJWT, authMiddleware.RequireRole("ADMIN"), authHandler.Unlock)
	}

	clients := r.Group("/api/clients")
	{
		clients.POST("/validate", clientHandler.Validate)

		clients.POST("", authMiddleware.ValidateJWT, authMiddleware.RequireRole("ADMIN"), clientHandler.Register)
		clients.POST("/:clientId/regenerate-secret", authMiddleware.ValidateJWT, authMiddleware.RequireRole("ADMIN"), clientHandler.RegenerateSecret)
		clients.DELETE("/:clientId", authMiddleware.ValidateJWT, authMiddleware.RequireRole("ADMIN"), clientHandler.Deactivate)
	}

	r.GET("/.well-known/jwks.json", wellKnown.JWKS)
	r.GET("/.well-known/openid-configuration", wellKnown.OpenIDConfig)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
