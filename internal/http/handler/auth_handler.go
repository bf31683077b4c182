// Package handler exposes the REST surface of the identity provider.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/domain"
	"github.com/manziosee/IST-auth-system/internal/http/middleware"
	"github.com/manziosee/IST-auth-system/internal/service"
)

// AuthHandler serves the authentication endpoints.
type AuthHandler struct {
	Auth   *service.AuthService
	Logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Logger: logger}
}

// Register creates a new local account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registration request"})
		return
	}

	result, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already in use"})
			return
		}
		h.logError("register", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Login exchanges credentials for a token pair. Unknown identifiers and
// wrong passwords produce the same response.
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid login request"})
		return
	}

	pair, err := h.Auth.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed"})
		case errors.Is(err, domain.ErrAccountLocked):
			c.JSON(http.StatusLocked, gin.H{"error": "Account is locked"})
		case errors.Is(err, domain.ErrAccountDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		case errors.Is(err, domain.ErrEmailUnverified):
			c.JSON(http.StatusForbidden, gin.H{"error": "Email not verified"})
		default:
			h.logError("login", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
		}
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh rotates a refresh token. Every failure collapses to one response
// so callers cannot distinguish revoked from unknown tokens.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token required"})
		return
	}

	pair, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if !isTokenError(err) {
			h.logError("refresh", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token refresh failed"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token required"})
		return
	}

	if err := h.Auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.logError("logout", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// LogoutAll revokes every refresh token of the authenticated user.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid access token"})
		return
	}
	if err := h.Auth.LogoutAll(c.Request.Context(), userID); err != nil {
		h.logError("logout_all", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All sessions revoked"})
}

// ValidateToken reports whether an arbitrary token is live. It always
// answers 200; the verdict is in the body.
func (h *AuthHandler) ValidateToken(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, service.TokenValidation{Valid: false})
		return
	}
	c.JSON(http.StatusOK, h.Auth.ValidateToken(c.Request.Context(), req.Token))
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid access token"})
		return
	}
	profile, err := h.Auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logError("me", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Profile lookup failed"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// VerifyEmail redeems a verification token passed as a query parameter.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	tokenValue := c.Query("token")
	if tokenValue == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Verification token required"})
		return
	}
	if err := h.Auth.VerifyEmail(c.Request.Context(), tokenValue); err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired verification token"})
			return
		}
		h.logError("verify_email", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified"})
}

// ResendVerification queues a new verification token. The response does not
// reveal whether the address is registered.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email required"})
		return
	}
	if err := h.Auth.ResendVerification(c.Request.Context(), req.Email); err != nil {
		h.logError("resend_verification", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the address is registered, a verification email has been sent"})
}

// Unlock clears the lockout state of a user. Admin only.
func (h *AuthHandler) Unlock(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	if err := h.Auth.UnlockAccount(c.Request.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logError("unlock", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Unlock failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account unlocked"})
}

func isTokenError(err error) bool {
	return errors.Is(err, domain.ErrTokenNotFound) ||
		errors.Is(err, domain.ErrTokenExpired) ||
		errors.Is(err, domain.ErrTokenRevoked) ||
		errors.Is(err, domain.ErrAccountDisabled)
}

func (h *AuthHandler) logError(op string, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.Error("handler error", zap.String("op", op), zap.Error(err))
}
