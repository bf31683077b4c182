package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/manziosee/IST-auth-system/internal/jwt"
)

const (
	accessClaimsKey = "accessClaims"
	stdClaimsKey    = "stdClaims"
)

// Auth validates the Authorization header and attaches claims.
type Auth struct {
	Codec *jwt.Codec
}

func NewAuth(codec *jwt.Codec) *Auth {
	return &Auth{Codec: codec}
}

// ValidateJWT ensures the request carries a valid access token. Refresh
// tokens are rejected here even though they verify cryptographically.
func (m *Auth) ValidateJWT(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
		return
	}
	std, custom, err := m.Codec.Verify(parts[1])
	if err != nil || !custom.IsAccess() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid access token"})
		return
	}
	c.Set(stdClaimsKey, std)
	c.Set(accessClaimsKey, custom)
	c.Next()
}

// RequireRole aborts with 403 unless the access token carries the role.
// Must run after ValidateJWT.
func (m *Auth) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetAccessClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid access token"})
			return
		}
		if !claims.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient privileges"})
			return
		}
		c.Next()
	}
}

// GetAccessClaims exposes custom access token claims to handlers.
func GetAccessClaims(c *gin.Context) (*jwt.Claims, bool) {
	value, ok := c.Get(accessClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*jwt.Claims)
	return claims, ok
}

// GetStdClaims returns the standard JWT claims set.
func GetStdClaims(c *gin.Context) (*gojwt.Claims, bool) {
	value, ok := c.Get(stdClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*gojwt.Claims)
	return claims, ok
}

// GetUserID resolves the authenticated user's id from the token subject.
func GetUserID(c *gin.Context) (int64, bool) {
	std, ok := GetStdClaims(c)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(std.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
