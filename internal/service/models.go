package service

import (
	"time"

	"github.com/manziosee/IST-auth-system/internal/domain"
)

// TokenPair is the response body for login, registration and refresh.
type TokenPair struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	TokenType    string      `json:"tokenType"`
	ExpiresIn    int         `json:"expiresIn"`
	User         UserSummary `json:"user"`
}

// UserSummary is the safe projection of a user returned to clients.
type UserSummary struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Roles         []string   `json:"roles"`
	EmailVerified bool       `json:"emailVerified"`
	AuthProvider  string     `json:"authProvider"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func summarize(user domain.User) UserSummary {
	return UserSummary{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Roles:         user.Roles,
		EmailVerified: user.EmailVerified,
		AuthProvider:  user.AuthProvider,
		LastLogin:     user.LastLogin,
		CreatedAt:     user.CreatedAt,
	}
}

// RegisterRequest carries the signup form. Role is optional; blank falls
// back to the configured default.
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=64"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Role      string `json:"role"`
}

// RegistrationResult is the response body for register. No tokens are
// issued here; the account must verify its email and log in.
type RegistrationResult struct {
	Message   string      `json:"message"`
	User      UserSummary `json:"user"`
	EmailSent bool        `json:"emailSent"`
}

// LoginRequest accepts either the username or the email as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// TokenValidation is the response for validate-token. It never reports a
// reason, only the verdict and the claims when valid.
type TokenValidation struct {
	Valid  bool           `json:"valid"`
	Claims map[string]any `json:"claims,omitempty"`
}

// ClientRegistration is returned once at client creation. The secret is not
// recoverable afterwards.
type ClientRegistration struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	ClientName   string   `json:"clientName"`
	RedirectURIs []string `json:"redirectUris"`
	GrantTypes   []string `json:"grantTypes"`
	Scopes       []string `json:"scopes"`
}

// RegisterClientRequest carries the client registration form.
type RegisterClientRequest struct {
	ClientName   string   `json:"clientName" binding:"required"`
	Description  string   `json:"description"`
	RedirectURIs []string `json:"redirectUris"`
	GrantTypes   []string `json:"grantTypes"`
	Scopes       []string `json:"scopes"`
}
