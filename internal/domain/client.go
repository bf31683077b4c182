package domain

import "time"

// Grant types an OAuth client may be registered with.
const (
	GrantAuthorizationCode = "AUTHORIZATION_CODE"
	GrantClientCredentials = "CLIENT_CREDENTIALS"
	GrantRefreshToken      = "REFRESH_TOKEN"
)

// OAuthClient is a registered API client. ClientSecretHash is the only form
// the secret survives in; the plaintext is returned exactly once at
// registration or regeneration.
type OAuthClient struct {
	ID               int64
	ClientID         string
	ClientSecretHash string
	ClientName       string
	Description      string
	RedirectURIs     []string
	GrantTypes       []string
	Scopes           []string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasRedirectURI reports whether uri is registered for the client.
func (c OAuthClient) HasRedirectURI(uri string) bool {
	for _, allowed := range c.RedirectURIs {
		if allowed == uri {
			return true
		}
	}
	return false
}

// HasGrantType reports whether the client supports the grant.
func (c OAuthClient) HasGrantType(grant string) bool {
	for _, g := range c.GrantTypes {
		if g == grant {
			return true
		}
	}
	return false
}
