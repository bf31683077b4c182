package domain

import "time"

// Auth providers a user account can originate from.
const (
	ProviderLocal    = "LOCAL"
	ProviderLinkedIn = "LINKEDIN"
)

// User represents an end user that can authenticate against the service.
type User struct {
	ID                  int64
	Username            string
	Email               string
	FirstName           string
	LastName            string
	PasswordHash        string
	Roles               []string
	EmailVerified       bool
	AccountEnabled      bool
	AccountLocked       bool
	FailedLoginAttempts int
	AuthProvider        string
	ProviderID          string
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
