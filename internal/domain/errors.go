package domain

import "errors"

var (
	// ErrCredentials covers both unknown-user and wrong-password failures so
	// callers cannot tell them apart.
	ErrCredentials = errors.New("auth: invalid credentials")
	// ErrAccountLocked signals too many failed login attempts.
	ErrAccountLocked = errors.New("auth: account locked")
	// ErrAccountDisabled signals an administratively disabled account.
	ErrAccountDisabled = errors.New("auth: account disabled")
	// ErrEmailUnverified blocks login until the address is confirmed.
	ErrEmailUnverified = errors.New("auth: email not verified")

	// ErrTokenNotFound signals a refresh token unknown to the store.
	ErrTokenNotFound = errors.New("token: not found")
	// ErrTokenExpired signals a token past its expiry instant.
	ErrTokenExpired = errors.New("token: expired")
	// ErrTokenRevoked signals a token that was already revoked or rotated.
	ErrTokenRevoked = errors.New("token: revoked")
	// ErrTokenMalformed signals a token that could not be parsed.
	ErrTokenMalformed = errors.New("token: malformed")
	// ErrTokenSignature signals a signature that does not verify.
	ErrTokenSignature = errors.New("token: invalid signature")
	// ErrTokenNotYetValid signals a token presented before its nbf instant.
	ErrTokenNotYetValid = errors.New("token: not yet valid")

	// ErrKeyInitialization is fatal: the process must not serve without a
	// usable signing key.
	ErrKeyInitialization = errors.New("keys: initialization failed")

	// ErrUserExists signals a registration conflict on email or username.
	ErrUserExists = errors.New("user: already exists")
	// ErrUserNotFound signals a missing user row.
	ErrUserNotFound = errors.New("user: not found")

	// ErrClientNotFound signals a missing or inactive OAuth client.
	ErrClientNotFound = errors.New("client: not found")
)
