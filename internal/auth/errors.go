package auth

import "errors"

var (
	// ErrInvalidInput indicates a malformed request (missing fields).
	ErrInvalidInput = errors.New("auth: invalid input")
	// ErrAuthenticationFailed indicates a credential mismatch on login.
	// It carries no detail about which field was wrong.
	ErrAuthenticationFailed = errors.New("auth: authentication failed")
	// ErrInvalidToken indicates an access token failed signature or
	// expiry checks.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrInvalidRefreshToken indicates a refresh token that is unknown,
	// expired, revoked, or lost a rotation race.
	ErrInvalidRefreshToken = errors.New("auth: invalid refresh token")
	// ErrNotFound indicates a missing store record.
	ErrNotFound = errors.New("auth: not found")
	// ErrMissingSecret indicates the signing secret was not configured.
	// Callers should treat this as fatal at startup.
	ErrMissingSecret = errors.New("auth: signing secret is not configured")
)
