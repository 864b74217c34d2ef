package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshToken is a persisted rotating refresh credential. Records are
// never deleted on rotation; the revoked flag plus ReplacedBy keep an
// audit trail of each rotation lineage.
type RefreshToken struct {
	ID         string
	UserID     string
	Username   string
	TokenHash  string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Revoked    bool
	RevokedAt  *time.Time
	ReplacedBy string
}

// Active reports whether the token is still honored at the given time.
// Expiry is checked here rather than written back to the store.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// Claims are the verified contents of an access token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Session is the result of a successful login or refresh.
type Session struct {
	UserID           string
	Username         string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
