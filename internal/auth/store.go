package auth

import (
	"context"
	"time"
)

// RefreshTokenStore manages refresh token lifecycle. Implementations
// must make RevokeIfActive a single atomic conditional update: under
// concurrent rotation of the same token exactly one caller wins.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	Find(ctx context.Context, id string) (*RefreshToken, error)

	// RevokeIfActive marks the token revoked and records its
	// replacement, but only if it is not already revoked. Returns
	// ErrInvalidRefreshToken when the token is unknown or was revoked
	// first by a concurrent rotation.
	RevokeIfActive(ctx context.Context, id, replacedBy string, at time.Time) error

	// RevokeAllForUser revokes every active token of the user and
	// returns how many were affected.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error)

	// DeleteExpired removes tokens that expired before the cutoff.
	// Retention policy, invoked from maintenance paths only.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
