package auth

import (
	"context"
	"strings"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID   string
	Username string
}

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &p)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil || strings.TrimSpace(v.UserID) == "" {
		return Principal{}, false
	}
	return *v, true
}
