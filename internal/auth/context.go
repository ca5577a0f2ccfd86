package auth

import (
	"context"

	"github.com/meridianhq/portal/internal/identity"
)

type contextKey string

const identityContextKey contextKey = "identity"

// WithIdentity stores the authenticated identity on the context
func WithIdentity(ctx context.Context, ident *identity.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, ident)
}

// IdentityFromContext retrieves the authenticated identity, if any
func IdentityFromContext(ctx context.Context) (*identity.Identity, bool) {
	ident, ok := ctx.Value(identityContextKey).(*identity.Identity)
	return ident, ok && ident != nil
}
