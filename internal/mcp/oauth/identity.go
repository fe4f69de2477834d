package oauth

import (
	"context"
	"time"
)

// Identity is the verified caller of a protected request.
type Identity struct {
	// Email is the verified Google account email
	Email string

	// Subject is Google's stable user id
	Subject string

	// Scope is the normalized scope granted to the access token
	Scope string

	// ExpiresAt is when the access token stops being valid
	ExpiresAt time.Time
}

// TokenValidator resolves a bearer token to the identity it was issued for.
// Implementations return an error for unknown, revoked, or expired tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken string) (*Identity, error)
}

type contextKey string

const identityContextKey contextKey = "oauth_identity"

// ContextWithIdentity returns a copy of ctx carrying identity.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the identity placed by the resource guard.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
