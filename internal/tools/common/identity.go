package common

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/tripbooker/internal/mcp/oauth"
)

// ErrTextNotAuthenticated is the tool error returned to callers without a
// verified identity.
const ErrTextNotAuthenticated = "User not authenticated."

// UserEmail returns the verified caller's email from the request context.
// The resource guard places the identity there after validating the bearer
// token.
func UserEmail(ctx context.Context) (string, bool) {
	identity, ok := oauth.IdentityFromContext(ctx)
	if !ok || identity.Email == "" {
		return "", false
	}
	return identity.Email, true
}

// RequireUser returns the caller's email, or a tool error result when the
// request carries no identity.
//
//	email, errResult := common.RequireUser(ctx)
//	if errResult != nil {
//		return errResult, nil
//	}
func RequireUser(ctx context.Context) (string, *mcp.CallToolResult) {
	email, ok := UserEmail(ctx)
	if !ok {
		return "", mcp.NewToolResultError(ErrTextNotAuthenticated)
	}
	return email, nil
}
