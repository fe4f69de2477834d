package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tripbooker/internal/mcp/oauth"
	"github.com/teemow/tripbooker/internal/server"
	"github.com/teemow/tripbooker/internal/store"
)

// ProfileURI is the URI of the current user's profile resource
const ProfileURI = "user://profile"

// RegisterUserResources registers the caller-scoped user resources
func RegisterUserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("MCP server and server context are required")
	}

	profileResource := mcp.NewResource(
		ProfileURI,
		"Current User Profile",
		mcp.WithResourceDescription("The signed-in Google account and its booking account, if one exists"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleUserProfile(ctx, request, sc)
	})

	return nil
}

// handleUserProfile returns the verified identity merged with the stored user
func handleUserProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	identity, ok := oauth.IdentityFromContext(ctx)
	if !ok || identity.Email == "" {
		return nil, fmt.Errorf("user not authenticated")
	}

	profileData := map[string]interface{}{
		"email":      identity.Email,
		"registered": false,
	}
	if identity.Scope != "" {
		profileData["scope"] = identity.Scope
	}
	if !identity.ExpiresAt.IsZero() {
		profileData["tokenExpiresAt"] = identity.ExpiresAt.UTC().Format(time.RFC3339)
	}

	user, err := sc.Store().GetUserByEmail(ctx, identity.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to get user: %w", err)
	default:
		profileData["registered"] = true
		profileData["userId"] = user.ID.String()
		profileData["memberSince"] = user.CreatedAt.UTC().Format(time.RFC3339)
		if user.Name != "" {
			profileData["name"] = user.Name
		}
	}

	jsonData, err := json.MarshalIndent(profileData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
