package resources

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/tripbooker/internal/mcp/oauth"
	"github.com/teemow/tripbooker/internal/server"
	"github.com/teemow/tripbooker/internal/store"
)

func readProfile(t *testing.T, ctx context.Context, sc *server.ServerContext) map[string]interface{} {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = ProfileURI

	contents, err := handleUserProfile(ctx, req, sc)
	if err != nil {
		t.Fatalf("handleUserProfile() error = %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	text, ok := contents[0].(*mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents type = %T, want *mcp.TextResourceContents", contents[0])
	}
	if text.MIMEType != "application/json" || text.URI != ProfileURI {
		t.Errorf("contents = %s %s", text.URI, text.MIMEType)
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(text.Text), &data); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return data
}

func TestHandleUserProfile(t *testing.T) {
	st := store.NewMemoryStore()
	sc := server.NewServerContext(context.Background(), st, nil, nil, nil)
	defer func() { _ = sc.Shutdown() }()

	expires := time.Date(2026, 10, 15, 13, 0, 0, 0, time.UTC)
	ctx := oauth.ContextWithIdentity(context.Background(), &oauth.Identity{
		Email:     "traveler@example.com",
		Scope:     "openid email",
		ExpiresAt: expires,
	})

	data := readProfile(t, ctx, sc)
	if data["registered"] != false {
		t.Errorf("registered = %v, want false before the first sign-in", data["registered"])
	}
	if data["tokenExpiresAt"] != "2026-10-15T13:00:00Z" {
		t.Errorf("tokenExpiresAt = %v", data["tokenExpiresAt"])
	}

	user, err := st.EnsureUser(context.Background(), "traveler@example.com", "Tra Veler")
	if err != nil {
		t.Fatal(err)
	}

	data = readProfile(t, ctx, sc)
	if data["registered"] != true {
		t.Errorf("registered = %v, want true", data["registered"])
	}
	if data["userId"] != user.ID.String() {
		t.Errorf("userId = %v, want %s", data["userId"], user.ID)
	}
	if data["name"] != "Tra Veler" {
		t.Errorf("name = %v", data["name"])
	}
	if data["scope"] != "openid email" {
		t.Errorf("scope = %v", data["scope"])
	}
}

func TestHandleUserProfile_Unauthenticated(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil, nil, nil, nil)
	defer func() { _ = sc.Shutdown() }()

	req := mcp.ReadResourceRequest{}
	req.Params.URI = ProfileURI
	if _, err := handleUserProfile(context.Background(), req, sc); err == nil {
		t.Error("expected an error without an identity")
	}
}

func TestRegisterUserResources_Validation(t *testing.T) {
	if err := RegisterUserResources(nil, nil); err == nil {
		t.Error("expected an error")
	}
}
