package oauth

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestClientRegistry_Register(t *testing.T) {
	registry := NewClientRegistry(NewMemoryClientStore(), nil)
	ctx := context.Background()

	client, creds, err := registry.Register(ctx, &ClientRegistrationRequest{
		RedirectURIs: []string{"https://client.example/cb", "http://localhost:3000/cb"},
		ClientName:   "Chat Host",
		Scope:        "openid email",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if len(client.ClientID) != 32 {
		t.Errorf("client id length = %d, want 32 hex chars", len(client.ClientID))
	}
	if len(creds.ClientSecret) != 64 || len(creds.RegistrationAccessToken) != 64 {
		t.Errorf("secret lengths = %d/%d, want 64", len(creds.ClientSecret), len(creds.RegistrationAccessToken))
	}
	if strings.Contains(client.ClientSecretHash, creds.ClientSecret) {
		t.Error("plaintext secret stored")
	}
	if client.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	stored, err := registry.Lookup(ctx, client.ClientID)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if stored.ClientName != "Chat Host" || len(stored.RedirectURIs) != 2 {
		t.Errorf("Lookup() = %+v", stored)
	}
}

func TestClientRegistry_RegisterGeneratesUniqueIDs(t *testing.T) {
	registry := NewClientRegistry(NewMemoryClientStore(), nil)
	seen := map[string]bool{}

	for i := 0; i < 5; i++ {
		client, _, err := registry.Register(context.Background(), &ClientRegistrationRequest{
			RedirectURIs:            []string{"https://client.example/cb"},
			TokenEndpointAuthMethod: "none",
		})
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if seen[client.ClientID] {
			t.Fatalf("duplicate client id %s", client.ClientID)
		}
		seen[client.ClientID] = true
	}
}

func TestClientRegistry_RegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		req      ClientRegistrationRequest
		wantCode string
	}{
		{"no redirect uris", ClientRegistrationRequest{}, "invalid_redirect_uri"},
		{"relative redirect", ClientRegistrationRequest{RedirectURIs: []string{"/cb"}}, "invalid_redirect_uri"},
		{"fragment", ClientRegistrationRequest{RedirectURIs: []string{"https://client.example/cb#frag"}}, "invalid_redirect_uri"},
		{"data scheme", ClientRegistrationRequest{RedirectURIs: []string{"data:text/html,hi"}}, "invalid_redirect_uri"},
		{"https without host", ClientRegistrationRequest{RedirectURIs: []string{"https:///cb"}}, "invalid_redirect_uri"},
		{"one bad among good", ClientRegistrationRequest{RedirectURIs: []string{"https://ok.example/cb", "http://bad.example/cb"}}, "invalid_redirect_uri"},
		{"auth method", ClientRegistrationRequest{RedirectURIs: []string{"https://ok.example/cb"}, TokenEndpointAuthMethod: "tls_client_auth"}, "invalid_client_metadata"},
		{"grant type", ClientRegistrationRequest{RedirectURIs: []string{"https://ok.example/cb"}, GrantTypes: []string{"implicit"}}, "invalid_client_metadata"},
	}

	registry := NewClientRegistry(NewMemoryClientStore(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := registry.Register(context.Background(), &tt.req)
			var oauthErr *OAuthError
			if !errors.As(err, &oauthErr) {
				t.Fatalf("Register() error = %v, want *OAuthError", err)
			}
			if oauthErr.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", oauthErr.Code, tt.wantCode)
			}
		})
	}
}

func TestValidateRedirectURI_Accepts(t *testing.T) {
	for _, uri := range []string{
		"https://client.example/cb",
		"https://client.example/cb?x=1",
		"http://localhost:8080/cb",
		"http://127.0.0.1/cb",
		"http://[::1]:9000/cb",
		"com.example.app:/oauth2redirect",
		"cursor://anysphere.cursor-mcp/oauth/callback",
	} {
		if err := validateRedirectURI(uri); err != nil {
			t.Errorf("validateRedirectURI(%q) error = %v", uri, err)
		}
	}
}

func TestClientRegistry_Authenticate(t *testing.T) {
	registry := NewClientRegistry(NewMemoryClientStore(), nil)
	ctx := context.Background()

	confidential, creds, err := registry.Register(ctx, &ClientRegistrationRequest{
		RedirectURIs: []string{"https://client.example/cb"},
	})
	if err != nil {
		t.Fatal(err)
	}
	public, _, err := registry.Register(ctx, &ClientRegistrationRequest{
		RedirectURIs:            []string{"https://client.example/cb"},
		TokenEndpointAuthMethod: "none",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := registry.Authenticate(ctx, confidential.ClientID, creds.ClientSecret); err != nil {
		t.Errorf("Authenticate() with correct secret error = %v", err)
	}
	if _, err := registry.Authenticate(ctx, confidential.ClientID, "wrong"); err == nil {
		t.Error("Authenticate() accepted a wrong secret")
	}
	if _, err := registry.Authenticate(ctx, public.ClientID, "anything"); err != nil {
		t.Errorf("Authenticate() for a public client error = %v", err)
	}
	if _, err := registry.Authenticate(ctx, "missing", "x"); !errors.Is(err, ErrClientNotFound) {
		t.Errorf("Authenticate() unknown client error = %v, want ErrClientNotFound", err)
	}
}

func TestRegisteredClient_HasRedirectURI(t *testing.T) {
	client := &RegisteredClient{RedirectURIs: []string{"https://client.example/cb"}}

	if !client.HasRedirectURI("https://client.example/cb") {
		t.Error("exact match rejected")
	}
	for _, uri := range []string{"https://client.example/cb/", "https://client.example/cb?x=1", "https://CLIENT.example/cb", ""} {
		if client.HasRedirectURI(uri) {
			t.Errorf("HasRedirectURI(%q) = true, want exact matching only", uri)
		}
	}
}

func TestMemoryClientStore_Isolation(t *testing.T) {
	store := NewMemoryClientStore()
	ctx := context.Background()

	client := &RegisteredClient{ClientID: "c1", RedirectURIs: []string{"https://client.example/cb"}}
	if err := store.Save(ctx, client); err != nil {
		t.Fatal(err)
	}
	client.RedirectURIs[0] = "https://attacker.example/cb"

	got, err := store.Get(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if got.RedirectURIs[0] != "https://client.example/cb" {
		t.Errorf("stored redirect URIs mutated through caller: %v", got.RedirectURIs)
	}

	got.RedirectURIs[0] = "changed"
	again, _ := store.Get(ctx, "c1")
	if again.RedirectURIs[0] != "https://client.example/cb" {
		t.Errorf("stored redirect URIs mutated through a returned copy: %v", again.RedirectURIs)
	}

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrClientNotFound) {
		t.Errorf("Get() unknown error = %v, want ErrClientNotFound", err)
	}
}
