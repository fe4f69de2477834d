package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// echoIdentity writes the caller's email, or "anonymous", plus the body it received
func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		who := "anonymous"
		if identity, ok := IdentityFromContext(r.Context()); ok {
			who = identity.Email
		}
		fmt.Fprintf(w, "%s|%s", who, body)
	})
}

func guardedHandler(t *testing.T, identities map[string]*Identity, onSignIn SignInHook) (*Handler, http.Handler) {
	t.Helper()
	config := testConfig("https://google.invalid")
	config.TokenValidator = &fakeValidator{identities: identities}
	config.OnSignIn = onSignIn
	h := newTestHandler(t, config)
	return h, h.ResourceGuard(echoIdentity())
}

func TestResourceGuard_DiscoveryBypass(t *testing.T) {
	_, guarded := guardedHandler(t, nil, nil)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	w := httptest.NewRecorder()
	guarded.ServeHTTP(w, httptest.NewRequest(http.MethodPost, PathMCP, strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got, want := w.Body.String(), "anonymous|"+body; got != want {
		t.Errorf("downstream saw %q, want %q", got, want)
	}
}

func TestResourceGuard_RequiresToken(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
	}{
		{"tools/call", http.MethodPost, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"search_destination"}}`},
		{"initialize", http.MethodPost, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`},
		{"batch containing tools/list", http.MethodPost, `[{"jsonrpc":"2.0","id":1,"method":"tools/list"}]`},
		{"malformed body", http.MethodPost, `{"method":`},
		{"GET stream", http.MethodGet, ""},
	}

	_, guarded := guardedHandler(t, nil, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			guarded.ServeHTTP(w, httptest.NewRequest(tt.method, PathMCP, strings.NewReader(tt.body)))

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			challenge := w.Header().Get("WWW-Authenticate")
			for _, part := range []string{
				`Bearer realm="http://localhost:8080/mcp"`,
				`error="invalid_token"`,
				`resource_metadata="http://localhost:8080/.well-known/oauth-protected-resource"`,
			} {
				if !strings.Contains(challenge, part) {
					t.Errorf("WWW-Authenticate = %q, missing %s", challenge, part)
				}
			}
			if got := decodeError(t, w.Body).Error; got != "invalid_token" {
				t.Errorf("error = %q, want invalid_token", got)
			}
		})
	}
}

func TestResourceGuard_Tokens(t *testing.T) {
	identities := map[string]*Identity{
		"good":    {Email: "alice@example.com", Subject: "1001", Scope: "openid email", ExpiresAt: time.Now().Add(time.Hour)},
		"expired": {Email: "bob@example.com", Subject: "1002", ExpiresAt: time.Now().Add(-time.Minute)},
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantWho    string
	}{
		{"valid token", "Bearer good", http.StatusOK, "alice@example.com"},
		{"lowercase scheme", "bearer good", http.StatusOK, "alice@example.com"},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, ""},
		{"expired token", "Bearer expired", http.StatusUnauthorized, ""},
		{"basic scheme", "Basic Zm9vOmJhcg==", http.StatusUnauthorized, ""},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, ""},
	}

	metrics := newFakeMetrics()
	config := testConfig("https://google.invalid")
	config.TokenValidator = &fakeValidator{identities: identities}
	config.Metrics = metrics
	h := newTestHandler(t, config)
	guarded := h.ResourceGuard(echoIdentity())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, PathMCP, strings.NewReader(`{"method":"tools/call"}`))
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()
			guarded.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantWho != "" && !strings.HasPrefix(w.Body.String(), tt.wantWho+"|") {
				t.Errorf("downstream identity = %q, want %s", w.Body.String(), tt.wantWho)
			}
		})
	}

	if got := metrics.validation("valid"); got != 2 {
		t.Errorf("valid validations = %d, want 2", got)
	}
	if got := metrics.validation("expired"); got != 1 {
		t.Errorf("expired validations = %d, want 1", got)
	}
}

func TestResourceGuard_SignInHook(t *testing.T) {
	identities := map[string]*Identity{"good": {Email: "alice@example.com", Subject: "1001"}}

	t.Run("receives identity", func(t *testing.T) {
		var got *Identity
		_, guarded := guardedHandler(t, identities, func(ctx context.Context, identity *Identity) error {
			got = identity
			if _, ok := IdentityFromContext(ctx); !ok {
				t.Error("hook context has no identity")
			}
			return nil
		})

		req := httptest.NewRequest(http.MethodPost, PathMCP, strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer good")
		guarded.ServeHTTP(httptest.NewRecorder(), req)

		if got == nil || got.Email != "alice@example.com" {
			t.Errorf("hook identity = %+v", got)
		}
	})

	t.Run("failure does not block the request", func(t *testing.T) {
		_, guarded := guardedHandler(t, identities, func(context.Context, *Identity) error {
			return errors.New("database unavailable")
		})

		req := httptest.NewRequest(http.MethodPost, PathMCP, strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer good")
		w := httptest.NewRecorder()
		guarded.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if !strings.HasPrefix(w.Body.String(), "alice@example.com|") {
			t.Errorf("downstream identity = %q", w.Body.String())
		}
	})
}

func TestResourceGuard_NoIdentityLeakAcrossRequests(t *testing.T) {
	identities := map[string]*Identity{}
	for i := 0; i < 20; i++ {
		identities[fmt.Sprintf("token-%d", i)] = &Identity{Email: fmt.Sprintf("user%d@example.com", i)}
	}

	var hooks atomic.Int32
	_, guarded := guardedHandler(t, identities, func(context.Context, *Identity) error {
		hooks.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				req := httptest.NewRequest(http.MethodPost, PathMCP, strings.NewReader(`{}`))
				req.Header.Set("Authorization", fmt.Sprintf("Bearer token-%d", i))
				w := httptest.NewRecorder()
				guarded.ServeHTTP(w, req)

				want := fmt.Sprintf("user%d@example.com|", i)
				if !strings.HasPrefix(w.Body.String(), want) {
					t.Errorf("request with token-%d saw %q", i, w.Body.String())
				}
			}
		}(i)
	}
	wg.Wait()

	if got := hooks.Load(); got != 200 {
		t.Errorf("sign-in hook calls = %d, want 200", got)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"BEARER abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, ok := bearerToken(req)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = %q, %v, want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
