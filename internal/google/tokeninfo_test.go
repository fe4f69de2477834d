package google

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newFakeTokenInfo answers tokeninfo calls from a table of access tokens
func newFakeTokenInfo(t *testing.T, tokens map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := tokens[r.FormValue("access_token")]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_token","error_description":"Invalid Value"}`)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestValidator(t *testing.T, srv *httptest.Server, audience string) *TokenInfoValidator {
	t.Helper()
	v, err := NewTokenInfoValidator(context.Background(), TokenInfoConfig{
		HTTPClient: srv.Client(),
		Endpoint:   srv.URL + "/",
		Audience:   audience,
	})
	if err != nil {
		t.Fatalf("NewTokenInfoValidator() error = %v", err)
	}
	return v
}

func TestTokenInfoValidator_ValidateToken(t *testing.T) {
	srv := newFakeTokenInfo(t, map[string]string{
		"good": `{
			"issued_to": "client-123.apps.googleusercontent.com",
			"audience": "client-123.apps.googleusercontent.com",
			"user_id": "1001",
			"scope": "https://www.googleapis.com/auth/userinfo.email openid",
			"expires_in": 3000,
			"email": "alice@example.com",
			"verified_email": true
		}`,
	})
	v := newTestValidator(t, srv, "client-123.apps.googleusercontent.com")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	v.now = func() time.Time { return now }

	identity, err := v.ValidateToken(context.Background(), "good")
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if identity.Email != "alice@example.com" {
		t.Errorf("Email = %q", identity.Email)
	}
	if identity.Subject != "1001" {
		t.Errorf("Subject = %q", identity.Subject)
	}
	if identity.Scope != "email openid" {
		t.Errorf("Scope = %q, want normalized scope", identity.Scope)
	}
	if want := now.Add(3000 * time.Second); !identity.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", identity.ExpiresAt, want)
	}
}

func TestTokenInfoValidator_Rejections(t *testing.T) {
	srv := newFakeTokenInfo(t, map[string]string{
		"expired":   `{"audience":"client-123","user_id":"1","email":"a@example.com","expires_in":0}`,
		"other-aud": `{"audience":"someone-else","issued_to":"someone-else","user_id":"1","email":"a@example.com","expires_in":100}`,
		"no-email":  `{"audience":"client-123","user_id":"1","expires_in":100}`,
		"negative":  `{"audience":"client-123","user_id":"1","email":"a@example.com","expires_in":-5}`,
	})
	v := newTestValidator(t, srv, "client-123")

	tests := []struct {
		token string
		want  error
	}{
		{"unknown", ErrTokenRejected},
		{"expired", ErrTokenExpired},
		{"negative", ErrTokenExpired},
		{"other-aud", ErrAudienceMismatch},
		{"no-email", ErrNoEmail},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			identity, err := v.ValidateToken(context.Background(), tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateToken() error = %v, want %v", err, tt.want)
			}
			if identity != nil {
				t.Errorf("ValidateToken() returned identity %+v on error", identity)
			}
		})
	}
}

func TestTokenInfoValidator_NoAudienceCheck(t *testing.T) {
	srv := newFakeTokenInfo(t, map[string]string{
		"good": `{"audience":"anything","user_id":"1","email":"a@example.com","expires_in":100}`,
	})
	v := newTestValidator(t, srv, "")

	if _, err := v.ValidateToken(context.Background(), "good"); err != nil {
		t.Errorf("ValidateToken() error = %v", err)
	}
}

func TestTokenInfoValidator_Unreachable(t *testing.T) {
	srv := newFakeTokenInfo(t, nil)
	v := newTestValidator(t, srv, "")
	srv.Close()

	_, err := v.ValidateToken(context.Background(), "good")
	if err == nil {
		t.Fatal("ValidateToken() succeeded against a closed server")
	}
	if errors.Is(err, ErrTokenRejected) {
		t.Errorf("transport failure reported as rejection: %v", err)
	}
}

func TestEndpoint(t *testing.T) {
	if got := Endpoint("").TokenURL; got != "https://oauth2.googleapis.com/token" {
		t.Errorf("default TokenURL = %q", got)
	}
	custom := Endpoint("http://127.0.0.1:9999")
	if custom.AuthURL != "http://127.0.0.1:9999/auth" || custom.TokenURL != "http://127.0.0.1:9999/token" {
		t.Errorf("custom endpoint = %+v", custom)
	}
}
