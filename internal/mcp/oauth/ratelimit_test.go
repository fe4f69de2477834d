package oauth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(10, 10, false, 5*time.Minute, slog.Default())
	defer rl.Stop()

	// First 10 requests should be allowed (burst)
	for i := 0; i < 10; i++ {
		if !rl.Allow("192.168.1.1") {
			t.Errorf("Request %d should be allowed (within burst)", i+1)
		}
	}

	if rl.Allow("192.168.1.1") {
		t.Error("Request 11 should be denied (burst exhausted)")
	}

	time.Sleep(150 * time.Millisecond)

	if !rl.Allow("192.168.1.1") {
		t.Error("Request should be allowed after waiting")
	}
}

func TestRateLimiter_MultipleIPs(t *testing.T) {
	rl := NewRateLimiter(10, 5, false, 5*time.Minute, slog.Default())
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		if !rl.Allow("192.168.1.1") {
			t.Errorf("Request %d for IP1 should be allowed", i+1)
		}
	}
	if rl.Allow("192.168.1.1") {
		t.Error("IP1 should be rate limited")
	}

	// Second IP should still have full burst available
	for i := 0; i < 5; i++ {
		if !rl.Allow("192.168.1.2") {
			t.Errorf("Request %d for IP2 should be allowed", i+1)
		}
	}
}

func TestRateLimiter_MinimumBurst(t *testing.T) {
	rl := NewRateLimiter(1, 0, false, time.Minute, nil)
	defer rl.Stop()

	if rl.burst != 1 {
		t.Errorf("burst = %d, want 1", rl.burst)
	}
	if !rl.Allow("10.0.0.1") {
		t.Error("first request should be allowed")
	}
}

func TestRateLimitMiddleware_NoRateLimiter(t *testing.T) {
	h := newTestHandler(t, testConfig("https://google.invalid"))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	wrapped := h.RateLimitMiddleware(next)

	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodPost, PathToken, nil))
		if w.Code != http.StatusTeapot {
			t.Fatalf("request %d status = %d, want %d", i, w.Code, http.StatusTeapot)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{"remote addr", "192.168.1.1:12345", nil, false, "192.168.1.1"},
		{"ipv6 remote addr", "[2001:db8::1]:443", nil, false, "2001:db8::1"},
		{"remote addr without port", "192.168.1.1", nil, false, "192.168.1.1"},
		{"forwarded ignored without trust", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.7"}, false, "10.0.0.1"},
		{"forwarded first hop", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, true, "203.0.113.7"},
		{"real ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "198.51.100.4"}, true, "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
