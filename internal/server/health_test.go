package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teemow/tripbooker/internal/store"
)

type unreachableStore struct {
	store.Store
}

func (unreachableStore) Ping(context.Context) error { return errors.New("connection refused") }
func (unreachableStore) Close() error { return nil }

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	return resp
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil)
	w := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := decodeHealth(t, w).Status; got != healthStatusOK {
		t.Errorf("status = %q, want %q", got, healthStatusOK)
	}
}

func TestHealthChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		store      store.Store
		ready      bool
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "ready",
			store:      store.NewMemoryStore(),
			ready:      true,
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"ready": healthStatusOK, "shutdown": healthStatusOK, "store": healthStatusOK},
		},
		{
			name:       "not ready",
			store:      store.NewMemoryStore(),
			ready:      false,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"ready": healthStatusNotReady},
		},
		{
			name:       "store down",
			store:      unreachableStore{},
			ready:      true,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"store": healthStatusUnavailable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewServerContext(context.Background(), tt.store, nil, nil, nil)
			defer func() { _ = sc.Shutdown() }()

			h := NewHealthChecker(sc)
			h.SetReady(tt.ready)

			w := httptest.NewRecorder()
			h.ReadinessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			resp := decodeHealth(t, w)
			for k, want := range tt.wantChecks {
				if resp.Checks[k] != want {
					t.Errorf("checks[%s] = %q, want %q", k, resp.Checks[k], want)
				}
			}
		})
	}
}

func TestHealthChecker_Detailed(t *testing.T) {
	sc := NewServerContext(context.Background(), unreachableStore{}, nil, nil, nil)
	defer func() { _ = sc.Shutdown() }()

	w := httptest.NewRecorder()
	NewHealthChecker(sc).DetailedHealthHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	var resp DetailedHealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Checks["store"] != healthStatusUnavailable || resp.Uptime == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHealthChecker_ShuttingDown(t *testing.T) {
	sc := NewServerContext(context.Background(), store.NewMemoryStore(), nil, nil, nil)
	h := NewHealthChecker(sc)
	if err := sc.Shutdown(); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if got := decodeHealth(t, w).Checks["shutdown"]; got != healthStatusShuttingDown {
		t.Errorf("checks[shutdown] = %q, want %q", got, healthStatusShuttingDown)
	}

	w = httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	var resp DetailedHealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != healthStatusShuttingDown {
		t.Errorf("status = %q, want %q", resp.Status, healthStatusShuttingDown)
	}
	if resp.Checks["booking"] != healthStatusDisabled {
		t.Errorf("checks[booking] = %q, want %q", resp.Checks["booking"], healthStatusDisabled)
	}
}
