package oauth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/tripbooker/internal/logging"
)

// AuthorizationCode is the record behind a locally minted authorization code.
type AuthorizationCode struct {
	// UpstreamCode is Google's authorization code, exchanged at /oauth/token
	UpstreamCode string `json:"upstream_code"`

	// ClientID and RedirectURI are the original client's request context
	ClientID    string `json:"client_id"`
	RedirectURI string `json:"redirect_uri"`

	// Scope requested at /oauth/authorize
	Scope string `json:"scope,omitempty"`

	// PKCE parameters, empty when the client did not send a challenge
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the code is past its expiry at now.
func (c *AuthorizationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// CodeVault stores local authorization codes.
//
// Consume must be an atomic compare-and-remove: of any number of concurrent
// Consume calls for one code, at most one returns the record. Missing,
// consumed and expired codes all yield ErrCodeNotFound.
type CodeVault interface {
	Put(ctx context.Context, code string, record *AuthorizationCode) error
	Consume(ctx context.Context, code string) (*AuthorizationCode, error)
}

// MemoryCodeVault keeps codes in process memory and sweeps expired ones on a ticker.
type MemoryCodeVault struct {
	mu     sync.Mutex
	codes  map[string]*AuthorizationCode
	logger *slog.Logger
	now    func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryCodeVault creates a vault and starts its sweep goroutine.
// A zero interval uses DefaultCleanupInterval. Call Stop to end the sweep.
func NewMemoryCodeVault(interval time.Duration, logger *slog.Logger) *MemoryCodeVault {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	v := &MemoryCodeVault{
		codes:  make(map[string]*AuthorizationCode),
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go v.sweep(interval)
	return v
}

// Put stores record under code
func (v *MemoryCodeVault) Put(_ context.Context, code string, record *AuthorizationCode) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	stored := *record
	v.codes[code] = &stored
	v.logger.Debug("Saved authorization code",
		slog.String("code_prefix", logging.CodePrefix(code)),
		logging.ClientID(record.ClientID),
		slog.Time("expires_at", record.ExpiresAt))
	return nil
}

// Consume removes and returns the record for code. The lookup and delete
// happen under one lock, so a code can be consumed once.
func (v *MemoryCodeVault) Consume(_ context.Context, code string) (*AuthorizationCode, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	record, ok := v.codes[code]
	if !ok {
		return nil, ErrCodeNotFound
	}
	delete(v.codes, code)

	if record.Expired(v.now()) {
		return nil, ErrCodeNotFound
	}

	v.logger.Debug("Authorization code consumed",
		slog.String("code_prefix", logging.CodePrefix(code)),
		logging.ClientID(record.ClientID))
	return record, nil
}

// Len returns the number of stored codes, including expired ones not yet swept
func (v *MemoryCodeVault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.codes)
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (v *MemoryCodeVault) Stop() {
	v.stopOnce.Do(func() { close(v.stop) })
}

func (v *MemoryCodeVault) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-v.stop:
			return
		case <-ticker.C:
			v.removeExpired()
		}
	}
}

// removeExpired drops every code whose expiry has passed
func (v *MemoryCodeVault) removeExpired() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	removed := 0
	for code, record := range v.codes {
		if record.Expired(now) {
			delete(v.codes, code)
			removed++
		}
	}

	if removed > 0 {
		v.logger.Debug("Removed expired authorization codes", slog.Int("codes_deleted", removed))
	}
	return removed
}
