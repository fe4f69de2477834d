package oauth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Config holds the OAuth handler configuration
type Config struct {
	// BaseURL is the public base URL of this server (e.g. https://trips.example.com).
	// The issuer, endpoint URLs, the fixed upstream callback and the protected
	// resource identifier (<BaseURL>/mcp) all derive from it.
	BaseURL string

	// Google OAuth credentials and settings
	GoogleAuth GoogleAuthConfig

	// StateKey is the HMAC key used to seal the authorization context carried
	// through Google's state parameter. At least 32 bytes. When empty a random
	// per-process key is generated, which only works for a single replica.
	StateKey []byte

	// CodeTTL is the lifetime of local authorization codes
	// Default: 10 minutes
	CodeTTL time.Duration

	// StateTTL is the lifetime of an encoded authorization context
	// Default: 10 minutes
	StateTTL time.Duration

	// Rate limiting configuration for /oauth/register and /oauth/token
	RateLimit RateLimitConfig

	// Clients is the client registry backend
	// Default: in-memory
	Clients ClientStore

	// Codes is the authorization code vault backend
	// Default: in-memory with a background sweep
	Codes CodeVault

	// TokenValidator resolves bearer tokens to an Identity. REQUIRED.
	TokenValidator TokenValidator

	// OnSignIn is called after every successful bearer validation on the
	// protected endpoint. Errors are logged and otherwise ignored.
	OnSignIn SignInHook

	// Metrics records flow and validation counters (optional)
	Metrics MetricsRecorder

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// HTTPClient is used for all calls to Google (optional)
	// Default: client with a 30 second timeout
	HTTPClient *http.Client
}

// GoogleAuthConfig holds Google OAuth proxy configuration
type GoogleAuthConfig struct {
	// ClientID is the Google OAuth Client ID.
	// Without it /oauth/authorize answers server_error.
	ClientID string

	// ClientSecret is the Google OAuth Client Secret
	ClientSecret string

	// Endpoint overrides Google's authorization and token endpoints.
	// Default: golang.org/x/oauth2/google.Endpoint
	Endpoint oauth2.Endpoint
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Rate is the number of requests per second allowed per IP (0 = no limit)
	Rate float64

	// Burst is the maximum burst size allowed per IP
	// Default: 2x rate, at least 1
	Burst int

	// TrustProxy indicates whether to trust X-Forwarded-For and X-Real-IP headers
	// Only set to true if the server is behind a trusted proxy
	TrustProxy bool
}

// SignInHook is notified when a bearer token resolved to an identity.
type SignInHook func(ctx context.Context, identity *Identity) error

// MetricsRecorder is the subset of the instrumentation metrics used by the
// OAuth handler. A nil recorder disables metrics.
type MetricsRecorder interface {
	RecordOAuthFlow(ctx context.Context, step, result string)
	RecordTokenValidation(ctx context.Context, result string)
}
