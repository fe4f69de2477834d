package oauth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	oauth2google "golang.org/x/oauth2/google"

	"github.com/teemow/tripbooker/internal/logging"
)

// Handler implements the OAuth endpoints of the MCP server.
//
// It is an authorization server towards MCP clients that proxies the actual
// login to Google, and a resource server that guards /mcp with Google access
// tokens.
type Handler struct {
	config       *Config
	baseURL      string
	clients      *ClientRegistry
	codes        CodeVault
	memoryCodes  *MemoryCodeVault // set when the default vault is used, for Close
	states       *StateCodec
	validator    TokenValidator
	googleConfig *oauth2.Config
	httpClient   *http.Client
	rateLimiter  *RateLimiter
	audit        *AuditLogger
	metrics      MetricsRecorder
	onSignIn     SignInHook
	logger       *slog.Logger
	now          func() time.Time
}

// NewHandler creates a new OAuth handler
func NewHandler(config *Config) (*Handler, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if err := validateBaseURL(config.BaseURL); err != nil {
		return nil, err
	}
	if config.TokenValidator == nil {
		return nil, fmt.Errorf("token validator is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithComponent(logger, "oauth")

	baseURL := strings.TrimRight(config.BaseURL, "/")

	if config.CodeTTL <= 0 {
		config.CodeTTL = DefaultAuthorizationCodeTTL
	}

	stateKey := config.StateKey
	if len(stateKey) == 0 {
		key, err := GenerateStateKey()
		if err != nil {
			return nil, err
		}
		stateKey = key
		logger.Warn("No OAuth state key configured, using a random per-process key",
			"recommendation", "Set OAUTH_STATE_KEY when running more than one replica")
	}
	states, err := NewStateCodec(stateKey, config.StateTTL)
	if err != nil {
		return nil, err
	}

	endpoint := config.GoogleAuth.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = oauth2google.Endpoint
	}
	googleConfig := &oauth2.Config{
		ClientID:     config.GoogleAuth.ClientID,
		ClientSecret: config.GoogleAuth.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  baseURL + PathCallback,
	}
	if googleConfig.ClientID == "" {
		logger.Warn("Google OAuth client ID not configured, /oauth/authorize will answer server_error")
	}

	clientStore := config.Clients
	if clientStore == nil {
		clientStore = NewMemoryClientStore()
	}

	var memoryCodes *MemoryCodeVault
	codes := config.Codes
	if codes == nil {
		memoryCodes = NewMemoryCodeVault(DefaultCleanupInterval, logger)
		codes = memoryCodes
	}

	var rateLimiter *RateLimiter
	if config.RateLimit.Rate > 0 {
		burst := config.RateLimit.Burst
		if burst == 0 {
			burst = int(config.RateLimit.Rate * 2)
		}
		rateLimiter = NewRateLimiter(config.RateLimit.Rate, burst, config.RateLimit.TrustProxy, DefaultRateLimitCleanupInterval, logger)
		logger.Info("IP-based rate limiting enabled",
			"rate", config.RateLimit.Rate,
			"burst", burst)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultUpstreamTimeout}
	}

	return &Handler{
		config:       config,
		baseURL:      baseURL,
		clients:      NewClientRegistry(clientStore, logger),
		codes:        codes,
		memoryCodes:  memoryCodes,
		states:       states,
		validator:    config.TokenValidator,
		googleConfig: googleConfig,
		httpClient:   httpClient,
		rateLimiter:  rateLimiter,
		audit:        NewAuditLogger(logger),
		metrics:      config.Metrics,
		onSignIn:     config.OnSignIn,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Close stops background goroutines owned by the handler
func (h *Handler) Close() {
	if h.memoryCodes != nil {
		h.memoryCodes.Stop()
	}
	if h.rateLimiter != nil {
		h.rateLimiter.Stop()
	}
}

// BaseURL returns the public base URL without a trailing slash
func (h *Handler) BaseURL() string {
	return h.baseURL
}

// ResourceURL is the protected resource identifier (<base>/mcp)
func (h *Handler) ResourceURL() string {
	return h.baseURL + PathMCP
}

// ProtectedResourceMetadataURL is advertised in 401 challenges
func (h *Handler) ProtectedResourceMetadataURL() string {
	return h.baseURL + PathProtectedResourceMetadata
}

// ActiveCodeCounter returns a function reporting the number of live codes in
// the in-memory vault, or nil when an external vault is configured.
func (h *Handler) ActiveCodeCounter() func() int {
	if h.memoryCodes == nil {
		return nil
	}
	return h.memoryCodes.Len
}

// Mount registers the OAuth and discovery endpoints on mux.
// The protected endpoint itself is mounted by the caller behind ResourceGuard.
func (h *Handler) Mount(mux *http.ServeMux) {
	wrap := func(f http.HandlerFunc) http.Handler {
		return h.CORSMiddleware(f)
	}
	limited := func(f http.HandlerFunc) http.Handler {
		return h.CORSMiddleware(h.RateLimitMiddleware(f))
	}

	mux.Handle(PathAuthorizationServerMetadata, wrap(h.ServeAuthorizationServerMetadata))
	mux.Handle(PathProtectedResourceMetadata, wrap(h.ServeProtectedResourceMetadata))
	mux.Handle(PathProtectedResourceMetadata+PathMCP, wrap(h.ServeProtectedResourceMetadata))
	mux.Handle(PathRegister, limited(h.ServeClientRegistration))
	mux.Handle(PathRegister+"/{client_id}", wrap(h.ServeClientLookup))
	mux.Handle(PathAuthorize, wrap(h.ServeAuthorization))
	mux.Handle(PathCallback, wrap(h.ServeCallback))
	mux.Handle(PathToken, limited(h.ServeToken))
}

// CORSMiddleware allows any origin and answers preflight requests with 204
func (h *Handler) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, mcp-protocol-version, mcp-session-id")
	w.Header().Set("Access-Control-Expose-Headers", "WWW-Authenticate, mcp-session-id")
}

// setSecurityHeaders sets security headers on JSON responses
func (h *Handler) setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
	if strings.HasPrefix(h.baseURL, "https://") {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}
}

// writeJSON encodes v with the given status
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	h.setSecurityHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", logging.Err(err))
	}
}

// writeError is a helper to write OAuth error responses
func (h *Handler) writeError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	h.logger.Debug("OAuth error", "code", errorCode, "description", description, "status", statusCode)
	h.writeJSON(w, statusCode, ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}

func (h *Handler) writeOAuthError(w http.ResponseWriter, err *OAuthError) {
	h.writeError(w, err.Code, err.Description, err.Status)
}

func (h *Handler) recordFlow(r *http.Request, step, result string) {
	if h.metrics != nil {
		h.metrics.RecordOAuthFlow(r.Context(), step, result)
	}
}

// validateBaseURL requires https except for loopback development hosts
func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !isLoopback(u.Hostname()) {
			return fmt.Errorf("base URL must use HTTPS unless it targets a loopback address (got %s)", raw)
		}
	default:
		return fmt.Errorf("invalid base URL scheme %q: must be http (loopback only) or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL %q has no host", raw)
	}
	return nil
}
