package oauth

import "time"

// Lifetimes and intervals
const (
	// DefaultAuthorizationCodeTTL is how long a local authorization code is valid (10 minutes)
	DefaultAuthorizationCodeTTL = 10 * time.Minute

	// DefaultStateTTL bounds the time between /oauth/authorize and the upstream callback
	DefaultStateTTL = 10 * time.Minute

	// DefaultCleanupInterval is how often the in-memory code vault sweeps expired codes
	DefaultCleanupInterval = 1 * time.Minute

	// DefaultUpstreamTimeout is the HTTP client timeout for calls to Google
	DefaultUpstreamTimeout = 30 * time.Second

	// DefaultRateLimitCleanupInterval is how often idle per-IP limiters are dropped
	DefaultRateLimitCleanupInterval = 5 * time.Minute

	// InactiveLimiterCleanupWindow is the idle time after which a per-IP limiter is dropped
	InactiveLimiterCleanupWindow = 10 * time.Minute

	// MetadataCacheMaxAge is the Cache-Control max-age of the discovery documents
	MetadataCacheMaxAge = time.Hour
)

// Request and token sizes
const (
	// maxRequestBodySize caps bodies read by the OAuth endpoints and the resource guard
	maxRequestBodySize = 1 << 20

	// clientIDBytes is the entropy of generated client ids (hex encoded)
	clientIDBytes = 16

	// clientSecretBytes is the entropy of generated client secrets and registration tokens (hex encoded)
	clientSecretBytes = 32

	// authorizationCodeBytes is the entropy of local authorization codes (base64url encoded)
	authorizationCodeBytes = 32

	// minStateKeyLength is the shortest accepted HMAC key for the state codec
	minStateKeyLength = 32
)

const (
	// DefaultScope is requested upstream and returned when Google omits a scope
	DefaultScope = "openid email profile"

	// DefaultTokenEndpointAuthMethod is the default client authentication method
	DefaultTokenEndpointAuthMethod = "client_secret_basic"

	// GoogleScopePrefix is stripped from upstream scopes during normalization
	GoogleScopePrefix = "https://www.googleapis.com/auth/"

	// bearerPrefix is the Authorization header scheme accepted by the resource guard
	bearerPrefix = "Bearer "
)

// Endpoint paths served by the Handler
const (
	PathAuthorizationServerMetadata = "/.well-known/oauth-authorization-server"
	PathProtectedResourceMetadata   = "/.well-known/oauth-protected-resource"
	PathRegister                    = "/oauth/register"
	PathAuthorize                   = "/oauth/authorize"
	PathCallback                    = "/oauth/callback"
	PathToken                       = "/oauth/token"
	PathMCP                         = "/mcp"
)

// Grant, response and client authentication types
var (
	// DefaultGrantTypes are applied when a registration omits grant_types
	DefaultGrantTypes = []string{"authorization_code", "refresh_token"}

	// DefaultResponseTypes are applied when a registration omits response_types
	DefaultResponseTypes = []string{"code"}

	// SupportedCodeChallengeMethods are the PKCE methods advertised and verified
	SupportedCodeChallengeMethods = []string{"S256", "plain"}

	// SupportedTokenAuthMethods are the accepted token endpoint auth methods
	SupportedTokenAuthMethods = []string{"client_secret_basic", "client_secret_post", "none"}

	// SupportedScopes are the scopes advertised in the discovery documents
	SupportedScopes = []string{"openid", "email", "profile"}

	// LoopbackAddresses lists hosts allowed to use plain http
	LoopbackAddresses = []string{"localhost", "127.0.0.1", "::1", "[::1]"}

	// DangerousSchemes are never accepted as redirect URI schemes
	DangerousSchemes = []string{"javascript", "data", "file", "vbscript", "about"}
)
