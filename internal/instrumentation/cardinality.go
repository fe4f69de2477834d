package instrumentation

import "strings"

// Cardinality helpers. Label values derived from user input or ids must go
// through one of these before they reach a metric.

// ExtractUserDomain returns the domain of an email, or "unknown".
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

// knownPaths are reported as-is; everything else collapses.
var knownPaths = map[string]bool{
	"/mcp":             true,
	"/oauth/register":  true,
	"/oauth/authorize": true,
	"/oauth/callback":  true,
	"/oauth/token":     true,
	"/api/checkout":    true,
	"/api/payments":    true,
	"/healthz":         true,
	"/readyz":          true,

	"/.well-known/oauth-authorization-server":   true,
	"/.well-known/oauth-protected-resource":     true,
	"/.well-known/oauth-protected-resource/mcp": true,
}

// NormalizePath maps a request path onto a bounded set of label values.
// Client lookups lose their client id and unknown paths become "other".
func NormalizePath(path string) string {
	if knownPaths[path] {
		return path
	}
	if strings.HasPrefix(path, "/oauth/register/") {
		return "/oauth/register/{client_id}"
	}
	return "other"
}

// Store operation names.
const (
	OperationEnsureUser    = "ensure_user"
	OperationGetUser       = "get_user"
	OperationCreatePayment = "create_payment"
	OperationListPayments  = "list_payments"
)

// Booking API operation names.
const (
	OperationSearchDestination = "search_destination"
	OperationSearchHotels      = "search_hotels"
)
