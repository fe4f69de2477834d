package oauth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/teemow/tripbooker/internal/logging"
)

// discoveryMethod is the JSON-RPC method that may reach /mcp unauthenticated
const discoveryMethod = "tools/list"

// ResourceGuard is middleware that requires a valid Google access token.
//
// A single JSON-RPC tools/list call passes through without a token so clients
// can enumerate tools before signing in. Every other request must carry
// "Authorization: Bearer <token>"; the identity behind the token is placed in
// the request context for the tool handlers.
func (h *Handler) ResourceGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.isDiscoveryProbe(r) {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := getClientIP(r, h.config.RateLimit.TrustProxy)

		accessToken, ok := bearerToken(r)
		if !ok {
			h.recordValidation(r, "missing")
			h.writeUnauthorized(w, "Missing or malformed Authorization header")
			return
		}

		identity, err := h.validator.ValidateToken(r.Context(), accessToken)
		if err != nil {
			h.logger.Debug("Token validation failed",
				"token", logging.SanitizeToken(accessToken),
				logging.Err(err))
			h.audit.LogFailure(AuditEventInvalidToken, "", clientIP, err.Error())
			h.recordValidation(r, "invalid")
			h.writeUnauthorized(w, "Invalid or expired access token")
			return
		}
		if !identity.ExpiresAt.IsZero() && !identity.ExpiresAt.After(h.now()) {
			h.audit.LogFailure(AuditEventInvalidToken, "", clientIP, "token expired")
			h.recordValidation(r, "expired")
			h.writeUnauthorized(w, "Access token has expired")
			return
		}

		h.recordValidation(r, "valid")
		h.audit.LogAuthSuccess(identity.Email, clientIP)

		ctx := ContextWithIdentity(r.Context(), identity)
		if h.onSignIn != nil {
			if err := h.onSignIn(ctx, identity); err != nil {
				h.logger.Warn("Sign-in hook failed, continuing with upstream identity",
					logging.UserHash(identity.Email),
					logging.Err(err))
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// isDiscoveryProbe reports whether r is a single JSON-RPC tools/list call.
// The body is restored for the next handler.
func (h *Handler) isDiscoveryProbe(r *http.Request) bool {
	if r.Method != http.MethodPost || r.Body == nil {
		return false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(body), r.Body), r.Body}
	if err != nil {
		return false
	}

	var msg struct {
		Method string `json:"method"`
	}
	// Batches are arrays and fail to decode here, so they are never bypassed.
	if err := json.Unmarshal(body, &msg); err != nil {
		return false
	}
	return msg.Method == discoveryMethod
}

func (h *Handler) recordValidation(r *http.Request, result string) {
	if h.metrics != nil {
		h.metrics.RecordTokenValidation(r.Context(), result)
	}
}

// writeUnauthorized answers 401 with a challenge pointing at the
// protected resource metadata.
func (h *Handler) writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(
		`Bearer realm="%s", error="invalid_token", resource_metadata="%s"`,
		h.ResourceURL(),
		h.ProtectedResourceMetadataURL(),
	))
	h.writeOAuthError(w, ErrInvalidToken(description))
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
