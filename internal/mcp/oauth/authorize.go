package oauth

import (
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/teemow/tripbooker/internal/logging"
)

// ServeAuthorization handles GET /oauth/authorize.
//
// Nothing is persisted here: the client's redirect intent travels to Google
// and back inside the MACed state parameter.
func (h *Handler) ServeAuthorization(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	responseType := q.Get("response_type")
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")
	clientIP := getClientIP(r, h.config.RateLimit.TrustProxy)

	if responseType == "" || clientID == "" || redirectURI == "" {
		h.recordFlow(r, "authorize", "error")
		h.writeOAuthError(w, ErrInvalidRequest("response_type, client_id and redirect_uri are required"))
		return
	}
	if responseType != "code" {
		h.recordFlow(r, "authorize", "error")
		h.writeOAuthError(w, ErrUnsupportedResponseType("Only response_type=code is supported"))
		return
	}

	client, err := h.clients.Lookup(r.Context(), clientID)
	switch {
	case err == nil:
		if !client.HasRedirectURI(redirectURI) {
			h.audit.LogFailure(AuditEventInvalidRedirect, clientID, clientIP, "redirect_uri not registered")
			h.recordFlow(r, "authorize", "error")
			h.writeOAuthError(w, ErrInvalidRequest("redirect_uri is not registered for this client"))
			return
		}
	case errors.Is(err, ErrClientNotFound):
		// Unregistered clients are accepted; their redirect URI still has to be safe.
		if vErr := validateRedirectURI(redirectURI); vErr != nil {
			h.audit.LogFailure(AuditEventInvalidRedirect, clientID, clientIP, vErr.Error())
			h.recordFlow(r, "authorize", "error")
			h.writeOAuthError(w, ErrInvalidRequest("Invalid redirect_uri: "+vErr.Error()))
			return
		}
	default:
		h.logger.Error("Failed to look up client", logging.ClientID(clientID), logging.Err(err))
		h.writeOAuthError(w, ErrServerError("Failed to load client"))
		return
	}

	challengeMethod, err := normalizeChallengeMethod(q.Get("code_challenge"), q.Get("code_challenge_method"))
	if err != nil {
		h.recordFlow(r, "authorize", "error")
		h.writeOAuthError(w, ErrInvalidRequest(err.Error()))
		return
	}

	if h.googleConfig.ClientID == "" {
		h.recordFlow(r, "authorize", "error")
		h.writeOAuthError(w, ErrServerError("Google OAuth is not configured"))
		return
	}

	scope := q.Get("scope")
	if scope == "" {
		scope = DefaultScope
	}

	state, err := h.states.Encode(AuthorizationContext{
		RedirectURI:         redirectURI,
		ClientID:            clientID,
		State:               q.Get("state"),
		Scope:               scope,
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: challengeMethod,
	})
	if err != nil {
		h.logger.Error("Failed to encode state", logging.Err(err))
		h.writeOAuthError(w, ErrServerError("Failed to start authorization"))
		return
	}

	authURL := h.googleConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("scope", scope),
	)

	h.audit.LogAuthorizationStarted(clientID, clientIP, scope)
	h.recordFlow(r, "authorize", "success")
	http.Redirect(w, r, authURL, http.StatusFound)
}
