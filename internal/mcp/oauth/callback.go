package oauth

import (
	"net/http"
	"net/url"

	"github.com/teemow/tripbooker/internal/logging"
)

// ServeCallback handles Google's redirect back to /oauth/callback.
// It mints a local single-use code bound to Google's code and sends the
// user agent back to the original client.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	clientIP := getClientIP(r, h.config.RateLimit.TrustProxy)

	if upstreamErr := q.Get("error"); upstreamErr != "" {
		h.audit.LogFailure(AuditEventUpstreamError, "", clientIP, upstreamErr)
		h.recordFlow(r, "callback", "upstream_error")
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            upstreamErr,
			ErrorDescription: q.Get("error_description"),
		})
		return
	}

	upstreamCode := q.Get("code")
	state := q.Get("state")
	if upstreamCode == "" || state == "" {
		h.recordFlow(r, "callback", "error")
		h.writeOAuthError(w, ErrInvalidRequest("code and state are required"))
		return
	}

	ac, err := h.states.Decode(state)
	if err != nil {
		h.audit.LogFailure(AuditEventInvalidState, "", clientIP, err.Error())
		h.recordFlow(r, "callback", "error")
		h.writeOAuthError(w, ErrInvalidRequest("Invalid state parameter"))
		return
	}

	target, err := url.Parse(ac.RedirectURI)
	if err != nil {
		h.writeOAuthError(w, ErrInvalidRequest("Invalid redirect_uri in state"))
		return
	}

	localCode, err := generateSecureToken(authorizationCodeBytes)
	if err != nil {
		h.logger.Error("Failed to generate authorization code", logging.Err(err))
		h.writeOAuthError(w, ErrServerError("Failed to issue authorization code"))
		return
	}

	now := h.now()
	record := &AuthorizationCode{
		UpstreamCode:        upstreamCode,
		ClientID:            ac.ClientID,
		RedirectURI:         ac.RedirectURI,
		Scope:               ac.Scope,
		CodeChallenge:       ac.CodeChallenge,
		CodeChallengeMethod: ac.CodeChallengeMethod,
		CreatedAt:           now,
		ExpiresAt:           now.Add(h.config.CodeTTL),
	}
	if err := h.codes.Put(r.Context(), localCode, record); err != nil {
		h.logger.Error("Failed to store authorization code", logging.ClientID(ac.ClientID), logging.Err(err))
		h.writeOAuthError(w, ErrServerError("Failed to issue authorization code"))
		return
	}

	h.logger.Debug("Issued authorization code",
		logging.ClientID(ac.ClientID),
		"code", logging.CodePrefix(localCode))
	h.audit.LogCodeIssued(ac.ClientID, clientIP)
	h.recordFlow(r, "callback", "success")

	params := target.Query()
	params.Set("code", localCode)
	if ac.State != "" {
		params.Set("state", ac.State)
	}
	target.RawQuery = params.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}
