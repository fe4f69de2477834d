package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/tripbooker/internal/logging"
)

// upstreamTokenResponse is Google's token endpoint body
type upstreamTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
}

// ServeToken handles POST /oauth/token for the authorization_code and
// refresh_token grants.
func (h *Handler) ServeToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := r.ParseForm(); err != nil {
		h.writeOAuthError(w, ErrInvalidRequest("Failed to parse form body"))
		return
	}

	// Checked before any code is consumed so a misconfigured server
	// leaves pending codes redeemable.
	if h.googleConfig.ClientID == "" || h.googleConfig.ClientSecret == "" {
		h.logger.Error("Token request rejected, Google OAuth client credentials are not configured")
		h.recordFlow(r, "token", "error")
		h.writeOAuthError(w, ErrServerError("OAuth client not configured"))
		return
	}

	clientID, ok := h.authenticateClient(w, r)
	if !ok {
		return
	}

	// A missing grant_type is answered like any other unsupported one.
	grantType := r.PostForm.Get("grant_type")
	switch grantType {
	case "authorization_code":
		h.handleAuthorizationCodeGrant(w, r, clientID)
	case "refresh_token":
		h.handleRefreshTokenGrant(w, r, clientID)
	default:
		h.recordFlow(r, "token", "error")
		h.writeOAuthError(w, ErrUnsupportedGrantType(fmt.Sprintf("Grant type %q is not supported", grantType)))
	}
}

// authenticateClient verifies client credentials when they are supplied for a
// registered client. It returns the presented client id, possibly empty.
func (h *Handler) authenticateClient(w http.ResponseWriter, r *http.Request) (string, bool) {
	clientID, secret, hasBasic := r.BasicAuth()
	if !hasBasic {
		clientID = r.PostForm.Get("client_id")
		secret = r.PostForm.Get("client_secret")
	}
	if clientID == "" || secret == "" {
		return clientID, true
	}

	_, err := h.clients.Authenticate(r.Context(), clientID, secret)
	switch {
	case err == nil:
		return clientID, true
	case errors.Is(err, ErrClientNotFound):
		return clientID, true
	default:
		h.audit.LogFailure(AuditEventInvalidClient, clientID, getClientIP(r, h.config.RateLimit.TrustProxy), "client authentication failed")
		h.recordFlow(r, "token", "error")
		if hasBasic {
			w.Header().Set("WWW-Authenticate", `Basic realm="oauth"`)
		}
		h.writeOAuthError(w, ErrInvalidClient("Client authentication failed"))
		return "", false
	}
}

func (h *Handler) handleAuthorizationCodeGrant(w http.ResponseWriter, r *http.Request, clientID string) {
	code := r.PostForm.Get("code")
	if code == "" {
		h.recordFlow(r, "token", "error")
		h.writeOAuthError(w, ErrInvalidRequest("code is required"))
		return
	}
	clientIP := getClientIP(r, h.config.RateLimit.TrustProxy)

	record, err := h.codes.Consume(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			h.logger.Debug("Rejected authorization code", "code", logging.CodePrefix(code))
			h.audit.LogFailure(AuditEventInvalidGrant, clientID, clientIP, "unknown, used or expired code")
			h.recordFlow(r, "token", "invalid_grant")
			h.writeOAuthError(w, ErrInvalidGrant("Invalid or expired authorization code"))
			return
		}
		h.logger.Error("Failed to consume authorization code", logging.Err(err))
		h.writeOAuthError(w, ErrServerError("Failed to load authorization code"))
		return
	}

	if clientID != "" && clientID != record.ClientID {
		h.audit.LogFailure(AuditEventInvalidGrant, clientID, clientIP, "code issued to another client")
		h.recordFlow(r, "token", "invalid_grant")
		h.writeOAuthError(w, ErrInvalidGrant("Authorization code was issued to another client"))
		return
	}
	if uri := r.PostForm.Get("redirect_uri"); uri != "" && uri != record.RedirectURI {
		h.audit.LogFailure(AuditEventInvalidGrant, record.ClientID, clientIP, "redirect_uri mismatch")
		h.recordFlow(r, "token", "invalid_grant")
		h.writeOAuthError(w, ErrInvalidGrant("redirect_uri does not match the authorization request"))
		return
	}
	if record.CodeChallenge != "" {
		verifier := r.PostForm.Get("code_verifier")
		if !verifyCodeChallenge(verifier, record.CodeChallenge, record.CodeChallengeMethod) {
			h.audit.LogFailure(AuditEventInvalidPKCE, record.ClientID, clientIP, "code_verifier mismatch")
			h.recordFlow(r, "token", "invalid_grant")
			h.writeOAuthError(w, ErrInvalidGrant("Invalid code_verifier"))
			return
		}
	}

	ctx := context.WithValue(r.Context(), oauth2.HTTPClient, h.httpClient)
	tok, err := h.googleConfig.Exchange(ctx, record.UpstreamCode)
	if err != nil {
		h.writeUpstreamError(w, r, record.ClientID, err)
		return
	}

	resp := TokenResponse{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.Type(),
		Scope:        NormalizeScope(extraString(tok, "scope")),
		RefreshToken: tok.RefreshToken,
		IDToken:      extraString(tok, "id_token"),
	}
	if !tok.Expiry.IsZero() {
		resp.ExpiresIn = int64(tok.Expiry.Sub(h.now()).Round(time.Second).Seconds())
	}

	h.audit.LogTokenIssued(record.ClientID, clientIP, resp.Scope)
	h.recordFlow(r, "token", "success")
	h.writeTokenResponse(w, resp)
}

// handleRefreshTokenGrant forwards the refresh token to Google with the
// server's own credentials. The upstream reply is relayed, with the scope
// normalized on success.
func (h *Handler) handleRefreshTokenGrant(w http.ResponseWriter, r *http.Request, clientID string) {
	refreshToken := r.PostForm.Get("refresh_token")
	if refreshToken == "" {
		h.recordFlow(r, "refresh", "error")
		h.writeOAuthError(w, ErrInvalidRequest("refresh_token is required"))
		return
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {h.googleConfig.ClientID},
		"client_secret": {h.googleConfig.ClientSecret},
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.googleConfig.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		h.writeOAuthError(w, ErrServerError("Failed to build upstream request"))
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	upstream, err := h.httpClient.Do(req)
	if err != nil {
		h.writeUpstreamError(w, r, clientID, err)
		return
	}
	defer upstream.Body.Close()

	body, err := io.ReadAll(io.LimitReader(upstream.Body, maxRequestBodySize))
	if err != nil {
		h.writeUpstreamError(w, r, clientID, err)
		return
	}

	if upstream.StatusCode < 200 || upstream.StatusCode > 299 {
		h.writeUpstreamError(w, r, clientID, &oauth2.RetrieveError{Response: upstream, Body: body})
		return
	}

	var tok upstreamTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		h.logger.Error("Unexpected upstream refresh response", "status", upstream.StatusCode)
		h.writeOAuthError(w, ErrServerError("Unexpected response from upstream token endpoint"))
		return
	}

	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	h.audit.LogTokenRefreshed(clientID, getClientIP(r, h.config.RateLimit.TrustProxy))
	h.recordFlow(r, "refresh", "success")
	h.writeTokenResponse(w, TokenResponse{
		AccessToken:  tok.AccessToken,
		TokenType:    tokenType,
		ExpiresIn:    tok.ExpiresIn,
		Scope:        NormalizeScope(tok.Scope),
		RefreshToken: tok.RefreshToken,
		IDToken:      tok.IDToken,
	})
}

// writeUpstreamError relays Google's error status and body unchanged.
// Transport failures, which have no upstream response, become server_error.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, r *http.Request, clientID string, err error) {
	h.audit.LogFailure(AuditEventUpstreamError, clientID, getClientIP(r, h.config.RateLimit.TrustProxy), err.Error())
	h.recordFlow(r, "token", "upstream_error")

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		contentType := retrieveErr.Response.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/json"
		}
		w.Header().Set("Content-Type", contentType)
		setNoStore(w)
		w.WriteHeader(retrieveErr.Response.StatusCode)
		_, _ = w.Write(retrieveErr.Body)
		return
	}

	h.logger.Error("Upstream token request failed", logging.Err(err))
	h.writeOAuthError(w, ErrServerError("Failed to reach the upstream token endpoint"))
}

func (h *Handler) writeTokenResponse(w http.ResponseWriter, resp TokenResponse) {
	setNoStore(w)
	h.writeJSON(w, http.StatusOK, resp)
}

func setNoStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

func extraString(tok *oauth2.Token, key string) string {
	s, _ := tok.Extra(key).(string)
	return s
}
