package oauth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ServeClientRegistration handles POST /oauth/register (RFC 7591).
func (h *Handler) ServeClientRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req ClientRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.recordFlow(r, "register", "error")
		h.writeOAuthError(w, ErrInvalidClientMetadata("Request body must be a JSON client registration"))
		return
	}

	client, creds, err := h.clients.Register(r.Context(), &req)
	if err != nil {
		h.recordFlow(r, "register", "error")
		var oauthErr *OAuthError
		if errors.As(err, &oauthErr) {
			h.writeOAuthError(w, oauthErr)
			return
		}
		h.logger.Error("Client registration failed", "error", err)
		h.writeOAuthError(w, ErrServerError("Failed to register client"))
		return
	}

	h.audit.LogClientRegistered(client.ClientID, client.ClientName, getClientIP(r, h.config.RateLimit.TrustProxy))
	h.recordFlow(r, "register", "success")

	h.writeJSON(w, http.StatusCreated, ClientRegistrationResponse{
		ClientInfo:              client.Info(),
		ClientSecret:            creds.ClientSecret,
		ClientIDIssuedAt:        client.CreatedAt.Unix(),
		ClientSecretExpiresAt:   0,
		RegistrationAccessToken: creds.RegistrationAccessToken,
		RegistrationClientURI:   h.baseURL + PathRegister + "/" + client.ClientID,
	})
}

// ServeClientLookup handles GET /oauth/register/{client_id}. Secrets are never
// returned.
func (h *Handler) ServeClientLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientID := r.PathValue("client_id")
	if clientID == "" {
		clientID = strings.TrimPrefix(r.URL.Path, PathRegister+"/")
	}

	client, err := h.clients.Lookup(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			h.writeOAuthError(w, NewOAuthError("invalid_client", "Client not found", http.StatusNotFound))
			return
		}
		h.logger.Error("Client lookup failed", "error", err)
		h.writeOAuthError(w, ErrServerError("Failed to load client"))
		return
	}

	h.writeJSON(w, http.StatusOK, client.Info())
}
