package oauth

import (
	"fmt"
	"net/http"
)

func (h *Handler) setMetadataCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(MetadataCacheMaxAge.Seconds())))
}

// ServeAuthorizationServerMetadata serves RFC 8414 metadata.
// Every endpoint is derived from the configured base URL.
func (h *Handler) ServeAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metadata := AuthorizationServerMetadata{
		Issuer:                            h.baseURL,
		AuthorizationEndpoint:             h.baseURL + PathAuthorize,
		TokenEndpoint:                     h.baseURL + PathToken,
		RegistrationEndpoint:              h.baseURL + PathRegister,
		ScopesSupported:                   SupportedScopes,
		ResponseTypesSupported:            DefaultResponseTypes,
		GrantTypesSupported:               DefaultGrantTypes,
		TokenEndpointAuthMethodsSupported: SupportedTokenAuthMethods,
		CodeChallengeMethodsSupported:     SupportedCodeChallengeMethods,
	}

	h.setMetadataCacheHeaders(w)
	h.writeJSON(w, http.StatusOK, metadata)
}

// ServeProtectedResourceMetadata serves RFC 9728 metadata for /mcp.
// This server is its own authorization server.
func (h *Handler) ServeProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metadata := ProtectedResourceMetadata{
		Resource:               h.ResourceURL(),
		AuthorizationServers:   []string{h.baseURL},
		BearerMethodsSupported: []string{"header"},
		ScopesSupported:        SupportedScopes,
	}

	h.setMetadataCacheHeaders(w)
	h.writeJSON(w, http.StatusOK, metadata)
}
