package oauth

import (
	"errors"
	"fmt"
	"net/http"
)

// OAuthError represents an OAuth 2.0 error response
type OAuthError struct {
	Code        string // OAuth error code (e.g., "invalid_request", "invalid_grant")
	Description string // Human-readable error description
	Status      int    // HTTP status code
}

// Error implements the error interface
func (e *OAuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewOAuthError creates a new OAuth error
func NewOAuthError(code, description string, status int) *OAuthError {
	return &OAuthError{
		Code:        code,
		Description: description,
		Status:      status,
	}
}

// Error constructors for the codes this server emits.
var (
	// ErrInvalidRequest indicates the request is malformed or missing required parameters
	ErrInvalidRequest = func(desc string) *OAuthError {
		return NewOAuthError("invalid_request", desc, http.StatusBadRequest)
	}

	// ErrInvalidGrant indicates the authorization code or refresh token is invalid, expired or already used
	ErrInvalidGrant = func(desc string) *OAuthError {
		return NewOAuthError("invalid_grant", desc, http.StatusBadRequest)
	}

	// ErrInvalidClient indicates client authentication failed or the client is unknown
	ErrInvalidClient = func(desc string) *OAuthError {
		return NewOAuthError("invalid_client", desc, http.StatusUnauthorized)
	}

	// ErrInvalidClientMetadata indicates a registration request carried unusable metadata (RFC 7591)
	ErrInvalidClientMetadata = func(desc string) *OAuthError {
		return NewOAuthError("invalid_client_metadata", desc, http.StatusBadRequest)
	}

	// ErrInvalidToken indicates the access token is missing, invalid or expired
	ErrInvalidToken = func(desc string) *OAuthError {
		return NewOAuthError("invalid_token", desc, http.StatusUnauthorized)
	}

	// ErrUnsupportedGrantType indicates the grant type is not supported
	ErrUnsupportedGrantType = func(desc string) *OAuthError {
		return NewOAuthError("unsupported_grant_type", desc, http.StatusBadRequest)
	}

	// ErrUnsupportedResponseType indicates a response_type other than "code"
	ErrUnsupportedResponseType = func(desc string) *OAuthError {
		return NewOAuthError("unsupported_response_type", desc, http.StatusBadRequest)
	}

	// ErrServerError indicates missing configuration or an internal failure
	ErrServerError = func(desc string) *OAuthError {
		return NewOAuthError("server_error", desc, http.StatusInternalServerError)
	}

	// ErrInvalidRedirectURI indicates the redirect URI list is missing or unusable
	ErrInvalidRedirectURI = func(desc string) *OAuthError {
		return NewOAuthError("invalid_redirect_uri", desc, http.StatusBadRequest)
	}

	// ErrRateLimited indicates the caller exceeded the per-IP request budget
	ErrRateLimited = func(desc string) *OAuthError {
		return NewOAuthError("rate_limit_exceeded", desc, http.StatusTooManyRequests)
	}
)

// Sentinel errors returned by the storage backends and the state codec.
var (
	// ErrClientNotFound is returned when no client is registered under the id.
	ErrClientNotFound = errors.New("client not found")

	// ErrCodeNotFound is returned when a local authorization code is unknown,
	// already consumed, or expired. Callers cannot tell these apart.
	ErrCodeNotFound = errors.New("authorization code not found")

	// ErrInvalidState is returned when an encoded authorization context is
	// malformed, tampered with, or expired.
	ErrInvalidState = errors.New("invalid state")
)
