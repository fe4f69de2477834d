package oauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/teemow/tripbooker/internal/logging"
)

// RegisteredClient is a client created through dynamic registration.
// Secrets are kept only as bcrypt hashes.
type RegisteredClient struct {
	ClientID                    string    `json:"client_id"`
	ClientSecretHash            string    `json:"client_secret_hash"`
	RegistrationAccessTokenHash string    `json:"registration_access_token_hash"`
	RedirectURIs                []string  `json:"redirect_uris"`
	GrantTypes                  []string  `json:"grant_types"`
	ResponseTypes               []string  `json:"response_types"`
	ClientName                  string    `json:"client_name,omitempty"`
	Scope                       string    `json:"scope,omitempty"`
	TokenEndpointAuthMethod     string    `json:"token_endpoint_auth_method"`
	CreatedAt                   time.Time `json:"created_at"`
}

// Info returns the public fields of the client.
func (c *RegisteredClient) Info() ClientInfo {
	return ClientInfo{
		ClientID:                c.ClientID,
		RedirectURIs:            c.RedirectURIs,
		GrantTypes:              c.GrantTypes,
		ResponseTypes:           c.ResponseTypes,
		ClientName:              c.ClientName,
		Scope:                   c.Scope,
		TokenEndpointAuthMethod: c.TokenEndpointAuthMethod,
	}
}

// HasRedirectURI reports whether uri was registered for this client.
// Comparison is exact.
func (c *RegisteredClient) HasRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if subtle.ConstantTimeCompare([]byte(registered), []byte(uri)) == 1 {
			return true
		}
	}
	return false
}

// ClientStore persists registered clients. Get returns ErrClientNotFound
// for unknown ids.
type ClientStore interface {
	Save(ctx context.Context, client *RegisteredClient) error
	Get(ctx context.Context, clientID string) (*RegisteredClient, error)
}

// MemoryClientStore keeps clients in process memory. Clients are lost on restart.
type MemoryClientStore struct {
	mu      sync.RWMutex
	clients map[string]*RegisteredClient
}

// NewMemoryClientStore creates an empty in-memory client store
func NewMemoryClientStore() *MemoryClientStore {
	return &MemoryClientStore{
		clients: make(map[string]*RegisteredClient),
	}
}

// Save stores or replaces a client
func (s *MemoryClientStore) Save(_ context.Context, client *RegisteredClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *client
	stored.RedirectURIs = slices.Clone(client.RedirectURIs)
	s.clients[client.ClientID] = &stored
	return nil
}

// Get returns a copy of the stored client
func (s *MemoryClientStore) Get(_ context.Context, clientID string) (*RegisteredClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[clientID]
	if !ok {
		return nil, ErrClientNotFound
	}
	c := *client
	c.RedirectURIs = slices.Clone(client.RedirectURIs)
	return &c, nil
}

// ClientCredentials are the plaintext secrets handed out once at registration.
type ClientCredentials struct {
	ClientSecret            string
	RegistrationAccessToken string
}

// ClientRegistry implements dynamic client registration on top of a ClientStore.
type ClientRegistry struct {
	store  ClientStore
	logger *slog.Logger
	now    func() time.Time
}

// NewClientRegistry creates a registry backed by store
func NewClientRegistry(store ClientStore, logger *slog.Logger) *ClientRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientRegistry{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Register validates req, applies defaults and stores a new client.
// Validation failures are returned as *OAuthError.
func (r *ClientRegistry) Register(ctx context.Context, req *ClientRegistrationRequest) (*RegisteredClient, *ClientCredentials, error) {
	if len(req.RedirectURIs) == 0 {
		return nil, nil, ErrInvalidRedirectURI("redirect_uris is required and must be a non-empty array")
	}
	for _, uri := range req.RedirectURIs {
		if err := validateRedirectURI(uri); err != nil {
			return nil, nil, ErrInvalidRedirectURI(err.Error())
		}
	}

	authMethod := req.TokenEndpointAuthMethod
	if authMethod == "" {
		authMethod = DefaultTokenEndpointAuthMethod
	}
	if !slices.Contains(SupportedTokenAuthMethods, authMethod) {
		return nil, nil, ErrInvalidClientMetadata(fmt.Sprintf("unsupported token_endpoint_auth_method %q", authMethod))
	}

	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = slices.Clone(DefaultGrantTypes)
	}
	for _, gt := range grantTypes {
		if !slices.Contains(DefaultGrantTypes, gt) {
			return nil, nil, ErrInvalidClientMetadata(fmt.Sprintf("unsupported grant type %q", gt))
		}
	}

	responseTypes := req.ResponseTypes
	if len(responseTypes) == 0 {
		responseTypes = slices.Clone(DefaultResponseTypes)
	}

	clientID, err := generateHexToken(clientIDBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate client ID: %w", err)
	}
	secret, err := generateHexToken(clientSecretBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate client secret: %w", err)
	}
	registrationToken, err := generateHexToken(clientSecretBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate registration access token: %w", err)
	}

	secretHash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash client secret: %w", err)
	}
	tokenHash, err := bcrypt.GenerateFromPassword([]byte(registrationToken), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash registration access token: %w", err)
	}

	client := &RegisteredClient{
		ClientID:                    clientID,
		ClientSecretHash:            string(secretHash),
		RegistrationAccessTokenHash: string(tokenHash),
		RedirectURIs:                slices.Clone(req.RedirectURIs),
		GrantTypes:                  grantTypes,
		ResponseTypes:               responseTypes,
		ClientName:                  req.ClientName,
		Scope:                       req.Scope,
		TokenEndpointAuthMethod:     authMethod,
		CreatedAt:                   r.now().UTC(),
	}

	if err := r.store.Save(ctx, client); err != nil {
		return nil, nil, fmt.Errorf("failed to store client: %w", err)
	}

	r.logger.Info("Registered new OAuth client",
		logging.ClientID(clientID),
		slog.String("client_name", req.ClientName),
		slog.Any("redirect_uris", req.RedirectURIs),
		slog.Any("grant_types", grantTypes))

	return client, &ClientCredentials{
		ClientSecret:            secret,
		RegistrationAccessToken: registrationToken,
	}, nil
}

// Lookup returns the client registered under clientID
func (r *ClientRegistry) Lookup(ctx context.Context, clientID string) (*RegisteredClient, error) {
	if clientID == "" {
		return nil, ErrClientNotFound
	}
	return r.store.Get(ctx, clientID)
}

// Authenticate checks a client secret against the stored hash.
// Clients registered with auth method "none" have no secret to check.
func (r *ClientRegistry) Authenticate(ctx context.Context, clientID, secret string) (*RegisteredClient, error) {
	client, err := r.Lookup(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client.TokenEndpointAuthMethod == "none" {
		return client, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.ClientSecretHash), []byte(secret)); err != nil {
		return nil, errors.New("client secret mismatch")
	}
	return client, nil
}

// validateRedirectURI accepts absolute https URIs, http on loopback hosts and
// custom schemes for native apps. Fragments and dangerous schemes are rejected.
func validateRedirectURI(raw string) error {
	if raw == "" {
		return errors.New("redirect URI must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid redirect URI %q: %w", raw, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("redirect URI %q must be absolute", raw)
	}
	if u.Fragment != "" {
		return fmt.Errorf("redirect URI %q must not contain a fragment", raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if slices.Contains(DangerousSchemes, scheme) {
		return fmt.Errorf("redirect URI scheme %q is not allowed", scheme)
	}

	switch scheme {
	case "https":
		if u.Host == "" {
			return fmt.Errorf("redirect URI %q has no host", raw)
		}
	case "http":
		if !isLoopback(u.Hostname()) {
			return fmt.Errorf("redirect URI %q must use https unless it targets a loopback address", raw)
		}
	}
	return nil
}

func isLoopback(host string) bool {
	return slices.Contains(LoopbackAddresses, host)
}
