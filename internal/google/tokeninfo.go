package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	oauth2google "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/teemow/tripbooker/internal/logging"
	"github.com/teemow/tripbooker/internal/mcp/oauth"
)

var (
	// ErrTokenRejected is returned when Google does not recognize the token
	ErrTokenRejected = errors.New("access token rejected by Google")

	// ErrTokenExpired is returned when tokeninfo reports no remaining lifetime
	ErrTokenExpired = errors.New("access token expired")

	// ErrAudienceMismatch is returned when the token was issued to another OAuth client
	ErrAudienceMismatch = errors.New("access token issued to a different client")

	// ErrNoEmail is returned when the token does not carry the email scope
	ErrNoEmail = errors.New("access token carries no email")
)

// TokenInfoConfig configures a TokenInfoValidator
type TokenInfoConfig struct {
	// HTTPClient is used for tokeninfo calls
	// Default: client with a 10 second timeout
	HTTPClient *http.Client

	// Endpoint overrides the Google API base URL, for tests
	Endpoint string

	// Audience, when set, must match the token's audience (our Google client ID)
	Audience string

	Logger *slog.Logger
}

// TokenInfoValidator validates Google access tokens with the tokeninfo endpoint
type TokenInfoValidator struct {
	service  *oauth2v2.Service
	audience string
	logger   *slog.Logger
	now      func() time.Time
}

// NewTokenInfoValidator creates a validator backed by Google's oauth2/v2 API
func NewTokenInfoValidator(ctx context.Context, cfg TokenInfoConfig) (*TokenInfoValidator, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := oauth2v2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth2 service: %w", err)
	}

	return &TokenInfoValidator{
		service:  service,
		audience: cfg.Audience,
		logger:   logging.WithComponent(logger, "tokeninfo"),
		now:      time.Now,
	}, nil
}

// ValidateToken implements oauth.TokenValidator
func (v *TokenInfoValidator) ValidateToken(ctx context.Context, accessToken string) (*oauth.Identity, error) {
	info, err := v.service.Tokeninfo().AccessToken(accessToken).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			v.logger.Debug("Tokeninfo rejected token",
				"status", apiErr.Code,
				"token", logging.SanitizeToken(accessToken))
			return nil, fmt.Errorf("%w (status %d)", ErrTokenRejected, apiErr.Code)
		}
		return nil, fmt.Errorf("tokeninfo request failed: %w", err)
	}

	if info.ExpiresIn <= 0 {
		return nil, ErrTokenExpired
	}
	if v.audience != "" && info.Audience != v.audience && info.IssuedTo != v.audience {
		return nil, ErrAudienceMismatch
	}
	if info.Email == "" {
		return nil, ErrNoEmail
	}

	return &oauth.Identity{
		Email:     info.Email,
		Subject:   info.UserId,
		Scope:     oauth.NormalizeScope(info.Scope),
		ExpiresAt: v.now().Add(time.Duration(info.ExpiresIn) * time.Second),
	}, nil
}

// Endpoint returns Google's OAuth endpoint, or one rooted at baseURL
// (serving /auth and /token) when baseURL is set.
func Endpoint(baseURL string) oauth2.Endpoint {
	if baseURL == "" {
		return oauth2google.Endpoint
	}
	return oauth2.Endpoint{
		AuthURL:   baseURL + "/auth",
		TokenURL:  baseURL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}
