package oauth

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// stateIssuer is the iss claim of encoded authorization contexts
const stateIssuer = "tripbooker/oauth-state"

// AuthorizationContext is the original client's request, carried through
// Google's state parameter between /oauth/authorize and /oauth/callback.
type AuthorizationContext struct {
	RedirectURI         string `json:"original_redirect_uri"`
	ClientID            string `json:"original_client_id"`
	State               string `json:"original_state,omitempty"`
	Scope               string `json:"scope,omitempty"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
}

type stateClaims struct {
	AuthorizationContext
	jwt.RegisteredClaims
}

// StateCodec encodes an AuthorizationContext into an opaque, URL-safe token.
//
// The token is a compact HS256 JWT: base64url JSON sealed with HMAC-SHA256.
// Decoding fails closed on malformed, re-signed, altered or expired input and
// never returns a partially populated context.
type StateCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewStateCodec creates a codec. key must be at least 32 bytes; ttl <= 0
// uses DefaultStateTTL.
func NewStateCodec(key []byte, ttl time.Duration) (*StateCodec, error) {
	if len(key) < minStateKeyLength {
		return nil, fmt.Errorf("state key must be at least %d bytes, got %d", minStateKeyLength, len(key))
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateCodec{
		key: append([]byte(nil), key...),
		ttl: ttl,
		now: time.Now,
	}, nil
}

// GenerateStateKey returns a random key suitable for NewStateCodec
func GenerateStateKey() ([]byte, error) {
	key := make([]byte, minStateKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate state key: %w", err)
	}
	return key, nil
}

// Encode seals ac into a state token
func (c *StateCodec) Encode(ac AuthorizationContext) (string, error) {
	now := c.now()
	claims := stateClaims{
		AuthorizationContext: ac,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return token, nil
}

// Decode verifies and opens a state token. Every failure wraps ErrInvalidState.
func (c *StateCodec) Decode(state string) (*AuthorizationContext, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidState)
	}

	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims,
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if claims.RedirectURI == "" || claims.ClientID == "" {
		return nil, fmt.Errorf("%w: missing redirect context", ErrInvalidState)
	}

	ac := claims.AuthorizationContext
	return &ac, nil
}
