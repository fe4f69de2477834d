package oauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"slices"
)

// PKCE verifier length bounds (RFC 7636 section 4.1)
const (
	MinCodeVerifierLength = 43
	MaxCodeVerifierLength = 128
)

// GenerateCodeChallenge derives the S256 challenge for a verifier:
// BASE64URL(SHA256(ASCII(code_verifier)))
func GenerateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// normalizeChallengeMethod validates the method sent to /oauth/authorize.
// An absent method means "plain" (RFC 7636 section 4.3).
func normalizeChallengeMethod(challenge, method string) (string, error) {
	if challenge == "" {
		if method != "" {
			return "", fmt.Errorf("code_challenge_method without code_challenge")
		}
		return "", nil
	}
	if method == "" {
		method = "plain"
	}
	if !slices.Contains(SupportedCodeChallengeMethods, method) {
		return "", fmt.Errorf("unsupported code_challenge_method %q", method)
	}
	return method, nil
}

// verifyCodeChallenge checks a code_verifier against the stored challenge
func verifyCodeChallenge(verifier, challenge, method string) bool {
	if len(verifier) < MinCodeVerifierLength || len(verifier) > MaxCodeVerifierLength {
		return false
	}

	var computed string
	switch method {
	case "S256":
		computed = GenerateCodeChallenge(verifier)
	case "plain", "":
		computed = verifier
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
