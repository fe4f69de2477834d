// Package google adapts Google's OAuth 2.0 endpoints to the OAuth proxy.
//
// TokenInfoValidator resolves access tokens through Google's tokeninfo
// endpoint (google.golang.org/api/oauth2/v2) and implements
// oauth.TokenValidator for the resource guard in front of /mcp.
package google
