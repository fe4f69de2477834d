// Package oauth implements the OAuth 2.0 authorization-code proxy that fronts
// Google for the MCP endpoint.
//
// Towards MCP clients the Handler is an authorization server: it serves the
// RFC 8414 and RFC 9728 discovery documents, accepts RFC 7591 dynamic client
// registration, and runs the authorize/callback/token endpoints. The actual
// login happens at Google. The client's redirect intent travels through
// Google's state parameter as a MACed token (StateCodec), Google's code is
// swapped for a local single-use code (CodeVault), and /oauth/token exchanges
// that local code for Google's tokens, which are handed back unchanged apart
// from scope normalization.
//
// Towards the MCP server the Handler is a resource server: ResourceGuard
// validates Google access tokens through a TokenValidator and places the
// caller's Identity in the request context.
//
// Client registrations and codes live behind the ClientStore and CodeVault
// interfaces, with in-memory and Redis implementations.
package oauth
