// Package logging provides structured logging helpers for tripbooker.
//
// Everything logs through log/slog. This package fixes the attribute names
// used across the OAuth proxy, the store, the booking client and the MCP
// tools, and keeps personal data out of log lines.
//
// # Usage Patterns
//
//	logger := logging.WithComponent(slog.Default(), "oauth")
//	logger.Info("token issued",
//	    logging.ClientID(clientID),
//	    logging.UserHash(email))
//
// # Security Considerations
//
//   - User emails are hashed, which still allows correlating entries
//   - Bearer tokens are reduced to their length
//   - Authorization codes are reduced to a short prefix
package logging
