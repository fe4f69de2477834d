package oauth

import (
	"context"
	"log/slog"
	"time"
)

// AuditEventType represents the type of audit event
type AuditEventType string

const (
	// Registration and flow events
	AuditEventClientRegistered     AuditEventType = "client_registered"
	AuditEventAuthorizationStarted AuditEventType = "authorization_started"
	AuditEventCodeIssued           AuditEventType = "authorization_code_issued"
	AuditEventTokenIssued          AuditEventType = "token_issued"
	AuditEventTokenRefreshed       AuditEventType = "token_refreshed"
	AuditEventAuthSuccess          AuditEventType = "auth_success"

	// Failures and security events
	AuditEventUpstreamError     AuditEventType = "upstream_error"
	AuditEventInvalidState      AuditEventType = "invalid_state"
	AuditEventInvalidRedirect   AuditEventType = "invalid_redirect"
	AuditEventInvalidGrant      AuditEventType = "invalid_grant"
	AuditEventInvalidPKCE       AuditEventType = "invalid_pkce"
	AuditEventInvalidClient     AuditEventType = "invalid_client"
	AuditEventInvalidToken      AuditEventType = "invalid_token"
	AuditEventRateLimitExceeded AuditEventType = "rate_limit_exceeded"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	Timestamp time.Time
	EventType AuditEventType

	// UserEmailHash is the hashed email of the user, if known
	UserEmailHash string

	// ClientID is the OAuth client identifier, if known
	ClientID string

	// IPAddress is the source IP address
	IPAddress string

	Success      bool
	ErrorMessage string

	// Metadata carries event specific, non-sensitive fields
	Metadata map[string]string
}

// AuditLogger writes OAuth security events. Emails and tokens are hashed
// before they reach the log.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger}
}

// LogEvent logs an audit event with structured logging
func (a *AuditLogger) LogEvent(event AuditEvent) {
	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("event_type", string(event.EventType)),
		slog.Time("timestamp", event.Timestamp),
		slog.Bool("success", event.Success),
	}
	if event.UserEmailHash != "" {
		attrs = append(attrs, slog.String("user_email_hash", event.UserEmailHash))
	}
	if event.ClientID != "" {
		attrs = append(attrs, slog.String("client_id", event.ClientID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error", event.ErrorMessage))
	}
	for key, value := range event.Metadata {
		attrs = append(attrs, slog.String("meta_"+key, value))
	}

	a.logger.LogAttrs(context.Background(), level, "audit_event", attrs...)
}

// LogClientRegistered logs a successful dynamic registration
func (a *AuditLogger) LogClientRegistered(clientID, clientName, ipAddress string) {
	a.LogEvent(AuditEvent{
		Timestamp: time.Now(),
		EventType: AuditEventClientRegistered,
		ClientID:  clientID,
		IPAddress: ipAddress,
		Success:   true,
		Metadata:  map[string]string{"client_name": clientName},
	})
}

// LogAuthorizationStarted logs a redirect to Google
func (a *AuditLogger) LogAuthorizationStarted(clientID, ipAddress, scope string) {
	a.LogEvent(AuditEvent{
		Timestamp: time.Now(),
		EventType: AuditEventAuthorizationStarted,
		ClientID:  clientID,
		IPAddress: ipAddress,
		Success:   true,
		Metadata:  map[string]string{"scope": scope},
	})
}

// LogCodeIssued logs a local authorization code handed to a client
func (a *AuditLogger) LogCodeIssued(clientID, ipAddress string) {
	a.LogEvent(AuditEvent{
		Timestamp: time.Now(),
		EventType: AuditEventCodeIssued,
		ClientID:  clientID,
		IPAddress: ipAddress,
		Success:   true,
	})
}

// LogTokenIssued logs a successful authorization_code exchange
func (a *AuditLogger) LogTokenIssued(clientID, ipAddress, scope string) {
	a.LogEvent(AuditEvent{
		Timestamp: time.Now(),
		EventType: AuditEventTokenIssued,
		ClientID:  clientID,
		IPAddress: ipAddress,
		Success:   true,
		Metadata:  map[string]string{"scope": scope},
	})
}

// LogTokenRefreshed logs a successful refresh_token exchange
func (a *AuditLogger) LogTokenRefreshed(clientID, ipAddress string) {
	a.LogEvent(AuditEvent{
		Timestamp: time.Now(),
		EventType: AuditEventTokenRefreshed,
		ClientID:  clientID,
		IPAddress: ipAddress,
		Success:   true,
	})
}

// LogAuthSuccess logs a bearer token accepted by the resource guard
func (a *AuditLogger) LogAuthSuccess(userEmail, ipAddress string) {
	a.LogEvent(AuditEvent{
		Timestamp:     time.Now(),
		EventType:     AuditEventAuthSuccess,
		UserEmailHash: hashForLogging(userEmail),
		IPAddress:     ipAddress,
		Success:       true,
	})
}

// LogFailure logs a rejected request of the given type
func (a *AuditLogger) LogFailure(eventType AuditEventType, clientID, ipAddress, reason string) {
	a.LogEvent(AuditEvent{
		Timestamp:    time.Now(),
		EventType:    eventType,
		ClientID:     clientID,
		IPAddress:    ipAddress,
		Success:      false,
		ErrorMessage: reason,
	})
}

// LogRateLimitExceeded logs a request rejected by the rate limiter
func (a *AuditLogger) LogRateLimitExceeded(ipAddress, path string) {
	a.LogEvent(AuditEvent{
		Timestamp: time.Now(),
		EventType: AuditEventRateLimitExceeded,
		IPAddress: ipAddress,
		Success:   false,
		Metadata:  map[string]string{"path": path},
	})
}
