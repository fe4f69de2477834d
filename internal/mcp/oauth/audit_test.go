package oauth

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newBufferedAuditLogger() (*AuditLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewAuditLogger(logger), &buf
}

func TestAuditLogger_LogEvent(t *testing.T) {
	audit, buf := newBufferedAuditLogger()

	audit.LogTokenIssued("client-1", "192.0.2.1", "openid email")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("audit output is not JSON: %v", err)
	}
	want := map[string]any{
		"msg":        "audit_event",
		"level":      "INFO",
		"event_type": "token_issued",
		"client_id":  "client-1",
		"ip_address": "192.0.2.1",
		"success":    true,
		"meta_scope": "openid email",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestAuditLogger_FailuresLogAtWarn(t *testing.T) {
	audit, buf := newBufferedAuditLogger()

	audit.LogFailure(AuditEventInvalidGrant, "client-1", "192.0.2.1", "code reused")
	audit.LogRateLimitExceeded("192.0.2.1", PathToken)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, `"level":"WARN"`) || !strings.Contains(line, `"success":false`) {
			t.Errorf("failure not logged as a warning: %s", line)
		}
	}
}

func TestAuditLogger_NoEmailInLogs(t *testing.T) {
	audit, buf := newBufferedAuditLogger()

	audit.LogAuthSuccess("alice@example.com", "192.0.2.1")

	out := buf.String()
	if strings.Contains(out, "alice") {
		t.Errorf("email leaked into audit log: %s", out)
	}
	if !strings.Contains(out, hashForLogging("alice@example.com")) {
		t.Errorf("hashed email missing from audit log: %s", out)
	}
}

func TestHashForLogging(t *testing.T) {
	if hashForLogging("") != "" {
		t.Error("empty input should hash to empty string")
	}
	h := hashForLogging("secret")
	if len(h) != 16 {
		t.Errorf("hash length = %d, want 16", len(h))
	}
	if h != hashForLogging("secret") {
		t.Error("hash is not deterministic")
	}
}
