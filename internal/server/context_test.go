package server

import (
	"context"
	"errors"
	"testing"

	"github.com/teemow/tripbooker/internal/events"
	"github.com/teemow/tripbooker/internal/instrumentation"
	"github.com/teemow/tripbooker/internal/store"
)

type closeTracker struct {
	events.NopPublisher
	closed int
	err    error
}

func (c *closeTracker) Close() error {
	c.closed++
	return c.err
}

func TestNewServerContext_Defaults(t *testing.T) {
	sc := NewServerContext(context.Background(), nil, nil, nil, nil)
	defer func() { _ = sc.Shutdown() }()

	if _, ok := sc.Store().(*store.MemoryStore); !ok {
		t.Errorf("Store() = %T, want *store.MemoryStore", sc.Store())
	}
	if _, ok := sc.Events().(events.NopPublisher); !ok {
		t.Errorf("Events() = %T, want events.NopPublisher", sc.Events())
	}
	if sc.Booking() != nil {
		t.Error("Booking() should be nil when not configured")
	}
	if sc.Logger() == nil {
		t.Error("Logger() = nil")
	}
	if sc.Metrics() != nil || sc.AuditLogger() != nil {
		t.Error("instrumentation should be unset by default")
	}
}

func TestServerContext_SetInstrumentation(t *testing.T) {
	sc := NewServerContext(context.Background(), nil, nil, nil, nil)
	defer func() { _ = sc.Shutdown() }()

	metrics := &instrumentation.Metrics{}
	audit := instrumentation.NewAuditLogger(nil, instrumentation.AuditLoggingConfig{Enabled: true})
	sc.SetMetrics(metrics)
	sc.SetAuditLogger(audit)

	if sc.Metrics() != metrics || sc.AuditLogger() != audit {
		t.Error("setters did not take effect")
	}
}

func TestServerContext_Shutdown(t *testing.T) {
	publisher := &closeTracker{err: errors.New("channel closed")}
	sc := NewServerContext(context.Background(), nil, nil, publisher, nil)

	if sc.IsShutdown() {
		t.Fatal("IsShutdown() = true before Shutdown()")
	}
	if err := sc.Shutdown(); err == nil {
		t.Error("Shutdown() should surface the publisher close error")
	}
	if !sc.IsShutdown() {
		t.Error("IsShutdown() = false after Shutdown()")
	}
	if sc.Context().Err() == nil {
		t.Error("context not cancelled")
	}

	if err := sc.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if publisher.closed != 1 {
		t.Errorf("publisher closed %d times, want 1", publisher.closed)
	}
}
