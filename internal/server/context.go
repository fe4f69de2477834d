package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/tripbooker/internal/booking"
	"github.com/teemow/tripbooker/internal/events"
	"github.com/teemow/tripbooker/internal/instrumentation"
	"github.com/teemow/tripbooker/internal/store"
)

// BookingSearcher is the part of the booking client used by the MCP tools
type BookingSearcher interface {
	SearchDestination(ctx context.Context, query string) (*booking.Destinations, error)
	SearchHotels(ctx context.Context, params booking.HotelSearchParams) (*booking.HotelSearchResult, error)
}

// ServerContext holds the dependencies shared by the MCP tools and the HTTP
// handlers for the lifetime of the server.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	store   store.Store
	booking BookingSearcher
	events  events.Publisher
	logger  *slog.Logger

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context. A nil store falls back to the
// in-memory store and a nil publisher to events.NopPublisher.
func NewServerContext(ctx context.Context, st store.Store, searcher BookingSearcher, publisher events.Publisher, logger *slog.Logger) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	if st == nil {
		st = store.NewMemoryStore()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		store:   st,
		booking: searcher,
		events:  publisher,
		logger:  logger,
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Store returns the user and payment store
func (sc *ServerContext) Store() store.Store {
	return sc.store
}

// Booking returns the booking search client, or nil if none is configured
func (sc *ServerContext) Booking() BookingSearcher {
	return sc.booking
}

// Events returns the domain event publisher
func (sc *ServerContext) Events() events.Publisher {
	return sc.events
}

// Logger returns the server logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// SetMetrics sets the metrics recorder used by instrumented tools
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder (may be nil)
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the tool audit logger
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the tool audit logger (may be nil)
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and releases the store and the event
// publisher. Calling it more than once is a no-op.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()

	var errs []error
	if err := sc.events.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := sc.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
