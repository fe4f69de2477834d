package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tripbooker/internal/instrumentation"
	"github.com/teemow/tripbooker/internal/mcp/oauth"
	"github.com/teemow/tripbooker/internal/payments"
)

// HTTP server timeouts. WriteTimeout is left unset so streamed MCP
// responses are not cut off.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
)

// OAuthHTTPServerConfig wires the public listener
type OAuthHTTPServerConfig struct {
	// Addr is the listen address, e.g. ":8080"
	Addr string

	// MCPServer serves the protected /mcp endpoint. REQUIRED.
	MCPServer *mcpserver.MCPServer

	// OAuth provides the OAuth endpoints and the resource guard. REQUIRED.
	OAuth *oauth.Handler

	// Payments mounts /api/checkout and /api/payments (optional)
	Payments *payments.Handler

	// Health mounts /healthz and /readyz (optional)
	Health *HealthChecker

	// Metrics records HTTP request metrics (optional)
	Metrics *instrumentation.Metrics

	// Tracing starts a server span per request
	Tracing bool

	Logger *slog.Logger
}

// OAuthHTTPServer is the public HTTP listener: OAuth proxy endpoints,
// discovery documents, the guarded MCP endpoint and the payments API.
type OAuthHTTPServer struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// NewOAuthHTTPServer builds the mux and the http.Server
func NewOAuthHTTPServer(config OAuthHTTPServerConfig) (*OAuthHTTPServer, error) {
	if config.MCPServer == nil {
		return nil, fmt.Errorf("MCP server is required")
	}
	if config.OAuth == nil {
		return nil, fmt.Errorf("OAuth handler is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	config.OAuth.Mount(mux)

	streamable := mcpserver.NewStreamableHTTPServer(config.MCPServer,
		mcpserver.WithEndpointPath(oauth.PathMCP),
	)
	mux.Handle(oauth.PathMCP, config.OAuth.CORSMiddleware(config.OAuth.ResourceGuard(streamable)))

	if config.Payments != nil {
		config.Payments.Mount(mux, config.OAuth.CORSMiddleware)
	}
	if config.Health != nil {
		config.Health.RegisterHealthEndpoints(mux)
	}

	var handler http.Handler = mux
	if config.Tracing {
		handler = TracingMiddleware(handler)
	}
	handler = HTTPMetricsMiddleware(config.Metrics, handler)

	return &OAuthHTTPServer{
		handler: handler,
		logger:  logger,
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           handler,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
	}, nil
}

// Handler returns the fully wrapped root handler
func (s *OAuthHTTPServer) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *OAuthHTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *OAuthHTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
