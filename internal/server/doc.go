// Package server wires the tripbooker HTTP surface.
//
// # Key Components
//
// ServerContext carries the dependencies shared by MCP tools and HTTP
// handlers: the user and payment store, the booking search client, the
// event publisher and, when instrumentation is enabled, metrics and the tool
// audit logger.
//
// OAuthHTTPServer is the public listener. It mounts:
//   - the OAuth proxy endpoints and discovery documents (internal/mcp/oauth)
//   - the Streamable HTTP MCP transport at /mcp behind the resource guard
//   - the payments API (/api/checkout, /api/payments)
//   - /healthz, /readyz and /healthz/detailed
//
// Every request passes through HTTPMetricsMiddleware and, with tracing
// enabled, an otelhttp server span.
//
// MetricsServer exposes the Prometheus registry on a separate listener
// (default :9090).
package server
