// Package instrumentation wires OpenTelemetry metrics and traces for the
// tripbooker server.
//
// # Metrics
//
//   - http_requests_total, http_request_duration_seconds: by method,
//     normalized path and status
//   - oauth_flow_total: OAuth proxy steps by step and result
//   - oauth_token_validation_total: bearer checks at /mcp by result
//   - oauth_codes_active: issued, unredeemed authorization codes
//   - booking_api_calls_total, booking_api_call_duration_seconds
//   - store_operations_total: by operation and status
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// With the default Prometheus exporter the metrics are collected in a
// registry owned by the Provider and served by Provider.PrometheusHandler on
// the dedicated metrics listener. OTLP (HTTP) and stdout exporters are
// available for metrics and traces.
//
// # Configuration
//
// DefaultConfig reads INSTRUMENTATION_ENABLED, METRICS_EXPORTER,
// TRACING_EXPORTER, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE,
// OTEL_TRACES_SAMPLER_ARG, OTEL_SERVICE_NAME, METRICS_DETAILED_LABELS,
// AUDIT_LOGGING_ENABLED and AUDIT_LOGGING_INCLUDE_PII.
package instrumentation
