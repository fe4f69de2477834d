package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrStep      = "step"
	attrResult    = "result"
	attrTool      = "tool"
	attrDomain    = "user_domain"
)

// Metrics records tripbooker metrics. A zero Metrics is a valid no-op
// recorder, which is what a disabled Provider hands out.
type Metrics struct {
	meter metric.Meter

	// HTTP
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// OAuth proxy
	oauthFlowTotal            metric.Int64Counter
	oauthTokenValidationTotal metric.Int64Counter

	// Booking API
	bookingCallsTotal   metric.Int64Counter
	bookingCallDuration metric.Float64Histogram

	// Store
	storeOperationsTotal metric.Int64Counter

	// MCP tools
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels adds the caller's email domain to tool metrics
	detailedLabels bool

	gaugeMu sync.Mutex
	gauges  []metric.Registration
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		meter:          meter,
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.oauthFlowTotal, err = meter.Int64Counter(
		"oauth_flow_total",
		metric.WithDescription("OAuth proxy flow steps by step and result"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_flow_total counter: %w", err)
	}

	m.oauthTokenValidationTotal, err = meter.Int64Counter(
		"oauth_token_validation_total",
		metric.WithDescription("Bearer token validations at the MCP endpoint by result"),
		metric.WithUnit("{validation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_validation_total counter: %w", err)
	}

	m.bookingCallsTotal, err = meter.Int64Counter(
		"booking_api_calls_total",
		metric.WithDescription("Booking API calls by operation and status"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking_api_calls_total counter: %w", err)
	}

	m.bookingCallDuration, err = meter.Float64Histogram(
		"booking_api_call_duration_seconds",
		metric.WithDescription("Booking API call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking_api_call_duration_seconds histogram: %w", err)
	}

	m.storeOperationsTotal, err = meter.Int64Counter(
		"store_operations_total",
		metric.WithDescription("Store operations by operation and status"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store_operations_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records one HTTP request. path should already be
// normalized with NormalizePath.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordOAuthFlow counts one step of the OAuth proxy flow.
//
// step is one of the Step* constants, result one of the OAuthResult* ones.
func (m *Metrics) RecordOAuthFlow(ctx context.Context, step, result string) {
	if m.oauthFlowTotal == nil {
		return
	}
	m.oauthFlowTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStep, step),
		attribute.String(attrResult, result),
	))
}

// RecordTokenValidation counts one bearer token check at /mcp.
func (m *Metrics) RecordTokenValidation(ctx context.Context, result string) {
	if m.oauthTokenValidationTotal == nil {
		return
	}
	m.oauthTokenValidationTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordBookingAPICall records one upstream Booking API call.
func (m *Metrics) RecordBookingAPICall(ctx context.Context, operation, status string, duration time.Duration) {
	if m.bookingCallsTotal == nil || m.bookingCallDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.bookingCallsTotal.Add(ctx, 1, attrs)
	m.bookingCallDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStoreOperation counts one store call. The duration is accepted for
// interface compatibility with store.MetricsRecorder and not recorded.
func (m *Metrics) RecordStoreOperation(ctx context.Context, operation, status string, _ time.Duration) {
	if m.storeOperationsTotal == nil {
		return
	}
	m.storeOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	))
}

// RecordToolInvocation records an MCP tool invocation.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationForUser(ctx, toolName, status, "", duration)
}

// RecordToolInvocationForUser records an MCP tool invocation. The caller's
// email domain is attached only when detailed labels are enabled.
func (m *Metrics) RecordToolInvocationForUser(ctx context.Context, toolName, status, email string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && email != "" {
		attrs = append(attrs, attribute.String(attrDomain, ExtractUserDomain(email)))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RegisterActiveCodesGauge exports oauth_codes_active, read from count on
// every collection.
func (m *Metrics) RegisterActiveCodesGauge(count func() int) error {
	if m.meter == nil || count == nil {
		return nil
	}

	gauge, err := m.meter.Int64ObservableGauge(
		"oauth_codes_active",
		metric.WithDescription("Authorization codes issued and not yet redeemed or expired"),
		metric.WithUnit("{code}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oauth_codes_active gauge: %w", err)
	}

	reg, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, int64(count()))
		return nil
	}, gauge)
	if err != nil {
		return fmt.Errorf("failed to register oauth_codes_active callback: %w", err)
	}

	m.gaugeMu.Lock()
	m.gauges = append(m.gauges, reg)
	m.gaugeMu.Unlock()
	return nil
}

// unregisterGauges drops gauge callbacks; called on provider shutdown.
func (m *Metrics) unregisterGauges() {
	m.gaugeMu.Lock()
	defer m.gaugeMu.Unlock()
	for _, reg := range m.gauges {
		_ = reg.Unregister()
	}
	m.gauges = nil
}
