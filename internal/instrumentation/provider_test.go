package instrumentation

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testProviderConfig() Config {
	return Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	if provider.Enabled() {
		t.Error("Enabled() = true, want false")
	}
	if provider.Metrics() == nil {
		t.Fatal("Metrics() = nil, want a no-op recorder")
	}
	if provider.PrometheusHandler() != nil {
		t.Error("PrometheusHandler() != nil for a disabled provider")
	}

	// Should not panic
	provider.Metrics().RecordOAuthFlow(context.Background(), StepToken, OAuthResultSuccess)
	_, span := provider.Tracer("test").Start(context.Background(), "noop")
	span.End()

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewProvider_PrometheusScrape(t *testing.T) {
	provider, err := NewProvider(context.Background(), testProviderConfig())
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	ctx := context.Background()
	metrics := provider.Metrics()
	metrics.RecordOAuthFlow(ctx, StepRegister, OAuthResultSuccess)
	metrics.RecordHTTPRequest(ctx, "POST", NormalizePath("/oauth/register"), 201, time.Millisecond)
	metrics.RecordToolInvocation(ctx, "search_destination", StatusSuccess, time.Millisecond)
	if err := metrics.RegisterActiveCodesGauge(func() int { return 2 }); err != nil {
		t.Fatalf("RegisterActiveCodesGauge() error = %v", err)
	}

	handler := provider.PrometheusHandler()
	if handler == nil {
		t.Fatal("PrometheusHandler() = nil")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(w.Body)

	for _, want := range []string{
		"oauth_flow_total",
		"http_requests_total",
		"mcp_tool_invocations_total",
		"oauth_codes_active",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape is missing %s", want)
		}
	}
}

func TestNewProvider_Stdout(t *testing.T) {
	config := testProviderConfig()
	config.MetricsExporter = ExporterStdout
	config.TracingExporter = ExporterStdout
	config.TraceSamplingRate = 1

	provider, err := NewProvider(context.Background(), config)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	if provider.PrometheusHandler() != nil {
		t.Error("PrometheusHandler() != nil without the prometheus exporter")
	}

	_, span := provider.Tracer("test").Start(context.Background(), "span")
	span.End()

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewProvider_MultipleInstances(t *testing.T) {
	for i := 0; i < 2; i++ {
		provider, err := NewProvider(context.Background(), testProviderConfig())
		if err != nil {
			t.Fatalf("provider %d: %v", i, err)
		}
		_ = provider.Shutdown(context.Background())
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	config := testProviderConfig()
	config.TracingExporter = ExporterOTLP

	if _, err := NewProvider(context.Background(), config); err == nil {
		t.Fatal("NewProvider() error = nil, want missing OTLP endpoint")
	}
}
