package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Exporter names accepted by METRICS_EXPORTER and TRACING_EXPORTER.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// DefaultMetricInterval is the push interval of the OTLP and stdout metric
// readers. The Prometheus reader is pull based.
const DefaultMetricInterval = 10 * time.Second

// Config selects exporters and labels for the provider.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// InstanceID becomes service.instance.id. Empty means the hostname.
	InstanceID string

	// Enabled turns the provider into a no-op when false.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port of an OTLP/HTTP collector, without scheme.
	OTLPEndpoint string

	// OTLPInsecure exports over plain HTTP. Local collectors only.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio in [0, 1].
	TraceSamplingRate float64

	// DetailedLabels adds the caller's email domain to tool metrics.
	// Full emails never become labels.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the tool audit trail.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII logs full caller emails instead of hashes. Audit output must
	// then be routed to restricted storage.
	IncludePII bool
}

// DefaultConfig reads the configuration from the process environment.
func DefaultConfig() Config {
	return configFromEnv(os.Getenv)
}

// configFromEnv builds a Config from getenv. Unparsable values fall back to
// their defaults.
func configFromEnv(getenv func(string) string) Config {
	str := func(fallback string, keys ...string) string {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				return v
			}
		}
		return fallback
	}
	boolean := func(key string, fallback bool) bool {
		if b, err := strconv.ParseBool(getenv(key)); err == nil {
			return b
		}
		return fallback
	}
	ratio := func(key string, fallback float64) float64 {
		if f, err := strconv.ParseFloat(getenv(key), 64); err == nil {
			return f
		}
		return fallback
	}

	return Config{
		ServiceName:       str("tripbooker", "OTEL_SERVICE_NAME"),
		ServiceVersion:    "unknown",
		InstanceID:        str("", "OTEL_SERVICE_INSTANCE_ID", "POD_NAME"),
		Enabled:           boolean("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   str(ExporterPrometheus, "METRICS_EXPORTER"),
		TracingExporter:   str(ExporterNone, "TRACING_EXPORTER"),
		OTLPEndpoint:      str("", "OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure:      boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: ratio("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    boolean("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    boolean("AUDIT_LOGGING_ENABLED", true),
			IncludePII: boolean("AUDIT_LOGGING_INCLUDE_PII", false),
		},
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}
	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.OTLPEndpoint == "" && (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) {
		return fmt.Errorf("OTLP endpoint is required when an OTLP exporter is selected")
	}
	return nil
}
