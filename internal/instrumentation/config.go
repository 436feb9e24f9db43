package instrumentation

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

// Label values shared by metrics, spans and audit records.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	ServiceGmail = "gmail"
)

// Exporter names accepted by METRICS_EXPORTER and TRACING_EXPORTER.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Resource attribute keys describing the scan profile of the process.
const (
	ResourceAttrRateMode    = "sendersweep.scan.rate_mode"
	ResourceAttrFetchCap    = "sendersweep.scan.fetch_cap"
	ResourceAttrListCap     = "sendersweep.scan.list_cap"
	ResourceAttrConcurrency = "sendersweep.scan.concurrency"
)

// Config controls how telemetry is exported.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// InstanceID defaults to the hostname.
	InstanceID string

	// Enabled turns metrics and tracing on (INSTRUMENTATION_ENABLED).
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string
	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port of the collector, without scheme.
	OTLPEndpoint string
	// OTLPInsecure sends OTLP over plain HTTP.
	OTLPInsecure bool

	TraceSamplingRate float64

	// AccountLabels adds the account label to tool metrics.
	AccountLabels bool

	// Scan is the scan profile the process runs with.
	Scan ScanProfile

	AuditLogging AuditLoggingConfig
}

// ScanProfile is the part of the scan configuration that is attached to
// every exported metric and span as resource attributes. FetchCap also
// sizes the scan_unique_senders histogram.
type ScanProfile struct {
	RateMode    string
	FetchCap    int
	ListCap     int
	Concurrency int
}

func (p ScanProfile) attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if p.RateMode != "" {
		attrs = append(attrs, attribute.String(ResourceAttrRateMode, p.RateMode))
	}
	if p.FetchCap > 0 {
		attrs = append(attrs, attribute.Int(ResourceAttrFetchCap, p.FetchCap))
	}
	if p.ListCap > 0 {
		attrs = append(attrs, attribute.Int(ResourceAttrListCap, p.ListCap))
	}
	if p.Concurrency > 0 {
		attrs = append(attrs, attribute.Int(ResourceAttrConcurrency, p.Concurrency))
	}
	return attrs
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled turns audit records on (default: true).
	Enabled bool

	// IncludePII logs full sender addresses instead of their domains.
	IncludePII bool

	// LogLevel is the level of successful invocations: debug, info, warn or
	// error (default: info). Failures are logged at warn or higher.
	LogLevel string
}

// DefaultConfig reads the configuration from the environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString("OTEL_SERVICE_NAME", "sendersweep"),
		ServiceVersion:    "unknown",
		InstanceID:        envString("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:           envBool("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   envString("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   envString("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: envFloat("OTEL_TRACES_SAMPLER_ARG", 0.1),
		AccountLabels:     envBool("METRICS_ACCOUNT_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    envBool("AUDIT_LOGGING_ENABLED", true),
			IncludePII: envBool("AUDIT_LOGGING_INCLUDE_PII", false),
			LogLevel:   envString("AUDIT_LOGGING_LEVEL", "info"),
		},
	}
}

// Validate reports every problem of the configuration at once.
func (c Config) Validate() error {
	var errs []error
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		errs = append(errs, fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.TraceSamplingRate))
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP endpoint is required for the otlp metrics exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter))
	}

	switch c.TracingExporter {
	case "", ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP endpoint is required for the otlp tracing exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter))
	}

	return errors.Join(errs...)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envParse returns def when key is unset or does not parse.
func envParse[T any](key string, def T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := parse(v)
	if err != nil {
		return def
	}
	return parsed
}

func envBool(key string, def bool) bool {
	return envParse(key, def, strconv.ParseBool)
}

func envFloat(key string, def float64) float64 {
	return envParse(key, def, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}
