package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrTool      = "tool"
	attrAccount   = "account"
	attrReason    = "reason"
	attrStrategy  = "strategy"
	attrMode      = "mode"

	metricUniqueSenders = "scan_unique_senders"
)

// Metrics records scan, Google API, MCP tool and HTTP metrics.
// A nil *Metrics or one returned by a disabled Provider is a no-op.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	scansTotal        metric.Int64Counter
	scanDuration      metric.Float64Histogram
	messagesCollected metric.Int64Counter
	messagesFetched   metric.Int64Counter
	messagesSkipped   metric.Int64Counter
	rateLimitBackoffs metric.Int64Counter
	linkLookupsTotal  metric.Int64Counter
	sendersPerScan    metric.Int64Histogram

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// accountLabels adds the account label to tool metrics.
	accountLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments registered on meter.
func NewMetrics(meter metric.Meter, accountLabels bool) (*Metrics, error) {
	m := &Metrics{accountLabels: accountLabels}

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

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.scansTotal, err = meter.Int64Counter(
		"scans_total",
		metric.WithDescription("Total number of mailbox scans"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scans_total counter: %w", err)
	}

	m.scanDuration, err = meter.Float64Histogram(
		"scan_duration_seconds",
		metric.WithDescription("Mailbox scan duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan_duration_seconds histogram: %w", err)
	}

	m.messagesCollected, err = meter.Int64Counter(
		"scan_messages_collected_total",
		metric.WithDescription("Unique message IDs collected by scan queries"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan_messages_collected_total counter: %w", err)
	}

	m.messagesFetched, err = meter.Int64Counter(
		"scan_messages_fetched_total",
		metric.WithDescription("Messages whose metadata was fetched and aggregated"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan_messages_fetched_total counter: %w", err)
	}

	m.messagesSkipped, err = meter.Int64Counter(
		"scan_messages_skipped_total",
		metric.WithDescription("Messages skipped during a scan by reason"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan_messages_skipped_total counter: %w", err)
	}

	m.rateLimitBackoffs, err = meter.Int64Counter(
		"scan_rate_limit_backoffs_total",
		metric.WithDescription("Times the fetch rate was reduced after a quota error"),
		metric.WithUnit("{backoff}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan_rate_limit_backoffs_total counter: %w", err)
	}

	m.linkLookupsTotal, err = meter.Int64Counter(
		"unsubscribe_link_lookups_total",
		metric.WithDescription("Unsubscribe link lookups by winning strategy"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create unsubscribe_link_lookups_total counter: %w", err)
	}

	m.sendersPerScan, err = meter.Int64Histogram(
		metricUniqueSenders,
		metric.WithDescription("Number of unique senders found per scan"),
		metric.WithUnit("{sender}"),
		metric.WithExplicitBucketBoundaries(0, 10, 25, 50, 100, 250, 500),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s histogram: %w", metricUniqueSenders, err)
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
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
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

// RecordGoogleAPIOperation records a Google API call.
//
// Parameters:
//   - service: Google service name (gmail)
//   - operation: Operation type (list, get)
//   - status: StatusSuccess or one of the error kinds (auth, quota, transient)
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// ScanStats summarizes one finished scan for RecordScan.
type ScanStats struct {
	Status    string
	Mode      string
	Duration  time.Duration
	Collected int
	Fetched   int
	Senders   int
}

// RecordScan records a finished (or aborted) scan.
func (m *Metrics) RecordScan(ctx context.Context, s ScanStats) {
	if m == nil || m.scansTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrStatus, s.Status),
		attribute.String(attrMode, s.Mode),
	)
	m.scansTotal.Add(ctx, 1, attrs)
	m.scanDuration.Record(ctx, s.Duration.Seconds(), attrs)
	m.messagesCollected.Add(ctx, int64(s.Collected))
	m.messagesFetched.Add(ctx, int64(s.Fetched))
	if s.Status == StatusSuccess {
		m.sendersPerScan.Record(ctx, int64(s.Senders))
	}
}

// RecordMessageSkipped counts a message dropped from a scan.
// Reason is a low-cardinality label such as "quota", "transient" or "no_sender".
func (m *Metrics) RecordMessageSkipped(ctx context.Context, reason string) {
	if m == nil || m.messagesSkipped == nil {
		return
	}
	m.messagesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String(attrReason, reason)))
}

// RecordRateLimitBackoff counts an adaptive rate reduction.
func (m *Metrics) RecordRateLimitBackoff(ctx context.Context) {
	if m == nil || m.rateLimitBackoffs == nil {
		return
	}
	m.rateLimitBackoffs.Add(ctx, 1)
}

// RecordLinkLookup records which extraction strategy produced links for a
// sender lookup. An empty strategy is recorded as "none".
func (m *Metrics) RecordLinkLookup(ctx context.Context, strategy string) {
	if m == nil || m.linkLookupsTotal == nil {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	m.linkLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStrategy, strategy)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationWithAccount(ctx, toolName, status, "", duration)
}

// RecordToolInvocationWithAccount records an MCP tool invocation. The account
// label is only attached when detailed labels are enabled.
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.accountLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
