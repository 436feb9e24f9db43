// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for sendersweep.
//
// # Metrics
//
// Scan metrics:
//   - scans_total, scan_duration_seconds: scans by status and rate mode
//   - scan_messages_collected_total, scan_messages_fetched_total
//   - scan_messages_skipped_total: skipped messages by reason
//   - scan_rate_limit_backoffs_total: adaptive rate reductions
//   - scan_unique_senders: senders found per successful scan
//   - unsubscribe_link_lookups_total: sender lookups by winning strategy
//
// Google API metrics:
//   - google_api_operations_total, google_api_operation_duration_seconds
//
// MCP and HTTP metrics:
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//   - http_requests_total, http_request_duration_seconds
//
// # Tracing
//
// Spans are created for scans (scan.run, carrying the message and sender
// counts), unsubscribe link lookups (scan.find_unsubscribe_links, carrying
// the sender domain only), MCP tool invocations (tool.<name>) and Gmail API
// calls (google.gmail.<operation>).
//
// # Audit Logging
//
// AuditLogger writes one record per tool invocation. Handlers annotate the
// record found through InvocationFromContext. Sender addresses are reduced
// to their domains unless AUDIT_LOGGING_INCLUDE_PII is set.
//
// # Configuration
//
// Instrumentation is configured from the environment:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: sendersweep)
//   - METRICS_ACCOUNT_LABELS: add the account label to tool metrics
//
// The scan profile (rate mode, caps, concurrency) is attached to all
// telemetry as sendersweep.scan.* resource attributes, and the fetch cap
// sizes the scan_unique_senders buckets.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordScan(ctx, instrumentation.ScanStats{Status: instrumentation.StatusSuccess})
package instrumentation
