package instrumentation

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/sendersweep/internal/logging"
)

// ToolInvocation is the audit record of one MCP tool call.
//
// # Privacy Considerations
//
// Targets hold sender addresses and search queries, which identify who
// mails the account owner. Unless the AuditLogger includes PII, only the
// sender domains and the number of targets are logged.
type ToolInvocation struct {
	Tool      string
	Account   string // Account name (default, work, personal)
	Operation string // list, get

	// Targets are the senders or queries the call acted on.
	Targets []string
	// ScanID links a scan tool call to the report it produced.
	ScanID string
	// Results is the number of senders or links returned.
	Results int

	StartTime time.Time
	Duration  time.Duration
	Err       error

	TraceID string
	SpanID  string
}

type invocationKey struct{}

// NewToolInvocation creates a ToolInvocation with timing started.
// Call Finish when the tool call returns.
func NewToolInvocation(tool, account, operation string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		Account:   account,
		Operation: operation,
		StartTime: time.Now(),
	}
}

// ContextWithInvocation stores ti so that tool handlers can annotate it.
func ContextWithInvocation(ctx context.Context, ti *ToolInvocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, ti)
}

// InvocationFromContext returns the invocation stored in ctx. Handlers called
// outside InstrumentedToolHandler get a detached record, so annotating is
// always safe.
func InvocationFromContext(ctx context.Context) *ToolInvocation {
	if ti, ok := ctx.Value(invocationKey{}).(*ToolInvocation); ok {
		return ti
	}
	return &ToolInvocation{}
}

// WithTargets records the senders or queries the call acted on.
func (ti *ToolInvocation) WithTargets(targets ...string) *ToolInvocation {
	ti.Targets = append(ti.Targets, targets...)
	return ti
}

// WithScan records the scan the call produced and how many senders it
// returned.
func (ti *ToolInvocation) WithScan(scanID string, senders int) *ToolInvocation {
	ti.ScanID = scanID
	ti.Results = senders
	return ti
}

// WithResults records the number of returned items.
func (ti *ToolInvocation) WithResults(n int) *ToolInvocation {
	ti.Results = n
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Finish stops the clock. A nil err marks the call successful.
func (ti *ToolInvocation) Finish(err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Err = err
	return ti
}

// Success reports whether the call finished without error.
func (ti *ToolInvocation) Success() bool {
	return ti.Err == nil
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success() {
		return StatusSuccess
	}
	return StatusError
}

// targetDomains returns the distinct domains of the targets in first-seen
// order. Queries without an address are skipped.
func (ti *ToolInvocation) targetDomains() []string {
	var out []string
	for _, t := range ti.Targets {
		domain := ExtractUserDomain(t)
		if domain == unknownDomain {
			continue
		}
		domain = strings.ToLower(domain)
		if !slices.Contains(out, domain) {
			out = append(out, domain)
		}
	}
	return out
}

// LogAttrs returns the attributes of the audit record. Targets are reduced
// to their domains unless includePII is set.
func (ti *ToolInvocation) LogAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		logging.Tool(ti.Tool),
		logging.Account(ti.Account),
		logging.Status(ti.Status()),
		slog.Duration(logging.KeyDuration, ti.Duration),
	}
	if ti.Operation != "" {
		attrs = append(attrs, logging.Operation(ti.Operation))
	}
	if len(ti.Targets) > 0 {
		attrs = append(attrs, slog.Int("target_count", len(ti.Targets)))
		if includePII {
			attrs = append(attrs, slog.Any("targets", ti.Targets))
		} else if domains := ti.targetDomains(); len(domains) > 0 {
			attrs = append(attrs, slog.Any("target_domains", domains))
		}
	}
	if ti.ScanID != "" {
		attrs = append(attrs, slog.String(logging.KeyScanID, ti.ScanID))
	}
	if ti.Success() {
		attrs = append(attrs, slog.Int("results", ti.Results))
	} else {
		attrs = append(attrs, logging.Err(ti.Err))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID), slog.String("span_id", ti.SpanID))
	}
	return attrs
}

// AuditLogger writes one structured record per tool call.
type AuditLogger struct {
	logger     *slog.Logger
	level      slog.Level
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an enabled AuditLogger that logs at info level and
// keeps targets anonymized.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	var level slog.Level
	if config.LogLevel != "" {
		if err := level.UnmarshalText([]byte(config.LogLevel)); err != nil {
			level = slog.LevelInfo
		}
	}
	return &AuditLogger{
		logger:     logger,
		level:      level,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether targets are logged in full.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogToolInvocation logs a finished tool call. Failures are logged at warn
// level or above.
func (al *AuditLogger) LogToolInvocation(ctx context.Context, ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	level, msg := al.level, "tool_executed"
	if !ti.Success() {
		level, msg = max(al.level, slog.LevelWarn), "tool_failed"
	}
	al.logger.LogAttrs(ctx, level, msg, ti.LogAttrs(al.includePII)...)
}
