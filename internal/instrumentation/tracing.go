package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer and meter of sendersweep.
const TracerName = "github.com/teemow/sendersweep"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrReadOnly  = "mcp.read_only"
	SpanAttrAccount   = "mail.account"
	SpanAttrService   = "google.service"
	SpanAttrOperation = "google.operation"

	SpanAttrScanID       = "scan.id"
	SpanAttrRateMode     = "scan.rate_mode"
	SpanAttrCollected    = "scan.messages.collected"
	SpanAttrFetched      = "scan.messages.fetched"
	SpanAttrSkipped      = "scan.messages.skipped"
	SpanAttrSenders      = "scan.senders"
	SpanAttrSenderDomain = "unsubscribe.sender_domain"
	SpanAttrLinks        = "unsubscribe.links"
	SpanAttrTier         = "unsubscribe.tier"
	SpanAttrChecked      = "unsubscribe.messages_checked"
)

// Span names.
const (
	SpanScan       = "scan.run"
	SpanLinkLookup = "scan.find_unsubscribe_links"
)

// SpanAttributeBuilder collects span attributes, skipping empty values.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder returns an empty builder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{}
}

// WithService sets the Google service.
func (b *SpanAttributeBuilder) WithService(service string) *SpanAttributeBuilder {
	return b.with(SpanAttrService, service)
}

// WithOperation sets the operation type.
func (b *SpanAttributeBuilder) WithOperation(operation string) *SpanAttributeBuilder {
	return b.with(SpanAttrOperation, operation)
}

// WithAccount sets the mailbox account.
func (b *SpanAttributeBuilder) WithAccount(account string) *SpanAttributeBuilder {
	return b.with(SpanAttrAccount, account)
}

// WithReadOnly marks whether the operation leaves the mailbox untouched.
func (b *SpanAttributeBuilder) WithReadOnly(readOnly bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Bool(SpanAttrReadOnly, readOnly))
	return b
}

func (b *SpanAttributeBuilder) with(key, value string) *SpanAttributeBuilder {
	if value != "" {
		b.attrs = append(b.attrs, attribute.String(key, value))
	}
	return b
}

// Build returns the collected attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartScanSpan starts the span covering one mailbox scan. End it with
// EndScanSpan.
func StartScanSpan(ctx context.Context, scanID, account, rateMode string) (context.Context, trace.Span) {
	attrs := NewSpanAttributeBuilder().
		with(SpanAttrScanID, scanID).
		WithAccount(account).
		with(SpanAttrRateMode, rateMode).
		Build()
	return tracer().Start(ctx, SpanScan, trace.WithAttributes(attrs...))
}

// EndScanSpan records the scan counters and outcome on span and ends it.
func EndScanSpan(span trace.Span, stats ScanStats, skipped int, err error) {
	span.SetAttributes(
		attribute.Int(SpanAttrCollected, stats.Collected),
		attribute.Int(SpanAttrFetched, stats.Fetched),
		attribute.Int(SpanAttrSkipped, skipped),
		attribute.Int(SpanAttrSenders, stats.Senders),
	)
	finishSpan(span, err)
}

// StartLinkLookupSpan starts the span of an unsubscribe link lookup. Only
// the sender's domain is recorded.
func StartLinkLookupSpan(ctx context.Context, senderDomain string) (context.Context, trace.Span) {
	return tracer().Start(ctx, SpanLinkLookup,
		trace.WithAttributes(attribute.String(SpanAttrSenderDomain, senderDomain)))
}

// EndLinkLookupSpan records what a link lookup found on span and ends it.
func EndLinkLookupSpan(span trace.Span, tier string, links, checked int, err error) {
	span.SetAttributes(
		attribute.Int(SpanAttrLinks, links),
		attribute.Int(SpanAttrChecked, checked),
	)
	if tier != "" {
		span.SetAttributes(attribute.String(SpanAttrTier, tier))
	}
	finishSpan(span, err)
}

// StartToolSpan starts the server span of an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)
	return tracer().Start(ctx, "tool."+toolName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGoogleAPISpan starts the client span of one Google API call.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)
	return tracer().Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		SetSpanError(span, err)
	} else {
		SetSpanSuccess(span)
	}
	span.End()
}

// SetSpanError records err on span and marks it failed. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks span as successful.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
