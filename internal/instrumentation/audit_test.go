package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrKeys(attrs []slog.Attr) map[string]slog.Value {
	out := make(map[string]slog.Value, len(attrs))
	for _, a := range attrs {
		out[a.Key] = a.Value
	}
	return out
}

func TestToolInvocation_Lifecycle(t *testing.T) {
	ti := NewToolInvocation("gmail_scan_senders", "work", OperationList).
		WithSpanContext(context.Background())
	assert.Empty(t, ti.TraceID)

	ti.Finish(nil)
	assert.True(t, ti.Success())
	assert.Equal(t, StatusSuccess, ti.Status())

	ti.Finish(errors.New("quota"))
	assert.False(t, ti.Success())
	assert.Equal(t, StatusError, ti.Status())
}

func TestToolInvocation_LogAttrs(t *testing.T) {
	ti := NewToolInvocation("gmail_find_unsubscribe_links", "work", OperationGet).
		WithTargets("news@Shop.com", "deals@shop.com", "hello@blog.io", "label:newsletters").
		WithResults(3).
		Finish(nil)

	got := attrKeys(ti.LogAttrs(false))
	assert.Equal(t, "work", got["account"].String())
	assert.Equal(t, StatusSuccess, got["status"].String())
	assert.Equal(t, int64(4), got["target_count"].Int64())
	assert.Equal(t, []string{"shop.com", "blog.io"}, got["target_domains"].Any())
	assert.Equal(t, int64(3), got["results"].Int64())
	assert.NotContains(t, got, "targets")
	assert.NotContains(t, got, "error")

	pii := attrKeys(ti.LogAttrs(true))
	assert.Equal(t, ti.Targets, pii["targets"].Any())
	assert.NotContains(t, pii, "target_domains")
}

func TestToolInvocation_LogAttrs_Failure(t *testing.T) {
	ti := NewToolInvocation("gmail_scan_senders", "default", OperationList).
		WithScan("scan-1", 0).
		Finish(errors.New("boom"))

	got := attrKeys(ti.LogAttrs(false))
	assert.Equal(t, "boom", got["error"].String())
	assert.Equal(t, "scan-1", got["scan_id"].String())
	assert.NotContains(t, got, "results")
	assert.NotContains(t, got, "target_count")
}

func TestInvocationFromContext(t *testing.T) {
	detached := InvocationFromContext(context.Background())
	require.NotNil(t, detached)
	detached.WithTargets("a@b.c")

	ti := NewToolInvocation("t", "default", OperationGet)
	ctx := ContextWithInvocation(context.Background(), ti)
	InvocationFromContext(ctx).WithTargets("x@y.z").WithResults(1)
	assert.Equal(t, []string{"x@y.z"}, ti.Targets)
	assert.Equal(t, 1, ti.Results)
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := context.Background()

	al := NewAuditLogger(logger)
	al.LogToolInvocation(ctx, NewToolInvocation("ok", "default", OperationGet).WithTargets("jane@example.com").Finish(nil))
	al.LogToolInvocation(ctx, NewToolInvocation("bad", "default", OperationGet).Finish(errors.New("x")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "tool_executed", first["msg"])
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "tool_failed", second["msg"])
	assert.Equal(t, "WARN", second["level"])
	assert.NotContains(t, buf.String(), "jane@example.com")

	buf.Reset()
	al.SetIncludePII(true)
	al.LogToolInvocation(ctx, NewToolInvocation("ok", "default", OperationGet).WithTargets("jane@example.com").Finish(nil))
	assert.Contains(t, buf.String(), "jane@example.com")

	buf.Reset()
	al.SetEnabled(false)
	al.LogToolInvocation(ctx, NewToolInvocation("ok", "default", OperationGet).Finish(nil))
	assert.Empty(t, buf.String())

	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(ctx, NewToolInvocation("ok", "default", OperationGet).Finish(nil))
}

func TestAuditLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, LogLevel: "debug"})
	al.LogToolInvocation(context.Background(), NewToolInvocation("ok", "default", OperationGet).Finish(nil))
	assert.Contains(t, buf.String(), "level=DEBUG")

	buf.Reset()
	al = NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, LogLevel: "error"})
	al.LogToolInvocation(context.Background(), NewToolInvocation("bad", "default", OperationGet).Finish(errors.New("x")))
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestNewAuditLogger_NilLogger(t *testing.T) {
	assert.NotNil(t, NewAuditLogger(nil))
	assert.NotNil(t, NewAuditLoggerWithConfig(nil, AuditLoggingConfig{LogLevel: "bogus"}))
}
