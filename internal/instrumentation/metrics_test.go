package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualMetrics(t *testing.T, detailed bool) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), detailed)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordScan(t *testing.T) {
	m, reader := newManualMetrics(t, false)
	ctx := context.Background()

	m.RecordScan(ctx, ScanStats{Status: StatusSuccess, Mode: "fixed", Duration: 3 * time.Second, Collected: 40, Fetched: 38, Senders: 7})
	m.RecordMessageSkipped(ctx, "quota")
	m.RecordMessageSkipped(ctx, "no_sender")
	m.RecordRateLimitBackoff(ctx)

	got := collect(t, reader)
	assert.Equal(t, int64(1), sumValue(t, got["scans_total"]))
	assert.Equal(t, int64(40), sumValue(t, got["scan_messages_collected_total"]))
	assert.Equal(t, int64(38), sumValue(t, got["scan_messages_fetched_total"]))
	assert.Equal(t, int64(2), sumValue(t, got["scan_messages_skipped_total"]))
	assert.Equal(t, int64(1), sumValue(t, got["scan_rate_limit_backoffs_total"]))
	assert.Contains(t, got, "scan_duration_seconds")
	assert.Contains(t, got, "scan_unique_senders")
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	m, reader := newManualMetrics(t, false)
	ctx := context.Background()

	m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationList, StatusSuccess, 200*time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationGet, "quota", 50*time.Millisecond)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, got["google_api_operations_total"]))
}

func TestMetrics_RecordLinkLookup(t *testing.T) {
	m, reader := newManualMetrics(t, false)
	ctx := context.Background()

	m.RecordLinkLookup(ctx, "header")
	m.RecordLinkLookup(ctx, "")

	got := collect(t, reader)
	sum := got["unsubscribe_link_lookups_total"].Data.(metricdata.Sum[int64])
	strategies := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attrStrategy)
		strategies[v.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"header": 1, "none": 1}, strategies)
}

func TestMetrics_ToolInvocationAccountLabel(t *testing.T) {
	for _, detailed := range []bool{false, true} {
		m, reader := newManualMetrics(t, detailed)
		m.RecordToolInvocationWithAccount(context.Background(), "gmail_scan_senders", StatusSuccess, "work", time.Second)

		sum := collect(t, reader)["mcp_tool_invocations_total"].Data.(metricdata.Sum[int64])
		require.Len(t, sum.DataPoints, 1)
		_, hasAccount := sum.DataPoints[0].Attributes.Value(attrAccount)
		assert.Equal(t, detailed, hasAccount)
	}
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m, reader := newManualMetrics(t, false)
	m.RecordHTTPRequest(context.Background(), "POST", "/mcp", 200, 10*time.Millisecond)
	assert.Equal(t, int64(1), sumValue(t, collect(t, reader)["http_requests_total"]))
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
		m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationGet, StatusSuccess, time.Millisecond)
		m.RecordScan(ctx, ScanStats{Status: StatusSuccess})
		m.RecordMessageSkipped(ctx, "quota")
		m.RecordRateLimitBackoff(ctx)
		m.RecordLinkLookup(ctx, "body")
		m.RecordToolInvocation(ctx, "t", StatusSuccess, time.Millisecond)
	})

	empty := &Metrics{}
	assert.NotPanics(t, func() {
		empty.RecordScan(ctx, ScanStats{Status: StatusError})
		empty.RecordToolInvocationWithAccount(ctx, "t", StatusError, "a", time.Millisecond)
	})
}
