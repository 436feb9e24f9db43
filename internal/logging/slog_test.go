package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatJSON, false)
	logger.Debug("hidden")
	logger.Info("shown", MessageID("m1"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "m1", entry[KeyMessageID])
}

func TestNewDebugText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "unknown", true)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatText, false)

	WithScanID(WithAccount(WithTool(WithOperation(logger, "scan"), "gmail_scan_senders"), "work"), "abc").Info("x")
	out := buf.String()
	assert.Contains(t, out, "operation=scan")
	assert.Contains(t, out, "tool=gmail_scan_senders")
	assert.Contains(t, out, "account=work")
	assert.Contains(t, out, "scan_id=abc")
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		attr slog.Attr
		key  string
		val  string
	}{
		{Operation("op"), KeyOperation, "op"},
		{Account("work"), KeyAccount, "work"},
		{Tool("t"), KeyTool, "t"},
		{Status(StatusSuccess), KeyStatus, "success"},
		{MessageID("18c"), KeyMessageID, "18c"},
		{Query("category:updates"), KeyQuery, "category:updates"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.val, tt.attr.Value.String())
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, "boom", attr.Value.String())

	assert.Equal(t, "", Err(nil).Key)
}

func TestAnonymizeEmail(t *testing.T) {
	got := AnonymizeEmail("jane@example.com")
	assert.Len(t, got, 21)
	assert.True(t, strings.HasPrefix(got, "user:"))
	assert.Equal(t, got, AnonymizeEmail("jane@example.com"))
	assert.NotEqual(t, got, AnonymizeEmail("other@example.com"))
	assert.Equal(t, "", AnonymizeEmail(""))
}

func TestUserHash(t *testing.T) {
	attr := UserHash("jane@example.com")
	assert.Equal(t, KeyUserHash, attr.Key)
	assert.Len(t, attr.Value.String(), 21)
}

func TestSender(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, FormatJSON, false).Info("x", Sender("news@shop.example"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	group, ok := entry["sender"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "shop.example", group[KeySenderDomain])
	assert.Equal(t, AnonymizeEmail("news@shop.example"), group[KeySenderHash])
	assert.NotContains(t, buf.String(), "news@shop.example")
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "<empty>", SanitizeToken(""))
	assert.Equal(t, "[token:6 chars]", SanitizeToken("abc123"))
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"jane@example.com", "example.com"},
		{"user@gmail.com", "gmail.com"},
		{"invalid", ""},
		{"", ""},
		{"@", ""},
		{"user@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractDomain(tt.email))
		})
	}
}

func TestDomain(t *testing.T) {
	attr := Domain("jane@example.com")
	assert.Equal(t, "user_domain", attr.Key)
	assert.Equal(t, "example.com", attr.Value.String())
}
