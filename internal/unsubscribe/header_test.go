package unsubscribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gmailv1 "google.golang.org/api/gmail/v1"
)

func TestParseListUnsubscribe(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected []Method
	}{
		{
			name:     "single mailto",
			header:   "<mailto:unsubscribe@example.com>",
			expected: []Method{{Type: MethodMailto, URL: "mailto:unsubscribe@example.com"}},
		},
		{
			name:     "mailto with subject",
			header:   "<mailto:unsubscribe@example.com?subject=unsubscribe>",
			expected: []Method{{Type: MethodMailto, URL: "mailto:unsubscribe@example.com?subject=unsubscribe"}},
		},
		{
			name:   "mailto and https",
			header: "<mailto:a@b.com>, <https://example.com/u?id=1>",
			expected: []Method{
				{Type: MethodMailto, URL: "mailto:a@b.com"},
				{Type: MethodHTTP, URL: "https://example.com/u?id=1"},
			},
		},
		{
			name:     "plain http",
			header:   "<http://example.com/unsubscribe>",
			expected: []Method{{Type: MethodHTTP, URL: "http://example.com/unsubscribe"}},
		},
		{
			name:     "empty header",
			header:   "",
			expected: nil,
		},
		{
			name:   "extra whitespace",
			header: " < mailto:unsubscribe@example.com > , < https://example.com/unsub > ",
			expected: []Method{
				{Type: MethodMailto, URL: "mailto:unsubscribe@example.com"},
				{Type: MethodHTTP, URL: "https://example.com/unsub"},
			},
		},
		{
			name:     "unsupported scheme dropped",
			header:   "<ftp://example.com/unsub>, <https://example.com/unsub>",
			expected: []Method{{Type: MethodHTTP, URL: "https://example.com/unsub"}},
		},
		{
			name:     "unterminated token ignored",
			header:   "<https://example.com/a>, <https://example.com/b",
			expected: []Method{{Type: MethodHTTP, URL: "https://example.com/a"}},
		},
		{
			name:     "no angle brackets",
			header:   "https://example.com/unsubscribe",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseListUnsubscribe(tt.header))
		})
	}
}

func TestHeaderStrategy(t *testing.T) {
	msg := NewMessage(&gmailv1.Message{Payload: &gmailv1.MessagePart{Headers: []*gmailv1.MessagePartHeader{
		{Name: "list-unsubscribe", Value: "<mailto:a@b.com>, <https://example.com/u?id=1>"},
	}}})

	s := HeaderStrategy{}
	assert.Equal(t, "list-unsubscribe-header", s.Name())
	assert.Equal(t, []string{"mailto:a@b.com", "https://example.com/u?id=1"}, s.Extract(msg))
	assert.Nil(t, s.Extract(NewMessage(&gmailv1.Message{})))
}
