package scan

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailv1 "google.golang.org/api/gmail/v1"

	"github.com/teemow/sendersweep/internal/gmail"
	"github.com/teemow/sendersweep/internal/unsubscribe"
)

func fullMessage(id string, headers map[string]string, body string) *gmailv1.Message {
	payload := &gmailv1.MessagePart{MimeType: "text/plain"}
	for k, v := range headers {
		payload.Headers = append(payload.Headers, &gmailv1.MessagePartHeader{Name: k, Value: v})
	}
	if body != "" {
		payload.Body = &gmailv1.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte(body))}
	}
	return &gmailv1.Message{Id: id, Payload: payload}
}

func TestFindUnsubscribeLinks_FirstMessageWithLinksWins(t *testing.T) {
	p := newFakeProvider()
	p.queries["from:news@shop.com"] = []string{"1", "2", "3"}
	p.full["1"] = fullMessage("1", nil, "Thanks for your order.")
	p.full["2"] = fullMessage("2", map[string]string{
		gmail.HeaderListUnsubscribe:     "<mailto:u@shop.com>, <https://shop.com/u?id=1>, <https://shop.com/u?id=1>",
		gmail.HeaderListUnsubscribePost: "List-Unsubscribe=One-Click",
	}, "")
	p.full["3"] = fullMessage("3", map[string]string{
		gmail.HeaderListUnsubscribe: "<https://shop.com/other>",
	}, "")

	got, err := FindUnsubscribeLinks(context.Background(), p, "news@shop.com", 10, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"mailto:u@shop.com", "https://shop.com/u?id=1"}, got.Links)
	assert.True(t, got.OneClick)
	assert.Equal(t, unsubscribe.TierHeader, got.Tier)
	assert.Equal(t, "2", got.MessageID)
	assert.Equal(t, 2, got.MessagesChecked)
	assert.Zero(t, p.getCalls["3"])
}

func TestFindUnsubscribeLinks_BodyFallback(t *testing.T) {
	p := newFakeProvider()
	p.queries["from:news@shop.com"] = []string{"1"}
	p.full["1"] = fullMessage("1", nil, "Too many mails? click here to unsubscribe: https://x.com/unsub/123 thanks")

	got, err := FindUnsubscribeLinks(context.Background(), p, "news@shop.com", 10, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, got.Links, "https://x.com/unsub/123")
	assert.Equal(t, unsubscribe.TierBody, got.Tier)
}

func TestFindUnsubscribeLinks_NoLinks(t *testing.T) {
	p := newFakeProvider()
	p.queries["from:a@x.com"] = []string{"1", "gone"}
	p.full["1"] = fullMessage("1", nil, "hello")

	got, err := FindUnsubscribeLinks(context.Background(), p, "a@x.com", 10, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, got.Links)
	assert.Empty(t, got.Links)
	assert.Empty(t, got.Tier)
	assert.Equal(t, 1, got.MessagesChecked)
}

func TestFindUnsubscribeLinks_RespectsLimit(t *testing.T) {
	p := newFakeProvider()
	p.queries["from:a@x.com"] = []string{"1", "2", "3"}
	p.full["1"] = fullMessage("1", nil, "hello")
	p.full["2"] = fullMessage("2", nil, "hello")
	p.full["3"] = fullMessage("3", map[string]string{gmail.HeaderListUnsubscribe: "<https://x.com/u>"}, "")

	got, err := FindUnsubscribeLinks(context.Background(), p, "a@x.com", 2, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got.Links)
	assert.Equal(t, 2, got.MessagesChecked)
}

func TestFindUnsubscribeLinks_Errors(t *testing.T) {
	_, err := FindUnsubscribeLinks(context.Background(), newFakeProvider(), "  ", 10, nil, nil)
	assert.Error(t, err)

	p := newFakeProvider()
	p.queries["from:a@x.com"] = []string{"1"}
	p.getErrs["1"] = authErr()
	_, err = FindUnsubscribeLinks(context.Background(), p, "a@x.com", 10, nil, nil)
	require.Error(t, err)
	assert.True(t, gmail.IsAuthError(err))
}
