package gmail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gmail "google.golang.org/api/gmail/v1"
)

func TestHeaderValue(t *testing.T) {
	msg := &gmail.Message{Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
		{Name: "From", Value: "first@example.com"},
		{Name: "from", Value: "second@example.com"},
		nil,
		{Name: "LIST-UNSUBSCRIBE", Value: "<mailto:u@example.com>"},
	}}}

	assert.Equal(t, "first@example.com", HeaderValue(msg, "From"))
	assert.Equal(t, "<mailto:u@example.com>", HeaderValue(msg, HeaderListUnsubscribe))
	assert.Equal(t, "", HeaderValue(msg, "Subject"))
	assert.Equal(t, "", HeaderValue(&gmail.Message{}, "From"))
	assert.Equal(t, "", HeaderValue(nil, "From"))
}

func TestMetadataFromMessage(t *testing.T) {
	assert.Nil(t, MetadataFromMessage(nil))

	meta := MetadataFromMessage(&gmail.Message{
		Id:           "x",
		InternalDate: 42,
		LabelIds:     []string{"INBOX"},
		Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
			{Name: "List-Unsubscribe-Post", Value: "List-Unsubscribe=One-Click"},
		}},
	})
	assert.Equal(t, "x", meta.ID)
	assert.False(t, meta.Unread())
	assert.True(t, meta.HasLabel("INBOX"))
	assert.True(t, meta.HasUnsubscribeHeader())
	assert.Empty(t, meta.From)
	assert.True(t, meta.NoSubject)

	meta = MetadataFromMessage(&gmail.Message{Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
		{Name: "Subject", Value: ""},
	}}})
	assert.Empty(t, meta.Subject)
	assert.False(t, meta.NoSubject)
}
