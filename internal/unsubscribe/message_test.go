package unsubscribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gmailv1 "google.golang.org/api/gmail/v1"
)

func TestPartText_DepthFirstOrder(t *testing.T) {
	root := &gmailv1.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailv1.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmailv1.MessagePart{
					textPart("text/plain", "one"),
					textPart("text/html", "two"),
				},
			},
			nil,
			textPart("text/plain", "three"),
			{MimeType: "application/pdf", Body: &gmailv1.MessagePartBody{AttachmentId: "att"}},
		},
	}

	assert.Equal(t, "one\ntwo\nthree", partText(root))
}

func TestPartText_BodyDataStopsDescent(t *testing.T) {
	root := &gmailv1.MessagePart{
		Body:  &gmailv1.MessagePartBody{Data: b64("outer")},
		Parts: []*gmailv1.MessagePart{textPart("text/plain", "inner")},
	}
	assert.Equal(t, "outer", partText(root))
}

func TestPartText_DeepNesting(t *testing.T) {
	leaf := textPart("text/plain", "deep unsubscribe https://example.com/unsubscribe")
	root := leaf
	for i := 0; i < 10000; i++ {
		root = &gmailv1.MessagePart{MimeType: "multipart/mixed", Parts: []*gmailv1.MessagePart{root}}
	}
	assert.Equal(t, "deep unsubscribe https://example.com/unsubscribe", partText(root))
}

func TestMessageText_Cached(t *testing.T) {
	raw := &gmailv1.Message{Payload: textPart("text/plain", "first")}
	m := NewMessage(raw)
	assert.Equal(t, "first", m.Text())

	raw.Payload = textPart("text/plain", "second")
	assert.Equal(t, "first", m.Text())

	assert.Equal(t, "", NewMessage(nil).Text())
	assert.Equal(t, "", NewMessage(nil).Header("From"))
}
