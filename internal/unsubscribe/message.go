package unsubscribe

import (
	"strings"

	gmailv1 "google.golang.org/api/gmail/v1"

	"github.com/teemow/sendersweep/internal/gmail"
)

// Message is the view of a fetched message that strategies work on. The body
// text is reconstructed at most once, on first use.
type Message struct {
	raw      *gmailv1.Message
	text     string
	textDone bool
}

// NewMessage wraps an API message fetched in full format.
func NewMessage(msg *gmailv1.Message) *Message {
	return &Message{raw: msg}
}

// Header returns the value of a top-level header, matched case-insensitively.
func (m *Message) Header(name string) string {
	return gmail.HeaderValue(m.raw, name)
}

// Text returns the decoded bodies of the MIME part tree in depth-first
// order, joined with newlines.
func (m *Message) Text() string {
	if !m.textDone {
		if m.raw != nil {
			m.text = partText(m.raw.Payload)
		}
		m.textDone = true
	}
	return m.text
}

// partText walks the part tree with an explicit stack. A part carrying body
// data contributes its decoded text and its children are not visited; a part
// without data contributes its children. Parts that fail to decode are
// skipped.
func partText(root *gmailv1.MessagePart) string {
	if root == nil {
		return ""
	}

	var texts []string
	stack := []*gmailv1.MessagePart{root}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if part == nil {
			continue
		}

		if part.Body != nil && part.Body.Data != "" {
			if data, err := gmail.DecodeBodyData(part.Body.Data); err == nil {
				texts = append(texts, string(data))
			}
			continue
		}

		for i := len(part.Parts) - 1; i >= 0; i-- {
			stack = append(stack, part.Parts[i])
		}
	}
	return strings.Join(texts, "\n")
}
