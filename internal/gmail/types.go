package gmail

import (
	"slices"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// Header names requested when fetching message metadata.
const (
	HeaderFrom                = "From"
	HeaderSubject             = "Subject"
	HeaderDate                = "Date"
	HeaderListUnsubscribe     = "List-Unsubscribe"
	HeaderListUnsubscribePost = "List-Unsubscribe-Post"
)

// LabelUnread is the system label Gmail attaches to unread messages.
const LabelUnread = "UNREAD"

// MetadataHeaders are the headers a scan needs from every message.
var MetadataHeaders = []string{
	HeaderFrom,
	HeaderSubject,
	HeaderDate,
	HeaderListUnsubscribe,
	HeaderListUnsubscribePost,
}

// MessageRef identifies a message returned by a list query.
type MessageRef struct {
	ID string
}

// ListPage is one page of a message list query.
type ListPage struct {
	Messages      []MessageRef
	NextPageToken string
}

// MessageMetadata holds the headers and labels of one message.
// Header fields are empty when the header is absent.
type MessageMetadata struct {
	ID                  string
	From                string
	Subject             string
	NoSubject           bool // Subject header absent
	Date                string
	InternalDate        int64 // epoch milliseconds
	Labels              []string
	ListUnsubscribe     string
	ListUnsubscribePost string
}

// HasLabel reports whether the message carries the label.
func (m *MessageMetadata) HasLabel(label string) bool {
	return slices.Contains(m.Labels, label)
}

// Unread reports whether the message carries the UNREAD label.
func (m *MessageMetadata) Unread() bool {
	return m.HasLabel(LabelUnread)
}

// HasUnsubscribeHeader reports whether either unsubscribe header is present.
func (m *MessageMetadata) HasUnsubscribeHeader() bool {
	return m.ListUnsubscribe != "" || m.ListUnsubscribePost != ""
}

// MetadataFromMessage converts an API message fetched in metadata or full
// format.
func MetadataFromMessage(msg *gmail.Message) *MessageMetadata {
	if msg == nil {
		return nil
	}
	subject, ok := lookupHeader(msg, HeaderSubject)
	return &MessageMetadata{
		ID:                  msg.Id,
		From:                HeaderValue(msg, HeaderFrom),
		Subject:             subject,
		NoSubject:           !ok,
		Date:                HeaderValue(msg, HeaderDate),
		InternalDate:        msg.InternalDate,
		Labels:              msg.LabelIds,
		ListUnsubscribe:     HeaderValue(msg, HeaderListUnsubscribe),
		ListUnsubscribePost: HeaderValue(msg, HeaderListUnsubscribePost),
	}
}

// HeaderValue returns the first top-level header with the given name.
// Header names are matched case-insensitively.
func HeaderValue(m *gmail.Message, header string) string {
	v, _ := lookupHeader(m, header)
	return v
}

func lookupHeader(m *gmail.Message, header string) (string, bool) {
	if m == nil || m.Payload == nil {
		return "", false
	}
	for _, h := range m.Payload.Headers {
		if h != nil && strings.EqualFold(h.Name, header) {
			return h.Value, true
		}
	}
	return "", false
}
