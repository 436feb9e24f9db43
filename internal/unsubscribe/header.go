package unsubscribe

import (
	"strings"

	"github.com/teemow/sendersweep/internal/gmail"
)

// Method types of a List-Unsubscribe target.
const (
	MethodMailto = "mailto"
	MethodHTTP   = "http"
)

// Method is one target advertised by a List-Unsubscribe header.
type Method struct {
	Type string // MethodMailto or MethodHTTP
	URL  string
}

// ParseListUnsubscribe parses a List-Unsubscribe header value such as
//
//	<mailto:unsub@example.com?subject=unsubscribe>, <https://example.com/unsub>
//
// Only mailto, http and https targets are returned, in header order.
func ParseListUnsubscribe(header string) []Method {
	var methods []Method

	for _, part := range strings.Split(header, "<") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		end := strings.Index(part, ">")
		if end == -1 {
			continue
		}
		target := strings.TrimSpace(part[:end])

		switch {
		case strings.HasPrefix(target, "mailto:"):
			methods = append(methods, Method{Type: MethodMailto, URL: target})
		case isHTTPURL(target):
			methods = append(methods, Method{Type: MethodHTTP, URL: target})
		}
	}

	return methods
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// HeaderStrategy reads links from the List-Unsubscribe header.
type HeaderStrategy struct{}

// Name implements Strategy.
func (HeaderStrategy) Name() string { return "list-unsubscribe-header" }

// Extract implements Strategy.
func (HeaderStrategy) Extract(m *Message) []string {
	methods := ParseListUnsubscribe(m.Header(gmail.HeaderListUnsubscribe))
	if len(methods) == 0 {
		return nil
	}
	links := make([]string, 0, len(methods))
	for _, method := range methods {
		links = append(links, method.URL)
	}
	return links
}
