package scan

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// Layouts tried when net/mail cannot parse a Date header.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

var trailingComment = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// parseDateHeader parses a Date header value.
func parseDateHeader(h string) (time.Time, bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return time.Time{}, false
	}
	if t, err := mail.ParseDate(h); err == nil {
		return t, true
	}

	h = trailingComment.ReplaceAllString(h, "")
	if t, err := mail.ParseDate(h); err == nil {
		return t, true
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, h); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// effectiveDate returns the parsed Date header, falling back to the
// provider's internal timestamp in epoch milliseconds. ok is false when
// neither is usable.
func effectiveDate(dateHeader string, internalDate int64) (time.Time, bool) {
	if t, ok := parseDateHeader(dateHeader); ok {
		return t.UTC(), true
	}
	if internalDate > 0 {
		return time.UnixMilli(internalDate).UTC(), true
	}
	return time.Time{}, false
}
