package scan

import (
	"mime"
	"regexp"
	"strings"
)

var (
	angleAddrPattern = regexp.MustCompile(`<(.+?)>`)
	bareAddrPattern  = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	wordDecoder      = new(mime.WordDecoder)
)

// Sender identifies who sent a message.
type Sender struct {
	// Email is the aggregation key, kept exactly as it appears in the header.
	Email string
	Name  string
}

// ParseFrom extracts the sender from a raw From header. The address is
// taken from the angle-bracket form, then from the first bare address, then
// from the whole trimmed header. The display name is the header without the
// angle-bracket part, falling back to the address.
func ParseFrom(from string) Sender {
	from = strings.TrimSpace(from)
	if from == "" {
		return Sender{}
	}

	var email string
	if m := angleAddrPattern.FindStringSubmatch(from); m != nil {
		email = strings.TrimSpace(m[1])
	} else if m := bareAddrPattern.FindString(from); m != "" {
		email = m
	} else {
		email = from
	}

	name := strings.TrimSpace(angleAddrPattern.ReplaceAllString(from, ""))
	name = strings.TrimSpace(strings.Trim(name, `"'`))
	if decoded, err := wordDecoder.DecodeHeader(name); err == nil {
		name = decoded
	}
	if name == "" {
		name = email
	}

	return Sender{Email: email, Name: name}
}
