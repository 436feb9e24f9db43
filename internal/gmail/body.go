package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"
)

var bodyEncodings = []*base64.Encoding{
	base64.URLEncoding,
	base64.RawURLEncoding,
	base64.StdEncoding,
	base64.RawStdEncoding,
}

// DecodeBodyData decodes a MessagePartBody.Data payload. Gmail uses
// base64url, but padding and alphabet vary between messages, so every
// common variant is tried.
func DecodeBodyData(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	var lastErr error
	for _, enc := range bodyEncodings {
		decoded, err := enc.DecodeString(data)
		if err == nil {
			return decoded, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to decode message body: %w", lastErr)
}
