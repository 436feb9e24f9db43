package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBodyData(t *testing.T) {
	// "?>?" encodes to characters that differ between the URL and standard alphabets.
	plain := "unsubscribe here ?>? https://example.com/u"

	for name, enc := range map[string]*base64.Encoding{
		"url":     base64.URLEncoding,
		"raw url": base64.RawURLEncoding,
		"std":     base64.StdEncoding,
		"raw std": base64.RawStdEncoding,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeBodyData(enc.EncodeToString([]byte(plain)))
			require.NoError(t, err)
			assert.Equal(t, plain, string(got))
		})
	}
}

func TestDecodeBodyDataInvalid(t *testing.T) {
	_, err := DecodeBodyData("***not base64***")
	assert.Error(t, err)
}
