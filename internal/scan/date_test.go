package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		header   string
		internal int64
		want     time.Time
		ok       bool
	}{
		{"rfc5322", "Tue, 05 Mar 2024 11:00:00 +0100", 0, want, true},
		{"trailing comment", "Tue, 05 Mar 2024 10:00:00 +0000 (UTC)", 0, want, true},
		{"header wins", "Tue, 05 Mar 2024 10:00:00 +0000", 1, want, true},
		{"internal fallback", "not a date", want.UnixMilli(), want, true},
		{"missing header", "", want.UnixMilli(), want, true},
		{"nothing usable", "garbage", 0, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := effectiveDate(tt.header, tt.internal)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}
