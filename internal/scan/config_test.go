package scan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Defaults()
	require.NoError(t, c.Validate())

	assert.Equal(t, DefaultQueries, c.Queries)
	assert.Equal(t, int64(500), c.PageSize)
	assert.Equal(t, 2000, c.ListCap)
	assert.Equal(t, 500, c.FetchCap)
	assert.Equal(t, 20, c.BatchSize)
	assert.Equal(t, 5, c.Concurrency)
	assert.Equal(t, 200*time.Millisecond, c.GroupDelay)
	assert.Equal(t, 500*time.Millisecond, c.BatchDelay)
	assert.Equal(t, RateModeFixed, c.RateMode)
	assert.Equal(t, int64(10), c.LinkLookupMessages)

	c.Queries[0] = "changed"
	assert.Equal(t, "category:promotions", DefaultQueries[0])
}

func TestDefaultConfig_Env(t *testing.T) {
	t.Setenv("SCAN_QUERIES", "label:news; ;from:shop.com")
	t.Setenv("SCAN_LIST_CAP", "100")
	t.Setenv("SCAN_FETCH_CAP", "50")
	t.Setenv("SCAN_CONCURRENCY", "not-a-number")
	t.Setenv("SCAN_GROUP_DELAY", "1s")
	t.Setenv("SCAN_RATE_MODE", "Adaptive")
	t.Setenv("SCAN_RATE_LIMIT", "12.5")

	c := DefaultConfig()
	assert.Equal(t, []string{"label:news", "from:shop.com"}, c.Queries)
	assert.Equal(t, 100, c.ListCap)
	assert.Equal(t, 50, c.FetchCap)
	assert.Equal(t, DefaultConcurrency, c.Concurrency)
	assert.Equal(t, time.Second, c.GroupDelay)
	assert.Equal(t, RateModeAdaptive, c.RateMode)
	assert.Equal(t, 12.5, c.RateLimit)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
queries:
  - category:social
fetch_cap: 50
group_delay: 50ms
rate_mode: adaptive
rate_limit: 10
`), 0o600))
	t.Setenv("SCAN_FETCH_CAP", "75")

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"category:social"}, c.Queries)
	assert.Equal(t, 75, c.FetchCap, "environment overrides the file")
	assert.Equal(t, 50*time.Millisecond, c.GroupDelay)
	assert.Equal(t, RateModeAdaptive, c.RateMode)
	assert.Equal(t, 10.0, c.RateLimit)
	assert.Equal(t, DefaultListCap, c.ListCap, "unset fields keep their default")
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "scan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch_kap: 10\n"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err, "unknown fields are rejected")
}

func TestLoadConfig_NoPath(t *testing.T) {
	c, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFetchCap, c.FetchCap)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no queries", func(c *Config) { c.Queries = nil }, "at least one query"},
		{"blank query", func(c *Config) { c.Queries = []string{" "} }, "query 0 is empty"},
		{"page size", func(c *Config) { c.PageSize = 501 }, "page size"},
		{"list cap", func(c *Config) { c.ListCap = 0 }, "list cap"},
		{"fetch cap", func(c *Config) { c.FetchCap = -1 }, "fetch cap"},
		{"batch size", func(c *Config) { c.BatchSize = 0 }, "batch size"},
		{"negative delay", func(c *Config) { c.GroupDelay = -time.Second }, "delays"},
		{"rate mode", func(c *Config) { c.RateMode = "burst" }, "invalid rate mode"},
		{"adaptive rate", func(c *Config) { c.RateMode = RateModeAdaptive; c.RateLimit = 0 }, "rate limit"},
		{"adaptive burst", func(c *Config) { c.RateMode = RateModeAdaptive; c.RateBurst = 0 }, "rate burst"},
		{"lookup", func(c *Config) { c.LinkLookupMessages = 0 }, "link lookup"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
