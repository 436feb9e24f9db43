package scan

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rate modes of the fetch scheduler.
const (
	// RateModeFixed throttles with fixed delays between groups and batches.
	RateModeFixed = "fixed"
	// RateModeAdaptive throttles with a token bucket that slows down when the
	// provider reports quota errors.
	RateModeAdaptive = "adaptive"
)

// Default values of Config.
const (
	DefaultPageSize           = 500
	DefaultListCap            = 2000
	DefaultFetchCap           = 500
	DefaultBatchSize          = 20
	DefaultConcurrency        = 5
	DefaultGroupDelay         = 200 * time.Millisecond
	DefaultBatchDelay         = 500 * time.Millisecond
	DefaultRateLimit          = 25.0
	DefaultRateBurst          = 5
	DefaultLinkLookupMessages = 10
)

// DefaultQueries select all and unread messages of the Promotions and
// Updates categories.
var DefaultQueries = []string{
	"category:promotions",
	"is:unread category:promotions",
	"category:updates",
	"is:unread category:updates",
}

// Config tunes a scan. The caps trade completeness for bounded runtime and
// API quota on large mailboxes.
type Config struct {
	// Queries are the category queries whose results are merged.
	Queries []string `yaml:"queries"`
	// PageSize is the number of IDs requested per list call (max 500).
	PageSize int64 `yaml:"page_size"`
	// ListCap stops pagination once this many unique IDs were collected
	// over all queries.
	ListCap int `yaml:"list_cap"`
	// FetchCap is the number of unique messages whose metadata is fetched.
	FetchCap int `yaml:"fetch_cap"`

	// BatchSize is the number of messages per outer batch.
	BatchSize int `yaml:"batch_size"`
	// Concurrency is the number of messages fetched in parallel per group.
	Concurrency int `yaml:"concurrency"`
	// GroupDelay is the pause between groups in fixed mode.
	GroupDelay time.Duration `yaml:"group_delay"`
	// BatchDelay is the pause between batches in fixed mode.
	BatchDelay time.Duration `yaml:"batch_delay"`

	// RateMode is RateModeFixed or RateModeAdaptive.
	RateMode string `yaml:"rate_mode"`
	// RateLimit is the initial and maximum request rate per second in
	// adaptive mode.
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the token bucket size in adaptive mode.
	RateBurst int `yaml:"rate_burst"`

	// LinkLookupMessages is how many recent messages of a sender are
	// inspected when looking for unsubscribe links.
	LinkLookupMessages int64 `yaml:"link_lookup_messages"`
}

// Defaults returns the built-in configuration without consulting the
// environment.
func Defaults() Config {
	return Config{
		Queries:            append([]string(nil), DefaultQueries...),
		PageSize:           DefaultPageSize,
		ListCap:            DefaultListCap,
		FetchCap:           DefaultFetchCap,
		BatchSize:          DefaultBatchSize,
		Concurrency:        DefaultConcurrency,
		GroupDelay:         DefaultGroupDelay,
		BatchDelay:         DefaultBatchDelay,
		RateMode:           RateModeFixed,
		RateLimit:          DefaultRateLimit,
		RateBurst:          DefaultRateBurst,
		LinkLookupMessages: DefaultLinkLookupMessages,
	}
}

// DefaultConfig returns the built-in configuration with environment
// overrides applied.
func DefaultConfig() Config {
	c := Defaults()
	c.ApplyEnv()
	return c
}

// LoadConfig builds a configuration from the defaults, the YAML file at path
// (skipped when path is empty) and the environment, in that order.
func LoadConfig(path string) (Config, error) {
	c := Defaults()
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	c.ApplyEnv()
	return c, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open scan config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse scan config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from SCAN_* environment variables. Unparsable
// values are ignored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SCAN_QUERIES"); v != "" {
		c.Queries = splitQueries(v)
	}
	c.PageSize = int64(getEnvIntOrDefault("SCAN_PAGE_SIZE", int(c.PageSize)))
	c.ListCap = getEnvIntOrDefault("SCAN_LIST_CAP", c.ListCap)
	c.FetchCap = getEnvIntOrDefault("SCAN_FETCH_CAP", c.FetchCap)
	c.BatchSize = getEnvIntOrDefault("SCAN_BATCH_SIZE", c.BatchSize)
	c.Concurrency = getEnvIntOrDefault("SCAN_CONCURRENCY", c.Concurrency)
	c.GroupDelay = getEnvDurationOrDefault("SCAN_GROUP_DELAY", c.GroupDelay)
	c.BatchDelay = getEnvDurationOrDefault("SCAN_BATCH_DELAY", c.BatchDelay)
	if v := os.Getenv("SCAN_RATE_MODE"); v != "" {
		c.RateMode = strings.ToLower(v)
	}
	c.RateLimit = getEnvFloatOrDefault("SCAN_RATE_LIMIT", c.RateLimit)
	c.RateBurst = getEnvIntOrDefault("SCAN_RATE_BURST", c.RateBurst)
	c.LinkLookupMessages = int64(getEnvIntOrDefault("SCAN_LINK_LOOKUP_MESSAGES", int(c.LinkLookupMessages)))
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Queries) == 0 {
		errs = append(errs, errors.New("at least one query is required"))
	}
	for i, q := range c.Queries {
		if strings.TrimSpace(q) == "" {
			errs = append(errs, fmt.Errorf("query %d is empty", i))
		}
	}
	if c.PageSize < 1 || c.PageSize > 500 {
		errs = append(errs, fmt.Errorf("page size must be between 1 and 500, got %d", c.PageSize))
	}
	if c.ListCap < 1 {
		errs = append(errs, fmt.Errorf("list cap must be positive, got %d", c.ListCap))
	}
	if c.FetchCap < 1 {
		errs = append(errs, fmt.Errorf("fetch cap must be positive, got %d", c.FetchCap))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}
	if c.GroupDelay < 0 || c.BatchDelay < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	switch c.RateMode {
	case RateModeFixed:
	case RateModeAdaptive:
		if c.RateLimit <= 0 {
			errs = append(errs, fmt.Errorf("rate limit must be positive in adaptive mode, got %g", c.RateLimit))
		}
		if c.RateBurst < 1 {
			errs = append(errs, fmt.Errorf("rate burst must be positive in adaptive mode, got %d", c.RateBurst))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid rate mode %q, must be one of: fixed, adaptive", c.RateMode))
	}
	if c.LinkLookupMessages < 1 {
		errs = append(errs, fmt.Errorf("link lookup messages must be positive, got %d", c.LinkLookupMessages))
	}

	return errors.Join(errs...)
}

// splitQueries splits on ";" since queries themselves contain spaces and
// may contain commas.
func splitQueries(v string) []string {
	var out []string
	for _, q := range strings.Split(v, ";") {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
