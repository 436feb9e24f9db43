package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/sendersweep/internal/gmail"
)

func refs(n int) []gmail.MessageRef {
	out := make([]gmail.MessageRef, n)
	for i := range out {
		out[i] = gmail.MessageRef{ID: fmt.Sprintf("m%02d", i)}
	}
	return out
}

func echoFetch(_ context.Context, ref gmail.MessageRef) (*gmail.MessageMetadata, error) {
	return &gmail.MessageMetadata{ID: ref.ID}, nil
}

func newTestScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	s, err := NewScheduler(cfg, nil, nil)
	require.NoError(t, err)
	return s
}

func TestNewScheduler_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Concurrency = 0
	_, err := NewScheduler(cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency")
}

func TestScheduler_YieldsInDispatchOrder(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 10
	cfg.Concurrency = 3
	s := newTestScheduler(t, cfg)

	in := refs(23)
	fetch := func(ctx context.Context, ref gmail.MessageRef) (*gmail.MessageMetadata, error) {
		// Later items of a group finish first.
		var n int
		fmt.Sscanf(ref.ID, "m%d", &n)
		time.Sleep(time.Duration(3-n%3) * time.Millisecond)
		return echoFetch(ctx, ref)
	}

	var got []string
	for r := range s.Fetch(context.Background(), in, fetch) {
		require.NoError(t, r.Err)
		require.Equal(t, r.Ref.ID, r.Metadata.ID)
		got = append(got, r.Ref.ID)
	}

	var want []string
	for _, r := range in {
		want = append(want, r.ID)
	}
	assert.Equal(t, want, got)
}

func TestScheduler_FixedDelays(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 5
	cfg.Concurrency = 2
	cfg.GroupDelay = 200 * time.Millisecond
	cfg.BatchDelay = 500 * time.Millisecond
	s := newTestScheduler(t, cfg)

	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	n := 0
	for range s.Fetch(context.Background(), refs(12), echoFetch) {
		n++
	}
	assert.Equal(t, 12, n)

	g, b := cfg.GroupDelay, cfg.BatchDelay
	// Batches of 5, 5 and 2; groups of 2, 2 and 1 within a full batch.
	assert.Equal(t, []time.Duration{g, g, b, g, g, b}, slept)
}

func TestScheduler_BoundedConcurrency(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 20
	cfg.Concurrency = 5
	s := newTestScheduler(t, cfg)

	var inFlight, peak atomic.Int32
	fetch := func(ctx context.Context, ref gmail.MessageRef) (*gmail.MessageMetadata, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return echoFetch(ctx, ref)
	}

	for range s.Fetch(context.Background(), refs(40), fetch) {
	}
	assert.LessOrEqual(t, peak.Load(), int32(5))
	assert.Positive(t, peak.Load())
}

func TestScheduler_PartialFailure(t *testing.T) {
	s := newTestScheduler(t, testConfig())

	fetch := func(ctx context.Context, ref gmail.MessageRef) (*gmail.MessageMetadata, error) {
		if ref.ID == "m07" {
			return nil, quotaErr()
		}
		return echoFetch(ctx, ref)
	}

	var ok, failed int
	for r := range s.Fetch(context.Background(), refs(20), fetch) {
		if r.Err != nil {
			failed++
			assert.Equal(t, "m07", r.Ref.ID)
			assert.Nil(t, r.Metadata)
			assert.True(t, gmail.IsQuotaError(r.Err))
			continue
		}
		ok++
	}
	assert.Equal(t, 19, ok)
	assert.Equal(t, 1, failed)
}

func TestScheduler_NilMetadataIsAnError(t *testing.T) {
	s := newTestScheduler(t, testConfig())
	fetch := func(context.Context, gmail.MessageRef) (*gmail.MessageMetadata, error) {
		return nil, nil
	}

	for r := range s.Fetch(context.Background(), refs(1), fetch) {
		assert.Error(t, r.Err)
	}
}

func TestScheduler_StopsWhenConsumerBreaks(t *testing.T) {
	cfg := testConfig()
	cfg.Concurrency = 2
	s := newTestScheduler(t, cfg)

	var calls atomic.Int32
	fetch := func(ctx context.Context, ref gmail.MessageRef) (*gmail.MessageMetadata, error) {
		calls.Add(1)
		return echoFetch(ctx, ref)
	}

	for range s.Fetch(context.Background(), refs(20), fetch) {
		break
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Concurrency = 2
	cfg.GroupDelay = time.Hour
	s := newTestScheduler(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	n := 0
	for r := range s.Fetch(ctx, refs(20), echoFetch) {
		require.NoError(t, r.Err)
		n++
		once.Do(cancel)
	}
	assert.Equal(t, 2, n)
}

func TestScheduler_AdaptiveMode(t *testing.T) {
	cfg := testConfig()
	cfg.RateMode = RateModeAdaptive
	cfg.RateLimit = 1000
	cfg.RateBurst = 20
	s := newTestScheduler(t, cfg)
	s.sleep = func(context.Context, time.Duration) error {
		return errors.New("fixed delays must not be used in adaptive mode")
	}

	fetch := func(ctx context.Context, ref gmail.MessageRef) (*gmail.MessageMetadata, error) {
		if ref.ID == "m03" {
			return nil, quotaErr()
		}
		return echoFetch(ctx, ref)
	}

	var ok, failed int
	for r := range s.Fetch(context.Background(), refs(30), fetch) {
		if r.Err != nil {
			failed++
			continue
		}
		ok++
	}
	assert.Equal(t, 29, ok)
	assert.Equal(t, 1, failed)
}

func TestAdaptiveLimiter(t *testing.T) {
	l := newAdaptiveLimiter(8, 1)

	assert.Equal(t, 4.0, l.backoff())
	assert.Equal(t, 2.0, l.backoff())
	assert.Equal(t, 1.0, l.backoff())
	assert.Equal(t, 1.0, l.backoff(), "rate is floored")

	assert.Equal(t, 2.0, l.increase())
	for range 10 {
		l.increase()
	}
	assert.Equal(t, 8.0, l.rate(), "rate is capped at the configured limit")
}

func TestAdaptiveLimiter_LowLimit(t *testing.T) {
	l := newAdaptiveLimiter(0.5, 1)
	assert.Equal(t, 0.5, l.backoff())
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
