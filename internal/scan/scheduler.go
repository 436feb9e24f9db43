package scan

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/teemow/sendersweep/internal/gmail"
	"github.com/teemow/sendersweep/internal/instrumentation"
	"github.com/teemow/sendersweep/internal/logging"
)

// minAdaptiveRate is the floor of the adaptive request rate.
const minAdaptiveRate = 1.0

// FetchFunc retrieves the metadata of one message.
type FetchFunc func(ctx context.Context, ref gmail.MessageRef) (*gmail.MessageMetadata, error)

// FetchResult is the outcome of fetching one message. Exactly one of
// Metadata and Err is set.
type FetchResult struct {
	Ref      gmail.MessageRef
	Metadata *gmail.MessageMetadata
	Err      error
}

// Scheduler fetches messages in batches of concurrent groups while keeping
// the request rate under the provider's per-user quota.
type Scheduler struct {
	cfg     Config
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	// sleep waits between groups and batches in fixed mode.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewScheduler returns a scheduler for cfg. It fails if cfg is invalid.
func NewScheduler(cfg Config, logger *slog.Logger, metrics *instrumentation.Metrics) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		sleep:   sleepContext,
	}, nil
}

// Fetch returns a sequence of results for refs. Results of a group are
// yielded in dispatch order once the whole group has resolved. Failed items
// are yielded with Err set and never stop the sequence. The sequence ends
// early when ctx is canceled or the consumer stops ranging.
func (s *Scheduler) Fetch(ctx context.Context, refs []gmail.MessageRef, fn FetchFunc) iter.Seq[FetchResult] {
	return func(yield func(FetchResult) bool) {
		var limiter *adaptiveLimiter
		if s.cfg.RateMode == RateModeAdaptive {
			limiter = newAdaptiveLimiter(s.cfg.RateLimit, s.cfg.RateBurst)
		}

		for b := 0; b < len(refs); b += s.cfg.BatchSize {
			batch := refs[b:min(b+s.cfg.BatchSize, len(refs))]

			for g := 0; g < len(batch); g += s.cfg.Concurrency {
				if ctx.Err() != nil {
					return
				}
				group := batch[g:min(g+s.cfg.Concurrency, len(batch))]

				quotaHit := false
				for _, r := range s.runGroup(ctx, limiter, group, fn) {
					if r.Err != nil {
						s.logSkip(r)
						if gmail.IsQuotaError(r.Err) {
							quotaHit = true
						}
					}
					if !yield(r) {
						return
					}
				}

				if limiter != nil {
					if quotaHit {
						next := limiter.backoff()
						s.metrics.RecordRateLimitBackoff(ctx)
						s.logger.Debug("quota error, reducing request rate", slog.Float64("rate", next))
					} else {
						limiter.increase()
					}
					continue
				}

				if g+s.cfg.Concurrency < len(batch) {
					if err := s.sleep(ctx, s.cfg.GroupDelay); err != nil {
						return
					}
				}
			}

			if limiter == nil && b+s.cfg.BatchSize < len(refs) {
				if err := s.sleep(ctx, s.cfg.BatchDelay); err != nil {
					return
				}
			}
		}
	}
}

// runGroup fetches group concurrently and returns the results in the order
// of group.
func (s *Scheduler) runGroup(ctx context.Context, limiter *adaptiveLimiter, group []gmail.MessageRef, fn FetchFunc) []FetchResult {
	results := make([]FetchResult, len(group))

	var wg sync.WaitGroup
	for i, ref := range group {
		results[i].Ref = ref
		if limiter != nil {
			if err := limiter.wait(ctx); err != nil {
				results[i].Err = err
				continue
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			meta, err := fn(ctx, ref)
			if err == nil && meta == nil {
				err = fmt.Errorf("no metadata returned for message %s", ref.ID)
			}
			results[i].Metadata = meta
			results[i].Err = err
		}()
	}
	wg.Wait()

	for i := range results {
		if results[i].Err != nil {
			results[i].Metadata = nil
		}
	}
	return results
}

func (s *Scheduler) logSkip(r FetchResult) {
	reason := gmail.KindLabel(r.Err)
	level := slog.LevelWarn
	if reason == gmail.KindCanceled {
		level = slog.LevelDebug
	}
	s.logger.Log(context.Background(), level, "skipping message",
		logging.MessageID(r.Ref.ID),
		slog.String("reason", reason),
		logging.Err(r.Err))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// adaptiveLimiter is a token bucket whose rate is halved after a group hit
// a quota error and raised by one request per second after a clean group,
// between minAdaptiveRate and the configured maximum.
type adaptiveLimiter struct {
	limiter *rate.Limiter
	max     float64
}

func newAdaptiveLimiter(limit float64, burst int) *adaptiveLimiter {
	return &adaptiveLimiter{
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
		max:     limit,
	}
}

func (a *adaptiveLimiter) wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *adaptiveLimiter) rate() float64 {
	return float64(a.limiter.Limit())
}

func (a *adaptiveLimiter) backoff() float64 {
	next := max(a.rate()/2, min(minAdaptiveRate, a.max))
	a.limiter.SetLimit(rate.Limit(next))
	return next
}

func (a *adaptiveLimiter) increase() float64 {
	next := min(a.rate()+1, a.max)
	a.limiter.SetLimit(rate.Limit(next))
	return next
}
