package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	gmailv1 "google.golang.org/api/gmail/v1"

	"github.com/teemow/sendersweep/internal/gmail"
	"github.com/teemow/sendersweep/internal/instrumentation"
	"github.com/teemow/sendersweep/internal/logging"
)

// skipReasonNoSender labels messages dropped for lacking a From header.
const skipReasonNoSender = "no_sender"

// Provider is the mailbox a scan reads from. *gmail.Client implements it.
type Provider interface {
	ListMessages(ctx context.Context, query, pageToken string, pageSize int64) (*gmail.ListPage, error)
	GetMessageMetadata(ctx context.Context, id string, headers ...string) (*gmail.MessageMetadata, error)
	GetMessageFull(ctx context.Context, id string) (*gmailv1.Message, error)
}

var _ Provider = (*gmail.Client)(nil)

// Scanner builds sender reports from a mailbox.
type Scanner struct {
	cfg       Config
	scheduler *Scheduler
	logger    *slog.Logger
	metrics   *instrumentation.Metrics

	now   func() time.Time
	newID func() string
}

// NewScanner returns a scanner for cfg. It fails if cfg is invalid.
// Metrics may be nil.
func NewScanner(cfg Config, logger *slog.Logger, metrics *instrumentation.Metrics) (*Scanner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	scheduler, err := NewScheduler(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		cfg:       cfg,
		scheduler: scheduler,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// Config returns the configuration of the scanner.
func (s *Scanner) Config() Config {
	return s.cfg
}

// Scan lists the messages matching the configured queries, fetches the
// metadata of up to FetchCap of them and aggregates them by sender.
//
// Messages that cannot be fetched are skipped and counted in
// Summary.SkippedMessages. A failed list call, an authentication error or a
// canceled context abort the scan.
func (s *Scanner) Scan(ctx context.Context, p Provider, account string) (report *Report, err error) {
	scanID := s.newID()
	logger := logging.WithScanID(logging.WithAccount(s.logger, account), scanID)

	ctx, span := instrumentation.StartScanSpan(ctx, scanID, account, s.cfg.RateMode)

	start := s.now()
	stats := instrumentation.ScanStats{Mode: s.cfg.RateMode}
	skipped := 0
	defer func() {
		stats.Duration = s.now().Sub(start)
		if err != nil {
			stats.Status = instrumentation.StatusError
			logger.Error("scan failed", logging.Err(err), slog.Duration(logging.KeyDuration, stats.Duration))
		} else {
			stats.Status = instrumentation.StatusSuccess
		}
		s.metrics.RecordScan(ctx, stats)
		instrumentation.EndScanSpan(span, stats, skipped, err)
	}()

	refs, err := s.collect(ctx, p, logger)
	if err != nil {
		return nil, err
	}
	stats.Collected = len(refs)
	if len(refs) > s.cfg.FetchCap {
		refs = refs[:s.cfg.FetchCap]
	}
	logger.Info("fetching message metadata", slog.Int("collected", stats.Collected), slog.Int("fetching", len(refs)))

	fetch := func(ctx context.Context, ref gmail.MessageRef) (*gmail.MessageMetadata, error) {
		return p.GetMessageMetadata(ctx, ref.ID, gmail.MetadataHeaders...)
	}

	agg := NewAggregator()
	for r := range s.scheduler.Fetch(ctx, refs, fetch) {
		if r.Err != nil {
			if gmail.IsAuthError(r.Err) {
				return nil, fmt.Errorf("failed to fetch message %s: %w", r.Ref.ID, r.Err)
			}
			if ctx.Err() != nil {
				break
			}
			skipped++
			s.metrics.RecordMessageSkipped(ctx, gmail.KindLabel(r.Err))
			continue
		}
		stats.Fetched++

		sender := ParseFrom(r.Metadata.From)
		if sender.Email == "" {
			skipped++
			s.metrics.RecordMessageSkipped(ctx, skipReasonNoSender)
			logger.Debug("skipping message without sender", logging.MessageID(r.Ref.ID))
			continue
		}
		agg.Accumulate(sender, r.Metadata)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report = newReport(scanID, agg, stats.Collected, stats.Fetched, skipped, s.now())
	stats.Senders = report.Summary.UniqueSenders

	logger.Info("scan completed",
		slog.Int("senders", report.Summary.UniqueSenders),
		slog.Int("emails", report.Summary.TotalEmails),
		slog.Int("skipped", skipped),
		slog.Duration(logging.KeyDuration, s.now().Sub(start)))
	return report, nil
}

// collect runs every query and returns the unique message IDs in the order
// they were first listed. Pagination stops for good once ListCap unique IDs
// were collected.
func (s *Scanner) collect(ctx context.Context, p Provider, logger *slog.Logger) ([]gmail.MessageRef, error) {
	seen := make(map[string]struct{})
	var refs []gmail.MessageRef

	for _, query := range s.cfg.Queries {
		pageToken := ""
		for len(refs) < s.cfg.ListCap {
			page, err := p.ListMessages(ctx, query, pageToken, s.cfg.PageSize)
			if err != nil {
				return nil, fmt.Errorf("failed to list messages for query %q: %w", query, err)
			}
			for _, m := range page.Messages {
				if _, ok := seen[m.ID]; ok {
					continue
				}
				seen[m.ID] = struct{}{}
				refs = append(refs, m)
			}
			logger.Debug("listed messages", logging.Query(query), slog.Int("page", len(page.Messages)), slog.Int("unique", len(refs)))

			pageToken = page.NextPageToken
			if pageToken == "" {
				break
			}
		}
		if len(refs) >= s.cfg.ListCap {
			break
		}
	}
	return refs, nil
}
