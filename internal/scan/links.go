package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teemow/sendersweep/internal/gmail"
	"github.com/teemow/sendersweep/internal/instrumentation"
	"github.com/teemow/sendersweep/internal/logging"
	"github.com/teemow/sendersweep/internal/unsubscribe"
)

// LinkLookup is the result of searching a sender's messages for
// unsubscribe links.
type LinkLookup struct {
	Sender string `json:"senderEmail"`
	// Links are the deduplicated links of the first message that had any.
	Links []string `json:"unsubscribeLinks"`
	// OneClick is set when that message supports one-click unsubscribe.
	OneClick bool `json:"oneClick"`
	// Tier names the extractor tier that produced the links.
	Tier      string `json:"tier,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	// MessagesChecked is the number of messages inspected.
	MessagesChecked int `json:"messagesChecked"`
}

// FindUnsubscribeLinks inspects up to limit recent messages from sender and
// returns the links of the first one yielding any. A sender without such a
// message yields an empty, non-nil Links.
//
// Messages deleted between listing and fetching are skipped; any other
// provider error fails the lookup.
func FindUnsubscribeLinks(ctx context.Context, p Provider, sender string, limit int64, logger *slog.Logger, metrics *instrumentation.Metrics) (_ *LinkLookup, err error) {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return nil, errors.New("sender email is required")
	}
	if limit < 1 {
		limit = DefaultLinkLookupMessages
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(logging.Sender(sender))

	lookup := &LinkLookup{Sender: sender, Links: []string{}}
	ctx, span := instrumentation.StartLinkLookupSpan(ctx, logging.ExtractDomain(sender))
	defer func() {
		instrumentation.EndLinkLookupSpan(span, lookup.Tier, len(lookup.Links), lookup.MessagesChecked, err)
	}()

	page, err := p.ListMessages(ctx, "from:"+sender, "", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages from sender: %w", err)
	}

	for _, ref := range page.Messages {
		msg, err := p.GetMessageFull(ctx, ref.ID)
		if err != nil {
			if errors.Is(err, gmail.ErrNotFound) {
				logger.Debug("message vanished before fetch", logging.MessageID(ref.ID))
				continue
			}
			return nil, fmt.Errorf("failed to get message %s: %w", ref.ID, err)
		}
		lookup.MessagesChecked++

		res := unsubscribe.Extract(msg)
		if len(res.Links) == 0 {
			continue
		}
		lookup.Links = res.Links
		lookup.OneClick = res.OneClick
		lookup.Tier = res.Tier
		lookup.MessageID = ref.ID
		break
	}

	metrics.RecordLinkLookup(ctx, lookup.Tier)
	logger.Info("unsubscribe link lookup finished",
		slog.Int("links", len(lookup.Links)),
		slog.String("tier", lookup.Tier),
		slog.Int("checked", lookup.MessagesChecked))
	return lookup, nil
}
