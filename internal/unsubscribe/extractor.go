package unsubscribe

import (
	gmailv1 "google.golang.org/api/gmail/v1"

	"github.com/teemow/sendersweep/internal/gmail"
)

// Strategy finds candidate unsubscribe links in a message. Strategies never
// fail; a source they cannot parse yields no links.
type Strategy interface {
	Name() string
	Extract(m *Message) []string
}

// Tier is a named group of strategies. Every strategy of a tier is applied
// and their links are combined.
type Tier struct {
	Name       string
	Strategies []Strategy
}

// Tier names of the default extractor.
const (
	TierHeader = "header"
	TierBody   = "body"
)

// Result is the outcome of extracting links from one message.
type Result struct {
	// Links are deduplicated, in discovery order.
	Links []string `json:"links"`
	// OneClick is set when the message advertises RFC 8058 one-click
	// unsubscribe through List-Unsubscribe-Post.
	OneClick bool `json:"oneClick"`
	// Tier names the tier that produced the links, empty when none did.
	Tier string `json:"tier,omitempty"`
}

// Extractor applies tiers in order; the first tier yielding any link wins.
type Extractor struct {
	tiers []Tier
}

// NewExtractor returns an extractor over the given tiers.
func NewExtractor(tiers ...Tier) *Extractor {
	return &Extractor{tiers: tiers}
}

// DefaultExtractor reads the List-Unsubscribe header and falls back to body
// heuristics.
func DefaultExtractor() *Extractor {
	return NewExtractor(
		Tier{Name: TierHeader, Strategies: []Strategy{HeaderStrategy{}}},
		Tier{Name: TierBody, Strategies: BodyStrategies()},
	)
}

var defaultExtractor = DefaultExtractor()

// Extract runs the extractor over msg.
func (e *Extractor) Extract(msg *gmailv1.Message) Result {
	m := NewMessage(msg)
	res := Result{OneClick: m.Header(gmail.HeaderListUnsubscribePost) != ""}

	for _, tier := range e.tiers {
		var links []string
		for _, s := range tier.Strategies {
			links = append(links, s.Extract(m)...)
		}
		if links = dedup(links); len(links) > 0 {
			res.Links = links
			res.Tier = tier.Name
			return res
		}
	}
	return res
}

// ExtractLinks returns the unsubscribe links of msg using the default
// extractor.
func ExtractLinks(msg *gmailv1.Message) []string {
	return defaultExtractor.Extract(msg).Links
}

// Extract runs the default extractor over msg.
func Extract(msg *gmailv1.Message) Result {
	return defaultExtractor.Extract(msg)
}

func dedup(links []string) []string {
	if len(links) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(links))
	out := links[:0]
	for _, l := range links {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
