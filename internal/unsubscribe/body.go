package unsubscribe

import "regexp"

// BodyPatternStrategy finds a link in the reconstructed body text with one
// regular expression. The first capture group is the link.
type BodyPatternStrategy struct {
	name    string
	pattern *regexp.Regexp
}

// NewBodyPatternStrategy compiles expr into a strategy. expr must have at
// least one capture group.
func NewBodyPatternStrategy(name, expr string) (*BodyPatternStrategy, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &BodyPatternStrategy{name: name, pattern: re}, nil
}

func mustBodyPattern(name, expr string) *BodyPatternStrategy {
	s, err := NewBodyPatternStrategy(name, expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Name implements Strategy.
func (s *BodyPatternStrategy) Name() string { return s.name }

// Extract implements Strategy. Only the first match is used, and only if it
// is an http(s) URL.
func (s *BodyPatternStrategy) Extract(m *Message) []string {
	text := m.Text()
	if text == "" {
		return nil
	}
	match := s.pattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	link := match[0]
	if len(match) > 1 && match[1] != "" {
		link = match[1]
	}
	if !isHTTPURL(link) {
		return nil
	}
	return []string{link}
}

// Body patterns, applied in this order.
var (
	// A keyword followed within 200 characters by a URL.
	keywordThenURL = mustBodyPattern("body-keyword-near-url",
		`(?i)(?:unsubscribe|opt.?out|remove|manage.?preferences)[\s\S]{0,200}?(https?://[^\s<>"']+)`)

	// A URL with a keyword inside it.
	keywordInURL = mustBodyPattern("body-keyword-in-url",
		`(?i)(https?://[^\s<>"']*(?:unsubscribe|optout|remove|preferences)[^\s<>"']*)`)

	// An anchor whose href contains a keyword.
	keywordInHref = mustBodyPattern("body-anchor-href",
		`(?i)<a[^>]+href=["']([^"']*(?:unsubscribe|optout|remove|preferences)[^"']*)["'][^>]*>`)
)

// BodyStrategies returns the body heuristics in the order they are applied.
func BodyStrategies() []Strategy {
	return []Strategy{keywordThenURL, keywordInURL, keywordInHref}
}
