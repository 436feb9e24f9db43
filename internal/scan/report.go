package scan

import "time"

// Summary holds the totals of a scan.
type Summary struct {
	ScanID string `json:"scanId"`
	// TotalEmails is the sum of TotalCount over all senders.
	TotalEmails   int `json:"totalEmails"`
	TotalUnread   int `json:"totalUnread"`
	UniqueSenders int `json:"uniqueSenders"`
	// CollectedMessages is the number of unique IDs returned by the queries
	// before the fetch cap was applied.
	CollectedMessages int `json:"collectedMessages"`
	// FetchedMessages is the number of messages whose metadata was
	// retrieved.
	FetchedMessages int `json:"fetchedMessages"`
	// SkippedMessages counts messages that could not be fetched or had no
	// From header.
	SkippedMessages int       `json:"skippedMessages"`
	ScanDate        time.Time `json:"scanDate"`
}

// Report is the result of a scan.
type Report struct {
	Summary Summary        `json:"summary"`
	Senders []SenderRecord `json:"senders"`
}

func newReport(scanID string, agg *Aggregator, collected, fetched, skipped int, now time.Time) *Report {
	senders := agg.Senders()
	s := Summary{
		ScanID:            scanID,
		UniqueSenders:     len(senders),
		CollectedMessages: collected,
		FetchedMessages:   fetched,
		SkippedMessages:   skipped,
		ScanDate:          now.UTC(),
	}
	for _, r := range senders {
		s.TotalEmails += r.TotalCount
		s.TotalUnread += r.UnreadCount
	}
	return &Report{Summary: s, Senders: senders}
}
