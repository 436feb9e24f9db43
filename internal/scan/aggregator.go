package scan

import (
	"slices"
	"sort"
	"time"

	"github.com/teemow/sendersweep/internal/gmail"
)

// MaxRecentSubjects bounds SenderRecord.RecentSubjects.
const MaxRecentSubjects = 5

// SenderRecord holds the statistics of one sender within a scan.
type SenderRecord struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	TotalCount  int    `json:"totalEmails"`
	UnreadCount int    `json:"unreadEmails"`
	// MostRecentDate is nil when no message of the sender had a usable date.
	MostRecentDate *time.Time `json:"latestEmailDate"`
	// HasUnsubscribeSignal records whether the first message of the sender
	// carried List-Unsubscribe or List-Unsubscribe-Post.
	HasUnsubscribeSignal bool `json:"hasUnsubscribeHeader"`
	// RecentSubjects holds distinct subjects in arrival order, oldest
	// evicted first.
	RecentSubjects []string `json:"recentSubjects"`
}

// Aggregator folds message metadata into per-sender records. It is not safe
// for concurrent use; the scanner feeds it from a single goroutine.
type Aggregator struct {
	records []*SenderRecord
	index   map[string]int
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{index: make(map[string]int)}
}

// Accumulate adds one message to the record of sender.
func (a *Aggregator) Accumulate(sender Sender, meta *gmail.MessageMetadata) {
	if meta == nil {
		return
	}

	i, ok := a.index[sender.Email]
	if !ok {
		i = len(a.records)
		a.index[sender.Email] = i
		a.records = append(a.records, &SenderRecord{
			Email:                sender.Email,
			Name:                 sender.Name,
			HasUnsubscribeSignal: meta.HasUnsubscribeHeader(),
			RecentSubjects:       []string{},
		})
	}
	r := a.records[i]

	r.TotalCount++
	if meta.Unread() {
		r.UnreadCount++
	}
	if d, ok := effectiveDate(meta.Date, meta.InternalDate); ok {
		if r.MostRecentDate == nil || d.After(*r.MostRecentDate) {
			r.MostRecentDate = &d
		}
	}
	if !meta.NoSubject && !slices.Contains(r.RecentSubjects, meta.Subject) {
		r.RecentSubjects = append(r.RecentSubjects, meta.Subject)
		if len(r.RecentSubjects) > MaxRecentSubjects {
			r.RecentSubjects = r.RecentSubjects[1:]
		}
	}
}

// Len returns the number of distinct senders seen.
func (a *Aggregator) Len() int {
	return len(a.records)
}

// Senders returns copies of all records sorted by TotalCount, descending.
// Senders with equal counts keep the order in which they were first seen.
func (a *Aggregator) Senders() []SenderRecord {
	out := make([]SenderRecord, len(a.records))
	for i, r := range a.records {
		out[i] = *r
		out[i].RecentSubjects = slices.Clone(r.RecentSubjects)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalCount > out[j].TotalCount
	})
	return out
}
