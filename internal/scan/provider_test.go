package scan

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	gmailv1 "google.golang.org/api/gmail/v1"

	"github.com/teemow/sendersweep/internal/gmail"
)

// fakeProvider is an in-memory mailbox. Query results are served in pages
// of the requested size.
type fakeProvider struct {
	mu sync.Mutex

	queries  map[string][]string
	messages map[string]*gmail.MessageMetadata
	full     map[string]*gmailv1.Message
	getErrs  map[string]error
	listErr  error

	listCalls []string
	getCalls  map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		queries:  make(map[string][]string),
		messages: make(map[string]*gmail.MessageMetadata),
		full:     make(map[string]*gmailv1.Message),
		getErrs:  make(map[string]error),
		getCalls: make(map[string]int),
	}
}

func (f *fakeProvider) addMessage(query string, meta *gmail.MessageMetadata) {
	f.queries[query] = append(f.queries[query], meta.ID)
	f.messages[meta.ID] = meta
}

func (f *fakeProvider) ListMessages(_ context.Context, query, pageToken string, pageSize int64) (*gmail.ListPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, query+"#"+pageToken)
	if f.listErr != nil {
		return nil, f.listErr
	}

	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(pageToken, "p"))
		if err != nil {
			return nil, fmt.Errorf("bad page token %q", pageToken)
		}
		offset = n
	}
	ids := f.queries[query]
	end := min(offset+int(pageSize), len(ids))

	page := &gmail.ListPage{}
	for _, id := range ids[offset:end] {
		page.Messages = append(page.Messages, gmail.MessageRef{ID: id})
	}
	if end < len(ids) {
		page.NextPageToken = "p" + strconv.Itoa(end)
	}
	return page, nil
}

func (f *fakeProvider) GetMessageMetadata(_ context.Context, id string, _ ...string) (*gmail.MessageMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls[id]++
	if err := f.getErrs[id]; err != nil {
		return nil, err
	}
	meta, ok := f.messages[id]
	if !ok {
		return nil, &gmail.ProviderError{Op: "get", Kind: gmail.ErrNotFound, Err: errors.New("not found")}
	}
	return meta, nil
}

func (f *fakeProvider) GetMessageFull(_ context.Context, id string) (*gmailv1.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls[id]++
	if err := f.getErrs[id]; err != nil {
		return nil, err
	}
	msg, ok := f.full[id]
	if !ok {
		return nil, &gmail.ProviderError{Op: "get", Kind: gmail.ErrNotFound, Err: errors.New("not found")}
	}
	return msg, nil
}

func (f *fakeProvider) totalGets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.getCalls {
		n += c
	}
	return n
}

func quotaErr() error {
	return &gmail.ProviderError{Op: "get", Kind: gmail.ErrQuota, Err: errors.New("Quota exceeded for quota metric")}
}

func authErr() error {
	return &gmail.ProviderError{Op: "get", Kind: gmail.ErrAuth, Err: errors.New("invalid credentials")}
}

func msg(id, from, subject string, labels ...string) *gmail.MessageMetadata {
	return &gmail.MessageMetadata{ID: id, From: from, Subject: subject, Labels: labels}
}

// testConfig returns a configuration without delays.
func testConfig() Config {
	c := Defaults()
	c.GroupDelay = 0
	c.BatchDelay = 0
	return c
}
