package gmail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/sendersweep/internal/google"
	"github.com/teemow/sendersweep/internal/instrumentation"
)

// MaxPageSize is the largest page the Gmail API returns for messages.list.
const MaxPageSize = 500

const userID = "me"

// Client is a read-only Gmail client. All calls take a context, are traced
// and recorded as Google API metrics, and return errors classified by kind.
type Client struct {
	svc     *gmail.UsersService
	account string
	metrics *instrumentation.Metrics
}

// NewClientForAccount creates a client authorized with the token stored on
// disk for the account.
func NewClientForAccount(ctx context.Context, account string) (*Client, error) {
	httpClient, err := google.GetHTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", google.GetAuthenticationErrorMessage(account), err)
	}
	return newClient(ctx, account, httpClient)
}

// NewClientWithTokenProvider creates a client authorized by a token from p.
func NewClientWithTokenProvider(ctx context.Context, p google.TokenProvider, account string) (*Client, error) {
	httpClient, err := google.HTTPClientFromProvider(ctx, p, account)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", google.GetAuthenticationErrorMessage(account), err)
	}
	return newClient(ctx, account, httpClient)
}

// NewClientWithOptions creates a client from raw API options, for example a
// custom endpoint.
func NewClientWithOptions(ctx context.Context, account string, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users, account: account}, nil
}

func newClient(ctx context.Context, account string, httpClient *http.Client) (*Client, error) {
	return NewClientWithOptions(ctx, account, option.WithHTTPClient(httpClient))
}

// SetMetrics enables metric recording for every API call.
func (c *Client) SetMetrics(m *instrumentation.Metrics) {
	c.metrics = m
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// ListMessages returns one page of message IDs matching query. pageSize is
// capped at MaxPageSize; zero or negative means MaxPageSize.
func (c *Client) ListMessages(ctx context.Context, query, pageToken string, pageSize int64) (*ListPage, error) {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var page *ListPage
	err := c.observe(ctx, instrumentation.OperationList, func(ctx context.Context) error {
		req := c.svc.Messages.List(userID).Q(query).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			req.PageToken(pageToken)
		}
		res, err := req.Do()
		if err != nil {
			return err
		}

		page = &ListPage{
			Messages:      make([]MessageRef, 0, len(res.Messages)),
			NextPageToken: res.NextPageToken,
		}
		for _, m := range res.Messages {
			if m != nil && m.Id != "" {
				page.Messages = append(page.Messages, MessageRef{ID: m.Id})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// GetMessageMetadata fetches the labels and the requested headers of a
// message. With no headers, MetadataHeaders are requested.
func (c *Client) GetMessageMetadata(ctx context.Context, id string, headers ...string) (*MessageMetadata, error) {
	if len(headers) == 0 {
		headers = MetadataHeaders
	}

	var meta *MessageMetadata
	err := c.observe(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		msg, err := c.svc.Messages.Get(userID, id).
			Format("metadata").
			MetadataHeaders(headers...).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		meta = MetadataFromMessage(msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// GetMessageFull fetches a message with its complete MIME part tree.
func (c *Client) GetMessageFull(ctx context.Context, id string) (*gmail.Message, error) {
	var msg *gmail.Message
	err := c.observe(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Messages.Get(userID, id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// EmailAddress returns the address of the authenticated mailbox.
func (c *Client) EmailAddress(ctx context.Context) (string, error) {
	var email string
	err := c.observe(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		profile, err := c.svc.GetProfile(userID).Context(ctx).Do()
		if err != nil {
			return err
		}
		email = profile.EmailAddress
		return nil
	})
	return email, err
}

func (c *Client) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, op,
		instrumentation.NewSpanAttributeBuilder().WithAccount(c.account).WithReadOnly(true).Build()...)
	defer span.End()

	start := time.Now()
	err := classify(op, fn(ctx))

	status := instrumentation.StatusSuccess
	if err != nil {
		status = KindLabel(err)
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, op, status, time.Since(start))
	return err
}
