package google

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// TokenProvider supplies OAuth tokens for Google APIs.
type TokenProvider interface {
	// GetTokenForAccount retrieves an OAuth token for the specified account
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount checks if a token exists for the specified account
	HasTokenForAccount(account string) bool
}

// FileTokenProvider provides tokens stored on disk by SaveTokenForAccount.
type FileTokenProvider struct{}

// NewFileTokenProvider creates a new file-based token provider
func NewFileTokenProvider() *FileTokenProvider {
	return &FileTokenProvider{}
}

// GetTokenForAccount returns a valid token for the account, refreshing it if
// needed.
func (p *FileTokenProvider) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	ts, err := GetTokenSourceForAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	token, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get token from file: %w", err)
	}

	return token, nil
}

// HasTokenForAccount checks if a token file exists for the specified account
func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	return HasTokenForAccount(account)
}

// HTTPClientFromProvider returns an HTTP client that authorizes requests with
// the provider's token for the account. Expired tokens are fetched from the
// provider again.
func HTTPClientFromProvider(ctx context.Context, p TokenProvider, account string) (*http.Client, error) {
	token, err := p.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	src := &providerTokenSource{ctx: ctx, provider: p, account: account}
	return newHTTPClient(ctx, oauth2.ReuseTokenSource(token, src)), nil
}

// providerTokenSource adapts a TokenProvider to oauth2.TokenSource.
type providerTokenSource struct {
	ctx      context.Context
	provider TokenProvider
	account  string
}

func (s *providerTokenSource) Token() (*oauth2.Token, error) {
	return s.provider.GetTokenForAccount(s.ctx, s.account)
}
