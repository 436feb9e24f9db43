package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultAccount is the account name used when none is given.
const DefaultAccount = "default"

const cacheDirName = "sendersweep"

// Environment variables holding the OAuth client credentials.
const (
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
)

// ErrNoToken is returned when no token has been stored for an account.
var ErrNoToken = errors.New("no Google OAuth token found")

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, hyphens and underscores are allowed", account)
	}
	return nil
}

func tokenCacheDir() string {
	return filepath.Join(userCacheDir(), cacheDirName)
}

func getTokenFilePath(account string) string {
	return filepath.Join(tokenCacheDir(), "google-"+account+".token")
}

// HasTokenForAccount reports whether a token file exists for the account.
func HasTokenForAccount(account string) bool {
	if err := validateAccountName(account); err != nil {
		return false
	}
	_, err := os.Stat(getTokenFilePath(account))
	return err == nil
}

// HasToken reports whether a token exists for the default account.
func HasToken() bool {
	return HasTokenForAccount(DefaultAccount)
}

// GetAuthenticationErrorMessage returns the message shown when an account has
// no usable token.
func GetAuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("Google OAuth token for account %q is missing or invalid. "+
		"Run 'sendersweep auth --account %s' to complete the OAuth flow.", account, account)
}

// GetAuthURL returns the consent URL the user opens to authorize read-only
// mailbox access.
func GetAuthURL() (string, error) {
	conf, err := getOAuthConfig()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL("state", oauth2.AccessTypeOffline), nil
}

// SaveTokenForAccount exchanges an authorization code and stores the
// resulting token for the account.
func SaveTokenForAccount(ctx context.Context, account, authCode string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	conf, err := getOAuthConfig()
	if err != nil {
		return err
	}

	t, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return writeToken(account, t)
}

func writeToken(account string, t *oauth2.Token) error {
	if err := os.MkdirAll(tokenCacheDir(), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(getTokenFilePath(account), data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func readToken(account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(getTokenFilePath(account))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for account %s", ErrNoToken, account)
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var t oauth2.Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("invalid token format: %w", err)
	}
	if t.RefreshToken == "" && t.AccessToken == "" {
		return nil, fmt.Errorf("invalid token format: empty token")
	}
	return &t, nil
}

// getOAuthConfig builds the OAuth2 configuration. Only the read-only Gmail
// scope is requested.
func getOAuthConfig() (*oauth2.Config, error) {
	const OOB = "urn:ietf:wg:oauth:2.0:oob"
	clientID := os.Getenv(EnvClientID)
	clientSecret := os.Getenv(EnvClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%s and %s must be set", EnvClientID, EnvClientSecret)
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  OOB,
		Scopes:       DefaultOAuthScopes,
	}, nil
}

// GetTokenSourceForAccount returns a refreshing token source for the stored
// token of the account.
func GetTokenSourceForAccount(ctx context.Context, account string) (oauth2.TokenSource, error) {
	t, err := readToken(account)
	if err != nil {
		return nil, err
	}
	conf, err := getOAuthConfig()
	if err != nil {
		return nil, err
	}
	return conf.TokenSource(ctx, t), nil
}

// GetHTTPClientForAccount returns an HTTP client authorized for the account.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func GetHTTPClientForAccount(ctx context.Context, account string) (*http.Client, error) {
	ts, err := GetTokenSourceForAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	return newHTTPClient(ctx, ts), nil
}

func newHTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		return os.TempDir()
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
