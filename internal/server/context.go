package server

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/teemow/sendersweep/internal/gmail"
	"github.com/teemow/sendersweep/internal/google"
	"github.com/teemow/sendersweep/internal/instrumentation"
	"github.com/teemow/sendersweep/internal/logging"
	"github.com/teemow/sendersweep/internal/scan"
)

// ProviderFactory creates the mailbox provider of an account.
type ProviderFactory func(ctx context.Context, account string) (scan.Provider, error)

// ServerContext holds the state shared by all tool calls: per-account
// Gmail clients, the scan configuration and instrumentation.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	newProvider ProviderFactory
	tokens      google.TokenProvider
	providers   map[string]scan.Provider
	lastScans   map[string]scan.Summary

	scanConfig  scan.Config
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithProviderFactory replaces the default factory, which builds Gmail
// clients from the tokens stored on disk.
func WithProviderFactory(f ProviderFactory) Option {
	return func(sc *ServerContext) { sc.newProvider = f }
}

// WithTokenProvider sets where the default factory gets OAuth tokens from.
// Tokens stored on disk by 'sendersweep auth' are used otherwise.
func WithTokenProvider(p google.TokenProvider) Option {
	return func(sc *ServerContext) { sc.tokens = p }
}

// WithScanConfig sets the configuration of scans started through the server.
func WithScanConfig(cfg scan.Config) Option {
	return func(sc *ServerContext) { sc.scanConfig = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(sc *ServerContext) { sc.logger = l }
}

// NewServerContext creates a new server context. It fails if the scan
// configuration is invalid.
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		providers:  make(map[string]scan.Provider),
		lastScans:  make(map[string]scan.Summary),
		tokens:     google.NewFileTokenProvider(),
		scanConfig: scan.DefaultConfig(),
		logger:     slog.Default(),
	}
	sc.newProvider = sc.gmailProvider
	for _, opt := range opts {
		opt(sc)
	}

	if err := sc.scanConfig.Validate(); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid scan config: %w", err)
	}
	return sc, nil
}

// gmailProvider is called with sc.mu held.
func (sc *ServerContext) gmailProvider(ctx context.Context, account string) (scan.Provider, error) {
	if !sc.tokens.HasTokenForAccount(account) {
		return nil, fmt.Errorf("%s: %w", google.GetAuthenticationErrorMessage(account), google.ErrNoToken)
	}
	client, err := gmail.NewClientWithTokenProvider(ctx, sc.tokens, account)
	if err != nil {
		return nil, err
	}
	client.SetMetrics(sc.metrics)
	return client, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// ScanConfig returns the configuration used for scans.
func (sc *ServerContext) ScanConfig() scan.Config {
	return sc.scanConfig
}

// Scanner returns a scanner using the server's configuration and
// instrumentation.
func (sc *ServerContext) Scanner() (*scan.Scanner, error) {
	return scan.NewScanner(sc.scanConfig, sc.logger, sc.Metrics())
}

// ProviderForAccount returns the mailbox provider of an account, creating
// and caching it on first use. Clients live as long as the server context,
// not the request that created them.
func (sc *ServerContext) ProviderForAccount(account string) (scan.Provider, error) {
	if account == "" {
		account = google.DefaultAccount
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, fmt.Errorf("server is shutting down")
	}
	if p, ok := sc.providers[account]; ok {
		return p, nil
	}

	p, err := sc.newProvider(sc.ctx, account)
	if err != nil {
		sc.logger.Warn("failed to create Gmail client", logging.Account(account), logging.Err(err))
		return nil, err
	}
	sc.providers[account] = p
	return p, nil
}

// SetProviderForAccount sets the mailbox provider of an account.
func (sc *ServerContext) SetProviderForAccount(account string, p scan.Provider) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.providers[account] = p
}

// Accounts returns the accounts with a cached provider, sorted.
func (sc *ServerContext) Accounts() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	accounts := make([]string, 0, len(sc.providers))
	for a := range sc.providers {
		accounts = append(accounts, a)
	}
	slices.Sort(accounts)
	return accounts
}

// RecordScan remembers the summary of the latest scan of an account.
func (sc *ServerContext) RecordScan(account string, s scan.Summary) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.lastScans[account] = s
}

// LastScan returns the summary of the latest scan of an account.
func (sc *ServerContext) LastScan(account string) (scan.Summary, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	s, ok := sc.lastScans[account]
	return s, ok
}

// SetMetrics sets the metrics recorder for tool and Gmail API calls.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, or nil if metrics are disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger for tool invocations.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// AuditLogger returns the audit logger, or nil if auditing is disabled.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}

type providerKey struct{}

// ContextWithProvider returns a copy of ctx carrying the provider that
// serves the current request.
func ContextWithProvider(ctx context.Context, p scan.Provider) context.Context {
	return context.WithValue(ctx, providerKey{}, p)
}

// ProviderFromContext returns the provider attached by ContextWithProvider.
func ProviderFromContext(ctx context.Context) (scan.Provider, bool) {
	p, ok := ctx.Value(providerKey{}).(scan.Provider)
	return p, ok && p != nil
}
