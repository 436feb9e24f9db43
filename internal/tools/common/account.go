package common

import (
	"context"
	"strings"

	"github.com/teemow/sendersweep/internal/google"
	"github.com/teemow/sendersweep/internal/scan"
	"github.com/teemow/sendersweep/internal/server"
)

// AccountDescription documents the account argument shared by all tools.
const AccountDescription = "Account name (default: 'default'). Used to manage multiple Google accounts."

// GetAccountFromArgs returns the "account" argument, or the default
// account when it is missing or blank.
func GetAccountFromArgs(args map[string]any) string {
	if account, ok := args["account"].(string); ok {
		if account = strings.TrimSpace(account); account != "" {
			return account
		}
	}
	return google.DefaultAccount
}

// ProviderForRequest returns the provider serving a tool call: the one
// attached to ctx if any, else the cached provider of the account.
func ProviderForRequest(ctx context.Context, sc *server.ServerContext, account string) (scan.Provider, error) {
	if p, ok := server.ProviderFromContext(ctx); ok {
		return p, nil
	}
	return sc.ProviderForAccount(account)
}
