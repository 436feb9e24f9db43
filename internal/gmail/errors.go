package gmail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Error kinds returned by the client. Use errors.Is to test for them.
var (
	// ErrAuth means the credentials were rejected or could not be refreshed.
	// It is never retried.
	ErrAuth = errors.New("gmail authentication rejected")

	// ErrQuota means the request was refused by a rate limit or quota.
	ErrQuota = errors.New("gmail quota exceeded")

	// ErrNotFound means the message no longer exists.
	ErrNotFound = errors.New("gmail message not found")

	// ErrTransient covers server errors and network failures.
	ErrTransient = errors.New("gmail transient error")

	// ErrProvider covers every other API failure.
	ErrProvider = errors.New("gmail request failed")
)

// Error kind labels used in metrics and logs.
const (
	KindAuth      = "auth"
	KindQuota     = "quota"
	KindNotFound  = "not_found"
	KindTransient = "transient"
	KindProvider  = "provider"
	KindCanceled  = "canceled"
)

var authReasons = map[string]bool{
	"authError":               true,
	"insufficientPermissions": true,
}

var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
}

// ProviderError is a classified Gmail API failure.
type ProviderError struct {
	Op   string // list, get
	Kind error  // one of the Err* sentinels
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying error.
func (e *ProviderError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// classify wraps err in a ProviderError. Context errors are returned as-is so
// callers can tell cancellation apart from provider failures.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return ErrAuth
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return ErrAuth
		case apiErr.Code == http.StatusTooManyRequests:
			return ErrQuota
		case apiErr.Code == http.StatusForbidden:
			if isRateLimited(apiErr) {
				return ErrQuota
			}
			if hasReason(apiErr, authReasons) {
				return ErrAuth
			}
			return ErrProvider
		case apiErr.Code == http.StatusNotFound:
			return ErrNotFound
		case apiErr.Code >= 500:
			return ErrTransient
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "Quota exceeded") || strings.Contains(msg, "Rate Limit") {
		return ErrQuota
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrTransient
	}

	return ErrProvider
}

func hasReason(apiErr *googleapi.Error, reasons map[string]bool) bool {
	for _, item := range apiErr.Errors {
		if reasons[item.Reason] {
			return true
		}
	}
	return false
}

func isRateLimited(apiErr *googleapi.Error) bool {
	return hasReason(apiErr, rateLimitReasons) ||
		strings.Contains(apiErr.Message, "Rate Limit") || strings.Contains(apiErr.Message, "Quota exceeded")
}

// IsAuthError reports whether err is a credential rejection.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsQuotaError reports whether err is a rate limit or quota refusal.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrQuota)
}

// KindLabel returns the low-cardinality label for err, or "" for nil.
func KindLabel(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrQuota):
		return KindQuota
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindProvider
	}
}
