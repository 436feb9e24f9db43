package google

import gmail "google.golang.org/api/gmail/v1"

// DefaultOAuthScopes are the scopes requested for every account. Scanning only
// ever reads the mailbox, so no modify or send scope is included.
var DefaultOAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	gmail.GmailReadonlyScope,
}
