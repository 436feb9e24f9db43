// Package gmail is a read-only client for the Gmail API.
//
// It exposes the three calls a sender scan needs: listing message IDs for a
// search query one page at a time, fetching a message's metadata headers and
// labels, and fetching a full message with its MIME part tree. Every error is
// classified into one of the kinds in errors.go so callers can decide between
// aborting (ErrAuth), backing off (ErrQuota) and skipping.
//
//	client, err := gmail.NewClientForAccount(ctx, "default")
//	if err != nil {
//		return err
//	}
//	page, err := client.ListMessages(ctx, "category:promotions", "", gmail.MaxPageSize)
package gmail
