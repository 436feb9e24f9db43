// Package scan_tools exposes mailbox sender scans and unsubscribe link
// lookups as MCP tools.
//
// Available tools:
//   - gmail_scan_senders: rank the senders of bulk mail in a mailbox
//   - gmail_find_unsubscribe_links: find unsubscribe links of one or more senders
//
// Both tools only read the mailbox.
package scan_tools
