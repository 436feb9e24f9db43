// Package google provides OAuth2 authentication and token management for the
// Gmail API.
//
// Tokens are stored per account under the user cache directory
// (~/.cache/sendersweep/google-<account>.token) and only the read-only Gmail
// scope is ever requested. The TokenProvider interface lets callers plug in a
// different token source.
package google
