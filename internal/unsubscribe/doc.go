// Package unsubscribe discovers unsubscribe links in Gmail messages.
//
// Extraction runs ordered tiers of named strategies. The header tier parses
// the List-Unsubscribe header (RFC 2369). Only when it yields nothing is the
// body tier tried: the MIME part tree is decoded into text and three
// patterns are applied, each contributing at most its first match. Links are
// deduplicated in discovery order. Extraction does no I/O and never fails.
package unsubscribe
