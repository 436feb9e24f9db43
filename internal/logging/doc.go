// Package logging provides structured logging utilities for sendersweep.
//
// All packages log through log/slog. This package holds the shared attribute
// keys and helpers that keep mailbox data out of the logs: user and sender
// addresses are hashed, and only their domains are written in clear text.
//
//	logger := logging.WithOperation(slog.Default(), "scan.fetch")
//	logger.Warn("skipping message",
//	    logging.MessageID(id),
//	    logging.Sender(from),
//	    logging.Err(err))
package logging
