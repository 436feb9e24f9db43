// Package cmd implements the command-line interface for sendersweep.
//
// This package provides the following commands:
//   - scan: Rank the senders of promotional and update emails
//   - links: Find unsubscribe links for one or more senders
//   - auth: Authorize read-only access to a Gmail account
//   - serve: Start the MCP server to provide tools for AI assistants
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The scan command is the default command when no subcommand is specified.
package cmd
