// Package batch helps MCP tools that accept one or many items, such as a
// list of sender addresses, and report per-item success or failure.
package batch
