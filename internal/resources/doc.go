// Package resources provides MCP resources exposing scan state. Resources
// are read-only data sources that MCP clients can fetch without running a
// tool.
package resources
