// Package common holds helpers shared by the MCP tool packages: account
// argument handling, provider lookup and tool instrumentation.
package common
