// Package server holds the state shared by the MCP tools of sendersweep and
// the HTTP endpoints served next to them.
//
// ServerContext creates and caches one mailbox provider per account. By
// default providers are Gmail clients authorized with the tokens saved by
// "sendersweep auth"; tests replace them through WithProviderFactory. A
// provider can also travel with a single request through
// ContextWithProvider, which takes precedence over the cached one.
//
// HealthChecker serves liveness and readiness probes and reports the
// latest scan of each account. MetricsServer exposes Prometheus metrics and
// the probes on a dedicated port.
package server
