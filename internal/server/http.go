package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/sendersweep/internal/instrumentation"
)

// MCPEndpointPath is the path the streamable HTTP transport is served on.
const MCPEndpointPath = "/mcp"

// HTTPServerConfig holds the optional collaborators of an MCPHTTPServer.
type HTTPServerConfig struct {
	// Health adds /healthz, /readyz and /healthz/detailed when set.
	Health *HealthChecker
	// Metrics records every request when set.
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// MCPHTTPServer serves an MCP server over the streamable HTTP transport.
type MCPHTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	config     HTTPServerConfig
	httpServer *http.Server
}

// NewMCPHTTPServer creates a server for mcpServer.
func NewMCPHTTPServer(mcpServer *mcpserver.MCPServer, config HTTPServerConfig) (*MCPHTTPServer, error) {
	if mcpServer == nil {
		return nil, errors.New("mcp server is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	s := &MCPHTTPServer{mcpServer: mcpServer, config: config}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler returns the mux with the MCP endpoint and, if configured, the
// health endpoints.
func (s *MCPHTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(MCPEndpointPath),
	)
	mux.Handle(MCPEndpointPath, otelhttp.NewHandler(streamable, "mcp"))

	if s.config.Health != nil {
		s.config.Health.RegisterHealthEndpoints(mux)
	}

	return metricsMiddleware(s.config.Metrics, mux)
}

// Start listens on addr and serves until Shutdown is called.
func (s *MCPHTTPServer) Start(addr string) error {
	return s.StartWithReadySignal(addr, nil)
}

// StartWithReadySignal is like Start and closes ready once the listener is
// bound. A server shut down before it started returns http.ErrServerClosed.
func (s *MCPHTTPServer) StartWithReadySignal(addr string, ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.config.Logger.Info("MCP HTTP server listening", "addr", ln.Addr().String(), "endpoint", MCPEndpointPath)
	if ready != nil {
		close(ready)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server
func (s *MCPHTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func metricsMiddleware(m *instrumentation.Metrics, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
