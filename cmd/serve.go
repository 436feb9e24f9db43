package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/sendersweep/internal/instrumentation"
	"github.com/teemow/sendersweep/internal/resources"
	"github.com/teemow/sendersweep/internal/scan"
	"github.com/teemow/sendersweep/internal/server"
	"github.com/teemow/sendersweep/internal/tools/scan_tools"
)

// Transport types of the serve command.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

type serveOptions struct {
	transport  string
	httpAddr   string
	configFile string
	metrics    MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide sender scan and
unsubscribe link tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp

All tools are read-only. Accounts must be authorized beforehand with
'sendersweep auth --account NAME'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadMetricsEnvVars(cmd, &opts.metrics)
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().StringVar(&opts.configFile, "config", "", "YAML file with scan settings")

	// Metrics server flags
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadMetricsEnvVars applies METRICS_ENABLED and METRICS_ADDR unless the
// matching flag was set explicitly.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		switch os.Getenv("METRICS_ENABLED") {
		case "true":
			config.Enabled = true
		case "false":
			config.Enabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

func runServe(ctx context.Context, opts serveOptions) error {
	if opts.transport != transportStdio && opts.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	scanConfig, err := scan.LoadConfig(opts.configFile)
	if err != nil {
		return err
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Scan = instrumentation.ScanProfile{
		RateMode:    scanConfig.RateMode,
		FetchCap:    scanConfig.FetchCap,
		ListCap:     scanConfig.ListCap,
		Concurrency: scanConfig.Concurrency,
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("Error during instrumentation shutdown", "error", err)
		}
	}()

	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithScanConfig(scanConfig),
		server.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("Error during server context shutdown", "error", err)
		}
	}()

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))
	}

	mcpSrv := mcpserver.NewMCPServer("sendersweep", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	switch opts.transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, provider, opts, logger)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	registrations := []struct {
		name     string
		register func() error
	}{
		{"Scan tools", func() error { return scan_tools.RegisterScanTools(mcpSrv, sc) }},
		{"Scan resources", func() error { return resources.RegisterScanResources(mcpSrv, sc) }},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, provider *instrumentation.Provider, opts serveOptions, logger *slog.Logger) error {
	healthChecker := server.NewHealthChecker(sc)

	httpSrv, err := server.NewMCPHTTPServer(mcpSrv, server.HTTPServerConfig{
		Health:  healthChecker,
		Metrics: sc.Metrics(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	var metricsSrv *server.MetricsServer
	if opts.metrics.Enabled && provider.Enabled() {
		metricsSrv, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metrics.Addr,
			InstrumentationProvider: provider,
			Health:                  healthChecker,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if metricsSrv != nil {
		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		g.Go(func() error {
			if err := metricsSrv.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})

		// Wait for the metrics server to be ready or fail
		select {
		case <-metricsReady:
			logger.Info("Metrics server started", "addr", metricsSrv.Addr())
		case <-gctx.Done():
		}
	}

	g.Go(func() error {
		if err := httpSrv.Start(opts.httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, stopping HTTP servers")
		healthChecker.SetReady(false)

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(stopCtx)
		if metricsSrv != nil {
			err = errors.Join(err, metricsSrv.Shutdown(stopCtx))
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("HTTP servers gracefully stopped")
	return nil
}
