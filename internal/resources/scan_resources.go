package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/sendersweep/internal/scan"
	"github.com/teemow/sendersweep/internal/server"
)

// ScanSummariesURI is the URI of the last scan summaries resource.
const ScanSummariesURI = "scans://summaries"

// accountSummary pairs an account with the summary of its last scan.
type accountSummary struct {
	Account string        `json:"account"`
	Summary *scan.Summary `json:"lastScan,omitempty"`
}

// RegisterScanResources registers read-only resources describing past scans.
func RegisterScanResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	summaries := mcp.NewResource(
		ScanSummariesURI,
		"Last Scan Summaries",
		mcp.WithResourceDescription("Totals of the most recent sender scan of every account used by this server"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(summaries, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleScanSummaries(ctx, request, sc)
	})

	return nil
}

func handleScanSummaries(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	accounts := sc.Accounts()
	out := make([]accountSummary, 0, len(accounts))
	for _, account := range accounts {
		entry := accountSummary{Account: account}
		if s, ok := sc.LastScan(account); ok {
			entry.Summary = &s
		}
		out = append(out, entry)
	}

	jsonData, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scan summaries: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
