package scan_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/sendersweep/internal/instrumentation"
	"github.com/teemow/sendersweep/internal/scan"
	"github.com/teemow/sendersweep/internal/server"
	"github.com/teemow/sendersweep/internal/tools/batch"
	"github.com/teemow/sendersweep/internal/tools/common"
)

// scanResponse is a report whose sender list may be truncated.
type scanResponse struct {
	Summary scan.Summary        `json:"summary"`
	Senders []scan.SenderRecord `json:"senders"`
	// Truncated is set when senders beyond the requested limit were left out.
	Truncated bool `json:"truncated,omitempty"`
}

func scanSendersHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		account := common.GetAccountFromArgs(args)

		cfg := sc.ScanConfig()
		if v, ok := args["queries"]; ok && v != nil {
			queries, err := batch.ParseStringOrArray(v, "queries")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			cfg.Queries = queries
		}
		fetchCap, err := intArg(args, "fetchCap", cfg.FetchCap)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cfg.FetchCap = fetchCap
		limit, err := intArg(args, "limit", defaultSenderLimit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		scanner, err := scan.NewScanner(cfg, sc.Logger(), sc.Metrics())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		provider, err := common.ProviderForRequest(ctx, sc, account)
		if err != nil {
			return errorResult(account, "create Gmail client", err), nil
		}

		report, err := scanner.Scan(ctx, provider, account)
		if err != nil {
			return errorResult(account, "scan mailbox", err), nil
		}
		sc.RecordScan(account, report.Summary)
		instrumentation.InvocationFromContext(ctx).WithScan(report.Summary.ScanID, len(report.Senders))

		resp := scanResponse{Summary: report.Summary, Senders: report.Senders}
		if limit > 0 && len(resp.Senders) > limit {
			resp.Senders = resp.Senders[:limit]
			resp.Truncated = true
		}
		return jsonResult(resp)
	}
}

func findUnsubscribeLinksHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		account := common.GetAccountFromArgs(args)

		senders, err := batch.ParseStringOrArray(args["senderEmail"], "senderEmail")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		invocation := instrumentation.InvocationFromContext(ctx).WithTargets(senders...)
		if len(senders) > maxSendersPerLinkRequest {
			return mcp.NewToolResultError(fmt.Sprintf("at most %d senders can be looked up at once, got %d", maxSendersPerLinkRequest, len(senders))), nil
		}
		maxMessages, err := intArg(args, "maxMessages", int(sc.ScanConfig().LinkLookupMessages))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		provider, err := common.ProviderForRequest(ctx, sc, account)
		if err != nil {
			return errorResult(account, "create Gmail client", err), nil
		}

		lookup := func(ctx context.Context, sender string) (*scan.LinkLookup, error) {
			return scan.FindUnsubscribeLinks(ctx, provider, sender, int64(maxMessages), sc.Logger(), sc.Metrics())
		}

		if len(senders) == 1 {
			res, err := lookup(ctx, senders[0])
			if err != nil {
				return errorResult(account, "find unsubscribe links", err), nil
			}
			invocation.WithResults(len(res.Links))
			return jsonResult(res)
		}

		results := batch.ProcessBatch(ctx, senders, lookup)
		succeeded := 0
		for _, r := range results {
			if r.Status == batch.StatusSuccess {
				succeeded++
			}
		}
		invocation.WithResults(succeeded)
		out, err := batch.FormatResults(results)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(out), nil
	}
}
