package scan_tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/sendersweep/internal/gmail"
	"github.com/teemow/sendersweep/internal/google"
	"github.com/teemow/sendersweep/internal/instrumentation"
	"github.com/teemow/sendersweep/internal/server"
	"github.com/teemow/sendersweep/internal/tools/common"
)

// Tool names.
const (
	ToolScanSenders          = "gmail_scan_senders"
	ToolFindUnsubscribeLinks = "gmail_find_unsubscribe_links"
)

const (
	defaultSenderLimit       = 50
	maxSendersPerLinkRequest = 20
)

// RegisterScanTools registers the sender scan and unsubscribe link tools.
// Both are read-only.
func RegisterScanTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	scanTool := mcp.NewTool(ToolScanSenders,
		mcp.WithDescription("Scan the Promotions and Updates categories of a Gmail mailbox and report senders ranked by how many emails they sent, with unread counts, latest email date, recent subjects and whether they advertise an unsubscribe header."),
		mcp.WithString("account",
			mcp.Description(common.AccountDescription),
		),
		mcp.WithString("queries",
			mcp.Description("Gmail search query (string) or array of queries to scan instead of the default category queries"),
		),
		mcp.WithNumber("fetchCap",
			mcp.Description("Maximum number of messages whose metadata is fetched (default from server configuration)"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of senders to return, 0 for all (default: %d). Summary totals always cover all senders.", defaultSenderLimit)),
		),
	)
	s.AddTool(scanTool, common.InstrumentedToolHandler(ToolScanSenders, instrumentation.OperationList, sc, scanSendersHandler(sc)))

	linksTool := mcp.NewTool(ToolFindUnsubscribeLinks,
		mcp.WithDescription("Find unsubscribe links for one or more senders by inspecting their most recent emails. Uses the List-Unsubscribe header and falls back to links in the email body."),
		mcp.WithString("account",
			mcp.Description(common.AccountDescription),
		),
		mcp.WithString("senderEmail",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("Sender email address (string) or array of up to %d addresses", maxSendersPerLinkRequest)),
		),
		mcp.WithNumber("maxMessages",
			mcp.Description("Number of recent emails to inspect per sender (default from server configuration)"),
		),
	)
	s.AddTool(linksTool, common.InstrumentedToolHandler(ToolFindUnsubscribeLinks, instrumentation.OperationGet, sc, findUnsubscribeLinksHandler(sc)))

	return nil
}

// intArg reads an optional non-negative integer argument. JSON numbers
// arrive as float64.
func intArg(args map[string]any, name string, def int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("'%s' must be a number", name)
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("'%s' must be a non-negative integer", name)
	}
	return int(f), nil
}

// errorResult turns a failure into a tool error, with instructions when
// the account needs to be authorized.
func errorResult(account, action string, err error) *mcp.CallToolResult {
	if errors.Is(err, google.ErrNoToken) || gmail.IsAuthError(err) {
		msg := google.GetAuthenticationErrorMessage(account)
		if url, urlErr := google.GetAuthURL(); urlErr == nil {
			msg += "\n\nAuthorization URL:\n" + url
		}
		return mcp.NewToolResultError(msg)
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
