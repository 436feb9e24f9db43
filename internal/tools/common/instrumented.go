package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/sendersweep/internal/instrumentation"
	"github.com/teemow/sendersweep/internal/server"
)

var errToolResult = errors.New("tool returned an error result")

// toolResultError turns the text of an error result into an error.
func toolResultError(result *mcp.CallToolResult) error {
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok && text.Text != "" {
			return fmt.Errorf("%w: %s", errToolResult, text.Text)
		}
	}
	return errToolResult
}

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging. A result with IsError set counts as a failure. The handler
// can annotate the audit record through instrumentation.InvocationFromContext.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", instrumentation.OperationList, sc, handler))
func InstrumentedToolHandler(toolName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		account := GetAccountFromArgs(request.GetArguments())

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().
				WithAccount(account).
				WithService(instrumentation.ServiceGmail).
				WithOperation(operation).
				WithReadOnly(true).
				Build()...)
		defer span.End()

		invocation := instrumentation.NewToolInvocation(toolName, account, operation).WithSpanContext(ctx)
		ctx = instrumentation.ContextWithInvocation(ctx, invocation)

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.Finish(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			invocation.Finish(toolResultError(result))
			instrumentation.SetSpanError(span, errToolResult)
		default:
			invocation.Finish(nil)
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolInvocationWithAccount(ctx, toolName, status, account, duration)
		sc.AuditLogger().LogToolInvocation(ctx, invocation)

		return result, err
	}
}
