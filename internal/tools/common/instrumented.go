package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/tripbooker/internal/instrumentation"
	"github.com/teemow/tripbooker/internal/server"
)

// ToolHandler is the mcp-go tool handler signature
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging. Without metrics or an audit logger on sc the handler still
// gets its span.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return InstrumentedToolHandlerWithOperation(toolName, "", sc, handler)
}

// InstrumentedToolHandlerWithOperation is like InstrumentedToolHandler but
// also tags the span and the audit record with the upstream or store
// operation the tool performs.
func InstrumentedToolHandlerWithOperation(toolName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		email, _ := UserEmail(ctx)

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().
				WithUser(email).
				WithOperation(operation).
				Build()...)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithUser(email).
			WithOperation(operation)

		result, err := handler(ctx, request)
		duration := time.Since(start)

		var failure error
		switch {
		case err != nil:
			failure = err
		case result != nil && result.IsError:
			failure = errors.New(resultText(result))
		}
		if failure != nil {
			instrumentation.SetSpanError(span, failure)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		invocation.Complete(failure == nil, failure)

		if metrics := sc.Metrics(); metrics != nil {
			metrics.RecordToolInvocationForUser(ctx, toolName, invocation.Status(), email, duration)
		}
		sc.AuditLogger().LogToolInvocation(ctx, invocation)

		return result, err
	}
}

// resultText returns the first text content of a tool result
func resultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return "tool returned an error result"
}
