package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/tripbooker/internal/instrumentation"
	"github.com/teemow/tripbooker/internal/mcp/oauth"
	"github.com/teemow/tripbooker/internal/server"
)

func newTestServerContext(t *testing.T) (*server.ServerContext, *bytes.Buffer) {
	t.Helper()
	sc := server.NewServerContext(context.Background(), nil, nil, nil, nil)
	t.Cleanup(func() { _ = sc.Shutdown() })

	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), true)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	sc.SetMetrics(metrics)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sc.SetAuditLogger(instrumentation.NewAuditLogger(logger, instrumentation.AuditLoggingConfig{Enabled: true}))
	return sc, &buf
}

func TestInstrumentedToolHandler_WithoutInstrumentation(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil, nil, nil, nil)
	defer func() { _ = sc.Shutdown() }()

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	}

	result, err := InstrumentedToolHandler("test_tool", sc, handler)(context.Background(), mcp.CallToolRequest{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
	if result == nil {
		t.Error("expected result, got nil")
	}
}

func TestInstrumentedToolHandler_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		handler  ToolHandler
		wantErr  bool
		wantMsg  string
		wantText string
	}{
		{
			name: "success",
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				time.Sleep(time.Millisecond)
				return mcp.NewToolResultText("ok"), nil
			},
			wantMsg: "tool_executed",
		},
		{
			name: "error result",
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultError("Booking API call failed"), nil
			},
			wantMsg:  "tool_failed",
			wantText: "Booking API call failed",
		},
		{
			name: "handler error",
			handler: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return nil, errors.New("store unavailable")
			},
			wantErr:  true,
			wantMsg:  "tool_failed",
			wantText: "store unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, logs := newTestServerContext(t)
			ctx := oauth.ContextWithIdentity(context.Background(), &oauth.Identity{Email: "traveler@example.com"})

			wrapped := InstrumentedToolHandlerWithOperation("show_booking_payments", instrumentation.OperationListPayments, sc, tt.handler)
			_, err := wrapped(ctx, mcp.CallToolRequest{})

			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			out := logs.String()
			if !strings.Contains(out, `"msg":"`+tt.wantMsg+`"`) {
				t.Errorf("audit log = %s, want msg %s", out, tt.wantMsg)
			}
			if tt.wantText != "" && !strings.Contains(out, tt.wantText) {
				t.Errorf("audit log = %s, want error %q", out, tt.wantText)
			}
			if !strings.Contains(out, `"operation":"list_payments"`) {
				t.Errorf("audit log = %s, want the operation", out)
			}
			if strings.Contains(out, "traveler@example.com") {
				t.Error("audit log contains the caller's email")
			}
		})
	}
}

func TestInstrumentedToolHandler_PassesSpanContext(t *testing.T) {
	sc, _ := newTestServerContext(t)

	var sawIdentity bool
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		_, sawIdentity = UserEmail(ctx)
		return mcp.NewToolResultText("ok"), nil
	}

	ctx := oauth.ContextWithIdentity(context.Background(), &oauth.Identity{Email: "traveler@example.com"})
	if _, err := InstrumentedToolHandler("search_destination", sc, handler)(ctx, mcp.CallToolRequest{}); err != nil {
		t.Fatal(err)
	}
	if !sawIdentity {
		t.Error("identity lost in the wrapped context")
	}
}

func TestResultText(t *testing.T) {
	if got := resultText(nil); got != "" {
		t.Errorf("resultText(nil) = %q", got)
	}
	if got := resultText(mcp.NewToolResultError("boom")); got != "boom" {
		t.Errorf("resultText() = %q, want boom", got)
	}
	if got := resultText(&mcp.CallToolResult{IsError: true}); got == "" {
		t.Error("resultText() without text content should still describe the failure")
	}
}
