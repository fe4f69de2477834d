package booking_tools

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tripbooker/internal/server"
)

// Config configures the booking tools
type Config struct {
	// WidgetBaseURL is where widget template HTML is fetched from, e.g.
	// "https://trips.example.com". REQUIRED.
	WidgetBaseURL string

	// HTTPClient fetches widget templates. Defaults to a client with a 10s
	// timeout.
	HTTPClient *http.Client
}

// RegisterBookingTools registers all booking tools and widget resources with
// the MCP server
func RegisterBookingTools(s *mcpserver.MCPServer, sc *server.ServerContext, config Config) error {
	if s == nil || sc == nil {
		return fmt.Errorf("MCP server and server context are required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(config.WidgetBaseURL), "/")
	if baseURL == "" {
		return fmt.Errorf("widget base URL is required")
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	registerSearchTools(s, sc)
	registerPaymentTools(s, sc)

	source := &templateSource{baseURL: baseURL, client: client, now: time.Now}
	registerWidgetResources(s, source)
	registerWidgetTools(s, sc)

	return nil
}

// structuredResult returns a text result carrying data as structured content
func structuredResult(text string, data any, widget *widget) *mcp.CallToolResult {
	result := &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(text)},
		StructuredContent: data,
	}
	if widget != nil {
		result.Meta = &mcp.Meta{AdditionalFields: widget.meta()}
	}
	return result
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
