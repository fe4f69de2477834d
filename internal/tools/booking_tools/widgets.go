package booking_tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/singleflight"
)

// WidgetMIMEType is the MIME type chat hosts render as an embedded widget
const WidgetMIMEType = "text/html+skybridge"

// widgetDomain is advertised to hosts as the origin of widget data
const widgetDomain = "https://rapidapi.com/DataCrawler/api/booking-com15"

const maxTemplateBytes = 2 << 20

// widget is an HTML template resource rendered by the chat host
type widget struct {
	URI         string
	Title       string
	Description string
	Path        string // template path under the widget base URL
	Invoking    string
	Invoked     string
}

var (
	bookingAppWidget = widget{
		URI:         "ui://widget/content-template.html",
		Title:       "Booking App UI",
		Description: "Booking app for planning travel destinations and hotels.",
		Path:        "/",
		Invoking:    "Loading Booking App...",
		Invoked:     "Booking App ready",
	}
	hotelsWidget = widget{
		URI:         "ui://widget/booking-hotels.html",
		Title:       "Hotels View",
		Description: "Displays the Booking hotels UI for a specific destination with full hotel details and availability.",
		Path:        "/hotels",
		Invoking:    "Loading Booking Hotels...",
		Invoked:     "Booking Hotels ready",
	}
	checkoutWidget = widget{
		URI:         "ui://widget/booking-stripe.html",
		Title:       "Stripe Payment View",
		Description: "Displays the Booking Stripe payment UI for the selected hotel and guest.",
		Path:        "/stripe",
		Invoking:    "Loading Stripe Payment...",
		Invoked:     "Stripe Payment ready",
	}
	paymentsWidget = widget{
		URI:         "ui://widget/booking-payments.html",
		Title:       "Booking Payments View",
		Description: "Shows previously recorded booking payments for the authenticated user.",
		Path:        "/payments",
		Invoking:    "Loading Booking Payments...",
		Invoked:     "Booking Payments ready",
	}

	widgets = []widget{bookingAppWidget, hotelsWidget, checkoutWidget, paymentsWidget}
)

// meta is the _meta block attached to tools and results that render w
func (w widget) meta() map[string]any {
	return map[string]any{
		"openai/outputTemplate":          w.URI,
		"openai/toolInvocation/invoking": w.Invoking,
		"openai/toolInvocation/invoked":  w.Invoked,
		"openai/widgetAccessible":        true,
		"openai/resultCanProduceWidget":  true,
		"openai/widgetPrefersBorder":     false,
		"openai/widgetDescription":       w.Description,
		"openai/widgetDomain":            widgetDomain,
	}
}

// contentMeta is the _meta attached to the HTML returned by resources/read.
// It carries the widget keys only; the tool invocation keys belong to tools.
func (w widget) contentMeta() map[string]any {
	return map[string]any{
		"openai/widgetDescription":      w.Description,
		"openai/widgetPrefersBorder":    false,
		"openai/resultCanProduceWidget": true,
		"openai/widgetAccessible":       true,
		"openai/widgetDomain":           widgetDomain,
	}
}

// templateSource fetches widget HTML from the front end. Concurrent reads of
// the same template share one upstream request.
type templateSource struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
	group   singleflight.Group
}

// Fetch returns the HTML document for w
func (s *templateSource) Fetch(ctx context.Context, w widget) (string, error) {
	// The fetch is shared, so one caller going away must not cancel it
	// for the others; the client timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(w.Path, func() (interface{}, error) {
		return s.fetch(shared, w.Path)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *templateSource) fetch(ctx context.Context, path string) (string, error) {
	// The version parameter defeats intermediate caches so template
	// changes show up without a redeploy of this server.
	endpoint := s.baseURL + path + "?v=" + strconv.FormatInt(s.now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch widget template: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch widget template %s: %s", path, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTemplateBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read widget template: %w", err)
	}

	html := strings.TrimSpace(string(body))
	if !strings.Contains(strings.ToLower(html), "<html") {
		html = "<html>" + html + "</html>"
	}
	return html, nil
}

// registerWidgetResources registers one HTML resource per widget
func registerWidgetResources(s *mcpserver.MCPServer, source *templateSource) {
	for _, w := range widgets {
		w := w
		resource := mcp.NewResource(w.URI, w.Title,
			mcp.WithResourceDescription(w.Description),
			mcp.WithMIMEType(WidgetMIMEType),
		)
		s.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			html, err := source.Fetch(ctx, w)
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				&mcp.TextResourceContents{
					URI:      w.URI,
					MIMEType: WidgetMIMEType,
					Text:     html,
					Meta:     w.contentMeta(),
				},
			}, nil
		})
	}
}
