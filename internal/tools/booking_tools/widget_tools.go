package booking_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tripbooker/internal/server"
	"github.com/teemow/tripbooker/internal/tools/common"
)

// hotelName digs property.name out of a Booking hotel object
func hotelName(hotel map[string]interface{}) string {
	if property, ok := hotel["property"].(map[string]interface{}); ok {
		if name, ok := property["name"].(string); ok && name != "" {
			return name
		}
	}
	if name, ok := hotel["hotel_name"].(string); ok && name != "" {
		return name
	}
	return "the selected hotel"
}

// registerWidgetTools registers the tools that open a widget in the host
func registerWidgetTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	appTool := mcp.NewTool("show_booking_app",
		mcp.WithDescription("Open the booking app to plan travel destinations and hotels."),
		mcp.WithString("name",
			mcp.Description("Optional name shown in the app header"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	appTool.Meta = &mcp.Meta{AdditionalFields: bookingAppWidget.meta()}

	s.AddTool(appTool, common.InstrumentedToolHandler("show_booking_app", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if _, errResult := common.RequireUser(ctx); errResult != nil {
				return errResult, nil
			}

			name := stringArg(request.GetArguments(), "name")
			if name == "" {
				name = "Booking App"
			}
			return structuredResult(
				"Booking App loaded! I can help you search for travel destinations and find hotels.",
				map[string]any{
					"name":      name,
					"timestamp": timestamp(),
				}, &bookingAppWidget), nil
		},
	))

	hotelsViewTool := mcp.NewTool("show_hotels_view",
		append([]mcp.ToolOption{
			mcp.WithDescription("Show the hotels widget for a destination and stay. The widget runs the search itself."),
			mcp.WithReadOnlyHintAnnotation(true),
		}, hotelSearchOptions()...)...,
	)
	hotelsViewTool.Meta = &mcp.Meta{AdditionalFields: hotelsWidget.meta()}

	s.AddTool(hotelsViewTool, common.InstrumentedToolHandler("show_hotels_view", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if _, errResult := common.RequireUser(ctx); errResult != nil {
				return errResult, nil
			}

			params, err := hotelSearchParamsFromArgs(request.GetArguments())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			params = params.WithDefaults()

			text := fmt.Sprintf("Showing hotels for destination %s (%s → %s).",
				params.DestID, params.ArrivalDate, params.DepartureDate)
			return structuredResult(text, map[string]any{
				"searchParams": params,
				"timestamp":    timestamp(),
			}, &hotelsWidget), nil
		},
	))

	checkoutTool := mcp.NewTool("show_checkout_view",
		mcp.WithDescription("Show the checkout widget to pay for the selected hotel."),
		mcp.WithObject("hotel",
			mcp.Required(),
			mcp.Description("Hotel object as returned by get_hotels_by_destination"),
		),
		mcp.WithString("email",
			mcp.Description("Guest email for the receipt (default: the signed-in user)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	checkoutTool.Meta = &mcp.Meta{AdditionalFields: checkoutWidget.meta()}

	s.AddTool(checkoutTool, common.InstrumentedToolHandler("show_checkout_view", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			userEmail, errResult := common.RequireUser(ctx)
			if errResult != nil {
				return errResult, nil
			}

			args := request.GetArguments()
			hotel, ok := args["hotel"].(map[string]interface{})
			if !ok {
				return mcp.NewToolResultError("hotel is required"), nil
			}
			email := stringArg(args, "email")
			if email == "" {
				email = userEmail
			}

			return structuredResult(fmt.Sprintf("Stripe Payment loaded for %s!", hotelName(hotel)),
				map[string]any{
					"hotel":     hotel,
					"email":     email,
					"timestamp": timestamp(),
				}, &checkoutWidget), nil
		},
	))
}
