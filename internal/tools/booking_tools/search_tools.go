package booking_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tripbooker/internal/booking"
	"github.com/teemow/tripbooker/internal/instrumentation"
	"github.com/teemow/tripbooker/internal/server"
	"github.com/teemow/tripbooker/internal/tools/common"
)

// hotelSearchOptions are the get_hotels_by_destination and show_hotels_view
// inputs
func hotelSearchOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("dest_id",
			mcp.Required(),
			mcp.Description("Destination id returned by search_destination"),
		),
		mcp.WithString("search_type",
			mcp.Required(),
			mcp.Description("Destination type returned by search_destination, e.g. CITY, REGION, DISTRICT"),
		),
		mcp.WithString("arrival_date",
			mcp.Required(),
			mcp.Description("Check-in date (YYYY-MM-DD)"),
		),
		mcp.WithString("departure_date",
			mcp.Required(),
			mcp.Description("Check-out date (YYYY-MM-DD)"),
		),
		mcp.WithNumber("adults",
			mcp.Description("Number of adult guests (default: 1)"),
		),
		mcp.WithString("children_age",
			mcp.Description("Comma separated ages of the children, e.g. \"0,7\""),
		),
		mcp.WithNumber("room_qty",
			mcp.Description("Number of rooms (default: 1)"),
		),
		mcp.WithString("currency_code",
			mcp.Description("Currency for prices (default: USD)"),
		),
		mcp.WithString("location",
			mcp.Description("Country code of the searching user (default: US)"),
		),
		mcp.WithString("languagecode",
			mcp.Description("Result language (default: en-us)"),
		),
		mcp.WithString("temperature_unit",
			mcp.Description("Temperature unit, c or f (default: c)"),
		),
		mcp.WithString("units",
			mcp.Description("Measurement units, metric or imperial (default: metric)"),
		),
		mcp.WithNumber("page_number",
			mcp.Description("Result page (default: 1)"),
		),
	}
}

// bookingError renders a booking client failure as tool error text
func bookingError(action string, err error) *mcp.CallToolResult {
	if errors.Is(err, booking.ErrMissingAPIKey) {
		return mcp.NewToolResultError("Booking search is not configured on this server.")
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}

// registerSearchTools registers the destination and hotel search tools
func registerSearchTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	searchDestinationTool := mcp.NewTool("search_destination",
		mcp.WithDescription("Search Booking.com destinations (cities, regions, districts, landmarks) for a place name. Use the returned dest_id and search_type with get_hotels_by_destination."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Place to search for, e.g. \"Lisbon\" or \"Eiffel Tower\""),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(searchDestinationTool, common.InstrumentedToolHandlerWithOperation(
		"search_destination", instrumentation.OperationSearchDestination, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			email, errResult := common.RequireUser(ctx)
			if errResult != nil {
				return errResult, nil
			}

			args := request.GetArguments()
			query := stringArg(args, "query")
			if query == "" {
				return mcp.NewToolResultError("query is required"), nil
			}

			searcher := sc.Booking()
			if searcher == nil {
				return bookingError("search destinations", booking.ErrMissingAPIKey), nil
			}

			ctx, span := instrumentation.StartBookingSpan(ctx, instrumentation.OperationSearchDestination)
			defer span.End()

			destinations, err := searcher.SearchDestination(ctx, query)
			if err != nil {
				instrumentation.SetSpanError(span, err)
				return bookingError("search destinations", err), nil
			}
			span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithResultCount(len(destinations.Data)).Build()...)
			instrumentation.SetSpanSuccess(span)

			text := fmt.Sprintf("Found %d destinations for %q.", len(destinations.Data), query)
			return structuredResult(text, map[string]any{
				"query":        query,
				"destinations": destinations.Data,
				"email":        email,
				"timestamp":    timestamp(),
			}, nil), nil
		},
	))

	hotelsTool := mcp.NewTool("get_hotels_by_destination",
		append([]mcp.ToolOption{
			mcp.WithDescription("List available hotels for a destination and stay dates, with prices and review scores."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithOpenWorldHintAnnotation(true),
		}, hotelSearchOptions()...)...,
	)

	s.AddTool(hotelsTool, common.InstrumentedToolHandlerWithOperation(
		"get_hotels_by_destination", instrumentation.OperationSearchHotels, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			email, errResult := common.RequireUser(ctx)
			if errResult != nil {
				return errResult, nil
			}

			params, err := hotelSearchParamsFromArgs(request.GetArguments())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			searcher := sc.Booking()
			if searcher == nil {
				return bookingError("fetch hotels", booking.ErrMissingAPIKey), nil
			}

			ctx, span := instrumentation.StartBookingSpan(ctx, instrumentation.OperationSearchHotels,
				instrumentation.NewSpanAttributeBuilder().WithDestination(params.DestID).Build()...)
			defer span.End()

			result, err := searcher.SearchHotels(ctx, params)
			if err != nil {
				instrumentation.SetSpanError(span, err)
				return bookingError("fetch hotels", err), nil
			}
			hotels := result.Hotels()
			span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithResultCount(len(hotels)).Build()...)
			instrumentation.SetSpanSuccess(span)

			text := fmt.Sprintf("Found %d hotels for destination %s.", len(hotels), params.DestID)
			return structuredResult(text, map[string]any{
				"hotels":    hotels,
				"email":     email,
				"timestamp": timestamp(),
			}, nil), nil
		},
	))
}
