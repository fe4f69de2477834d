// Package booking_tools provides the MCP tools and widget resources of the
// trip booking server.
//
// # Available Tools
//
// Search:
//   - search_destination: Look up Booking.com destinations for a place name
//   - get_hotels_by_destination: List hotels for a destination and stay
//
// Account:
//   - show_booking_payments: List the caller's recorded booking payments
//
// Widgets:
//   - show_booking_app: Open the booking app widget
//   - show_hotels_view: Open the hotels widget for a search
//   - show_checkout_view: Open the checkout widget for a hotel
//
// Each widget tool references an HTML template resource under ui://widget/
// served with the text/html+skybridge MIME type. Template HTML is fetched
// from the configured widget base URL when a resource is read.
//
// # Authentication
//
// Every tool reads the caller's Google identity from the request context,
// where the OAuth resource guard placed it. Calls without an identity return
// the tool error "User not authenticated.".
package booking_tools
