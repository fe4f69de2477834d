// Package booking is a small client for the Booking.com API published on
// RapidAPI (booking-com15).
//
// Only the two lookups the MCP tools need are covered: destination search
// by free text, and hotel search for a destination id and stay. Response
// bodies are kept as raw JSON per item so that fields the upstream adds
// reach the widgets unchanged.
package booking
