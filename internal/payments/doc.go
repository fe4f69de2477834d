// Package payments serves the two HTTP endpoints the checkout widget calls:
//
//	POST /api/checkout   create a Stripe Checkout session and return its URL
//	POST /api/payments   record a completed booking for a known user
//
// Recorded payments are stored through store.Store and announced with a
// payment.recorded event.
package payments
