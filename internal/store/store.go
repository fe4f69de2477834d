package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a user or payment does not exist.
var ErrNotFound = errors.New("not found")

// DefaultPaymentsLimit is the number of payments shown to a user.
const DefaultPaymentsLimit = 50

// User is an account created the first time a Google identity reaches the
// MCP endpoint.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Payment is a completed hotel booking checkout.
type Payment struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"userId"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	HotelName    string    `json:"hotelName"`
	CheckinDate  time.Time `json:"checkinDate"`
	CheckoutDate time.Time `json:"checkoutDate"`
	PhotoURL     string    `json:"photoUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store is the persistence contract used by the MCP tools and the payments
// API.
type Store interface {
	// EnsureUser creates the user for email, or refreshes its name when it
	// already exists. An empty name never overwrites a stored one.
	EnsureUser(ctx context.Context, email, name string) (*User, error)

	// GetUserByEmail returns ErrNotFound for unknown emails.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// CreatePayment assigns ID and CreatedAt when they are zero.
	CreatePayment(ctx context.Context, payment *Payment) error

	// ListPayments returns at most limit payments of userID, newest first.
	// A limit <= 0 means DefaultPaymentsLimit.
	ListPayments(ctx context.Context, userID uuid.UUID, limit int) ([]Payment, error)

	Ping(ctx context.Context) error
	Close() error
}

// normalizeEmail makes emails compare case-insensitively.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePayment(p *Payment) error {
	switch {
	case p == nil:
		return errors.New("payment is nil")
	case p.UserID == uuid.Nil:
		return errors.New("payment has no user")
	case p.Currency == "":
		return errors.New("payment has no currency")
	case p.HotelName == "":
		return errors.New("payment has no hotel name")
	}
	return nil
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultPaymentsLimit
	}
	return limit
}
