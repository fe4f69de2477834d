package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeUserSignedIn    = "user.signed_in"
	TypePaymentRecorded = "payment.recorded"
)

// Event is the envelope every message is published in.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

// New returns an event of the given type stamped with a fresh id.
func New(eventType string, data any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher delivers events. Callers log failures and carry on; a broken
// broker never fails a user request.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }

// UserSignedIn is the payload of TypeUserSignedIn.
type UserSignedIn struct {
	UserID   uuid.UUID `json:"userId"`
	UserHash string    `json:"userHash"`
}

// PaymentRecorded is the payload of TypePaymentRecorded.
type PaymentRecorded struct {
	PaymentID uuid.UUID `json:"paymentId"`
	UserID    uuid.UUID `json:"userId"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	HotelName string    `json:"hotelName"`
}
