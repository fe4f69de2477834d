package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// MetricsRecorder receives one observation per store call.
type MetricsRecorder interface {
	RecordStoreOperation(ctx context.Context, operation, status string, duration time.Duration)
}

type instrumentedStore struct {
	Store
	metrics MetricsRecorder
}

// WithMetrics wraps s so that every data operation is reported to m.
// ErrNotFound counts as "not_found", not as an error.
func WithMetrics(s Store, m MetricsRecorder) Store {
	if m == nil {
		return s
	}
	return &instrumentedStore{Store: s, metrics: m}
}

func (s *instrumentedStore) observe(ctx context.Context, op string, start time.Time, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	s.metrics.RecordStoreOperation(ctx, op, status, time.Since(start))
}

func (s *instrumentedStore) EnsureUser(ctx context.Context, email, name string) (*User, error) {
	start := time.Now()
	u, err := s.Store.EnsureUser(ctx, email, name)
	s.observe(ctx, "ensure_user", start, err)
	return u, err
}

func (s *instrumentedStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	start := time.Now()
	u, err := s.Store.GetUserByEmail(ctx, email)
	s.observe(ctx, "get_user", start, err)
	return u, err
}

func (s *instrumentedStore) CreatePayment(ctx context.Context, p *Payment) error {
	start := time.Now()
	err := s.Store.CreatePayment(ctx, p)
	s.observe(ctx, "create_payment", start, err)
	return err
}

func (s *instrumentedStore) ListPayments(ctx context.Context, userID uuid.UUID, limit int) ([]Payment, error) {
	start := time.Now()
	p, err := s.Store.ListPayments(ctx, userID, limit)
	s.observe(ctx, "list_payments", start, err)
	return p, err
}
