package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps users and payments in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*User // by normalized email
	payments map[uuid.UUID][]Payment
	now      func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*User),
		payments: make(map[uuid.UUID][]Payment),
		now:      time.Now,
	}
}

func (s *MemoryStore) EnsureUser(_ context.Context, email, name string) (*User, error) {
	key := normalizeEmail(email)
	if key == "" {
		return nil, fmt.Errorf("email is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	user, ok := s.users[key]
	if !ok {
		user = &User{ID: uuid.New(), Email: key, CreatedAt: now}
		s.users[key] = user
	}
	if name != "" {
		user.Name = name
	}
	user.UpdatedAt = now

	copied := *user
	return &copied, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStore) CreatePayment(_ context.Context, payment *Payment) error {
	if err := validatePayment(payment); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasUser(payment.UserID) {
		return ErrNotFound
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = s.now().UTC()
	}
	s.payments[payment.UserID] = append(s.payments[payment.UserID], *payment)
	return nil
}

func (s *MemoryStore) ListPayments(_ context.Context, userID uuid.UUID, limit int) ([]Payment, error) {
	s.mu.RLock()
	stored := s.payments[userID]
	payments := make([]Payment, len(stored))
	copy(payments, stored)
	s.mu.RUnlock()

	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	if limit = effectiveLimit(limit); len(payments) > limit {
		payments = payments[:limit]
	}
	return payments, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// hasUser must be called with s.mu held.
func (s *MemoryStore) hasUser(id uuid.UUID) bool {
	for _, u := range s.users {
		if u.ID == id {
			return true
		}
	}
	return false
}
