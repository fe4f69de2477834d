package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_EnsureUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.EnsureUser(ctx, "Alice@Example.com", "Alice")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, "alice@example.com", first.Email)

	again, err := s.EnsureUser(ctx, "alice@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "same email must map to the same user")
	assert.Equal(t, "Alice", again.Name, "empty name must not clear the stored one")

	renamed, err := s.EnsureUser(ctx, "alice@example.com", "Alice Smith")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", renamed.Name)

	_, err = s.EnsureUser(ctx, "  ", "")
	assert.Error(t, err)
}

func TestMemoryStore_EnsureUserConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ids := make(chan uuid.UUID, 20)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := s.EnsureUser(ctx, "bob@example.com", "")
			if err == nil {
				ids <- u.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uuid.UUID]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)
}

func TestMemoryStore_GetUserByEmail(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetUserByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, ErrNotFound))

	created, err := s.EnsureUser(ctx, "carol@example.com", "")
	require.NoError(t, err)

	got, err := s.GetUserByEmail(ctx, "CAROL@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestMemoryStore_Payments(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return start.Add(time.Duration(tick) * time.Minute)
	}

	user, err := s.EnsureUser(ctx, "dave@example.com", "")
	require.NoError(t, err)
	other, err := s.EnsureUser(ctx, "erin@example.com", "")
	require.NoError(t, err)

	for _, hotel := range []string{"First", "Second", "Third"} {
		p := &Payment{UserID: user.ID, Price: 120, Currency: "usd", HotelName: hotel}
		require.NoError(t, s.CreatePayment(ctx, p))
		assert.NotEqual(t, uuid.Nil, p.ID)
		assert.False(t, p.CreatedAt.IsZero())
	}
	require.NoError(t, s.CreatePayment(ctx, &Payment{UserID: other.ID, Currency: "eur", HotelName: "Elsewhere"}))

	payments, err := s.ListPayments(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, payments, 3)
	assert.Equal(t, "Third", payments[0].HotelName, "newest first")
	assert.Equal(t, "First", payments[2].HotelName)

	limited, err := s.ListPayments(ctx, user.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := s.ListPayments(ctx, uuid.New(), 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryStore_CreatePaymentValidation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	user, err := s.EnsureUser(ctx, "frank@example.com", "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		payment *Payment
		wantErr error
	}{
		{"nil", nil, nil},
		{"no user", &Payment{Currency: "usd", HotelName: "X"}, nil},
		{"no currency", &Payment{UserID: user.ID, HotelName: "X"}, nil},
		{"no hotel", &Payment{UserID: user.ID, Currency: "usd"}, nil},
		{"unknown user", &Payment{UserID: uuid.New(), Currency: "usd", HotelName: "X"}, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CreatePayment(ctx, tt.payment)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

type recordedOp struct {
	operation string
	status    string
}

type fakeRecorder struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (f *fakeRecorder) RecordStoreOperation(_ context.Context, operation, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, recordedOp{operation, status})
}

func TestWithMetrics(t *testing.T) {
	rec := &fakeRecorder{}
	s := WithMetrics(NewMemoryStore(), rec)
	ctx := context.Background()

	user, err := s.EnsureUser(ctx, "gina@example.com", "")
	require.NoError(t, err)
	_, _ = s.GetUserByEmail(ctx, "missing@example.com")
	_ = s.CreatePayment(ctx, &Payment{UserID: user.ID})
	_, _ = s.ListPayments(ctx, user.ID, 5)

	assert.Equal(t, []recordedOp{
		{"ensure_user", "success"},
		{"get_user", "not_found"},
		{"create_payment", "error"},
		{"list_payments", "success"},
	}, rec.ops)

	plain := NewMemoryStore()
	assert.Same(t, plain, WithMetrics(plain, nil))
}
