package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/tripbooker/internal/events"
	"github.com/teemow/tripbooker/internal/logging"
	"github.com/teemow/tripbooker/internal/mcp/oauth"
	"github.com/teemow/tripbooker/internal/store"
)

// defaultSignInMemory is how many distinct users one generation of the
// sign-in memory holds.
const defaultSignInMemory = 10000

// signInRecorder creates the user row for every verified identity and
// publishes user.signed_in the first time a user is seen. The memory of seen
// users is two generations of at most limit entries each; a user evicted
// from both is announced again on their next request.
type signInRecorder struct {
	store     store.Store
	publisher events.Publisher
	logger    *slog.Logger

	mu       sync.Mutex
	limit    int
	current  map[string]struct{}
	previous map[string]struct{}
}

func newSignInRecorder(st store.Store, publisher events.Publisher, logger *slog.Logger) *signInRecorder {
	return &signInRecorder{
		store:     st,
		publisher: publisher,
		logger:    logging.WithComponent(logger, "signin"),
		limit:     defaultSignInMemory,
		current:   make(map[string]struct{}),
	}
}

// remember records email and reports whether it was new.
func (r *signInRecorder) remember(email string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.current[email]; ok {
		return false
	}
	_, known := r.previous[email]
	if len(r.current) >= r.limit {
		r.previous = r.current
		r.current = make(map[string]struct{}, r.limit)
	}
	r.current[email] = struct{}{}
	return !known
}

// size is the number of remembered emails, for tests.
func (r *signInRecorder) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.current) + len(r.previous)
}

// Hook satisfies oauth.SignInHook
func (r *signInRecorder) Hook(ctx context.Context, identity *oauth.Identity) error {
	if identity == nil || identity.Email == "" {
		return nil
	}
	user, err := r.store.EnsureUser(ctx, identity.Email, "")
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}

	if !r.remember(user.Email) {
		return nil
	}

	event := events.New(events.TypeUserSignedIn, events.UserSignedIn{
		UserID:   user.ID,
		UserHash: logging.AnonymizeEmail(user.Email),
	})
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("Failed to publish sign-in event", logging.UserHash(user.Email), logging.Err(err))
	}
	return nil
}
