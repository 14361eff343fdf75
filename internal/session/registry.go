// Package session holds the per-play-session record of tracks already
// recommended, so a session never hears the same song twice.
package session

import (
	"context"
	"sync"
	"time"

	"snaketunes-srv/internal/logging"
)

// Store persists seen ids. Implementations must be safe for concurrent use.
type Store interface {
	LoadSeen(ctx context.Context, sessionID string) ([]string, error)
	AddSeen(ctx context.Context, sessionID string, ids []string) error
	ResetSeen(ctx context.Context, sessionID string) error
}

// Registry is the seen-track set of one session. All writes go through the
// mutex; Commit holds it across selection so two concurrent requests in the
// same session cannot pick the same track.
type Registry struct {
	mu        sync.Mutex
	sessionID string
	ids       map[string]struct{}
	store     Store
	touched   time.Time
}

// NewRegistry returns an empty, unpersisted registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]struct{}), touched: time.Now()}
}

func (r *Registry) SessionID() string { return r.sessionID }

// Seen reports whether id was already returned in this session.
func (r *Registry) Seen(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

// Commit runs pick under the registry lock and registers every id it
// returns. pick must not call back into the registry.
func (r *Registry) Commit(pick func(seen func(id string) bool) []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	chosen := pick(func(id string) bool {
		_, ok := r.ids[id]
		return ok
	})

	fresh := make([]string, 0, len(chosen))
	for _, id := range chosen {
		if _, ok := r.ids[id]; ok {
			continue
		}
		r.ids[id] = struct{}{}
		fresh = append(fresh, id)
	}
	r.touched = time.Now()

	if r.store != nil && len(fresh) > 0 {
		// Persisting is best effort; the in-memory set stays authoritative.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.store.AddSeen(ctx, r.sessionID, fresh); err != nil {
			logging.Warn().Err(err).Str("session", r.sessionID).Msg("persist seen tracks failed")
		}
	}
	return chosen
}

// Add registers ids outside of a selection.
func (r *Registry) Add(ids ...string) {
	r.Commit(func(func(string) bool) []string { return ids })
}

// Reset clears the session, in memory and in the store.
func (r *Registry) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = make(map[string]struct{})
	r.touched = time.Now()
	if r.store != nil {
		return r.store.ResetSeen(ctx, r.sessionID)
	}
	return nil
}

func (r *Registry) lastTouched() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touched
}
