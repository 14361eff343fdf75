package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"snaketunes-srv/internal/logging"
)

// Manager owns one Registry per session id.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Registry
	store    Store
	idleTTL  time.Duration
}

// NewManager creates a manager. store may be nil for memory-only sessions;
// idleTTL of zero keeps sessions until reset.
func NewManager(store Store, idleTTL time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Registry),
		store:    store,
		idleTTL:  idleTTL,
	}
}

// New starts a fresh session and returns its id.
func (m *Manager) New() string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = &Registry{sessionID: id, ids: make(map[string]struct{}), store: m.store, touched: time.Now()}
	m.mu.Unlock()
	return id
}

// loadTimeout bounds one read of persisted ids.
const loadTimeout = 2 * time.Second

// Get returns the registry for id, creating it (and loading any persisted
// ids) on first use. An empty id yields a new anonymous session.
//
// A registry whose persisted ids could not be read is returned but not
// kept, so the next Get retries the load instead of trusting an empty set.
func (m *Manager) Get(ctx context.Context, id string) *Registry {
	if id == "" {
		id = m.New()
	}

	m.mu.Lock()
	r, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return r
	}

	r = &Registry{sessionID: id, ids: make(map[string]struct{}), store: m.store, touched: time.Now()}
	if m.store != nil {
		// The caller going away must not cost the session its history.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		seen, err := m.store.LoadSeen(lctx, id)
		cancel()
		if err != nil {
			logging.Warn().Err(err).Str("session", id).Msg("load seen tracks failed, will retry on next request")
			return r
		}
		for _, s := range seen {
			r.ids[s] = struct{}{}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing
	}
	m.sessions[id] = r
	return r
}

// Reset clears the seen set of a session.
func (m *Manager) Reset(ctx context.Context, id string) error {
	return m.Get(ctx, id).Reset(ctx)
}

// Prune drops sessions idle for longer than the TTL from memory. Persisted
// ids are kept and reloaded if the session comes back.
func (m *Manager) Prune(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, r := range m.sessions {
		if now.Sub(r.lastTouched()) > m.idleTTL {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len reports the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
