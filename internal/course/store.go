package course

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultSessionTTL = 24 * time.Hour

// SessionStore owns the mapping from user id to course session. Concurrent
// access for distinct users must be safe; turns for the same user are
// serialized by the engine, not the store.
type SessionStore interface {
	Get(userID string) (*Session, bool)
	Put(s *Session) error
	Delete(userID string) error
	All() []*Session
}

// MemoryStore is the default in-memory SessionStore. Sessions idle longer
// than the TTL are evicted lazily on Get and periodically by the janitor.
type MemoryStore struct {
	sessions map[string]*Session
	ttl      time.Duration
	mu       sync.RWMutex
}

// NewMemoryStore creates an in-memory session store. A non-positive ttl
// selects the default of 24 hours.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func (m *MemoryStore) Get(userID string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.expired(s) {
		m.mu.Lock()
		delete(m.sessions, userID)
		m.mu.Unlock()
		return nil, false
	}
	return s, true
}

func (m *MemoryStore) Put(s *Session) error {
	s.UpdatedAt = time.Now()
	m.mu.Lock()
	m.sessions[s.UserID] = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(userID string) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if !m.expired(s) {
			out = append(out, s)
		}
	}
	return out
}

// StartJanitor evicts expired sessions every interval until ctx is done.
func (m *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.evictExpired()
			}
		}
	}()
}

func (m *MemoryStore) evictExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Info("expired sessions evicted", "count", evicted)
	}
}

func (m *MemoryStore) expired(s *Session) bool {
	return time.Since(s.UpdatedAt) > m.ttl
}
