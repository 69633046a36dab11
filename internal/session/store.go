// Package session keeps each browser session's generation state between
// requests.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/highscore/internal/generator"
)

// Store persists generation state per session.
type Store interface {
	// Load returns the session's state, or a fresh empty state if none exists.
	Load(ctx context.Context, id string) (*generator.State, error)
	Save(ctx context.Context, id string, state *generator.State) error
	Delete(ctx context.Context, id string) error
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an identifier issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type memoryEntry struct {
	state     *generator.State
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory session store. Sessions idle for
// longer than ttl are discarded; a zero ttl keeps them for the process lifetime.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*generator.State, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}

	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || s.expired(entry) {
		return &generator.State{}, nil
	}
	return entry.state.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, id string, state *generator.State) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}

	entry := memoryEntry{state: state.Clone()}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = entry
	s.evictExpired()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.sessions {
		if !s.expired(e) {
			n++
		}
	}
	return n
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}

// evictExpired must be called with the write lock held.
func (s *MemoryStore) evictExpired() {
	for id, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, id)
		}
	}
}
