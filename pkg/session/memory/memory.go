// Package memory provides an ephemeral in-memory session store.
//
// Sessions are lost on restart, which is acceptable for the default
// single-process deployment: users simply log in again.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySessionStore keeps session tokens in a map guarded by a mutex.
//
// Expired tokens are dropped lazily on Validate and swept opportunistically
// on Create, so the map cannot grow without bound under normal login traffic.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time
	ttl      time.Duration
}

// NewMemorySessionStore creates an in-memory session store whose tokens
// expire after ttl.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]time.Time),
		ttl:      ttl,
	}
}

// Create mints a new session token.
func (s *MemorySessionStore) Create(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token := uuid.NewString()
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Sweep expired sessions while we hold the lock anyway.
	for t, expiry := range s.sessions {
		if now.After(expiry) {
			delete(s.sessions, t)
		}
	}

	s.sessions[token] = now.Add(s.ttl)
	return token, nil
}

// Validate reports whether token names a live session.
func (s *MemorySessionStore) Validate(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.sessions[token]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(s.sessions, token)
		return false, nil
	}
	return true, nil
}

// Destroy invalidates token. Unknown tokens are ignored.
func (s *MemorySessionStore) Destroy(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Close releases nothing; the store is purely in-memory.
func (s *MemorySessionStore) Close() error {
	return nil
}
