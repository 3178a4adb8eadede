package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound is returned by stores for unknown or destroyed keys.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned when a store is asked to create a session
// whose expiry has already passed.
var ErrSessionExpired = errors.New("session already expired")

// Session binds a principal snapshot to a hashed session token.
type Session struct {
	Key       string    `json:"key"`
	Principal Principal `json:"principal"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session's fixed lifetime has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore persists sessions keyed by token hash.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, key string) (*Session, error)
	Update(ctx context.Context, key string, principal Principal) error
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MemoryStore is a process-local SessionStore.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]Session
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]Session)}
}

func (s *MemoryStore) Create(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	stored.Principal = session.Principal.Clone()
	s.values[session.Key] = stored
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.values[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	entry.Principal = entry.Principal.Clone()
	return &entry, nil
}

func (s *MemoryStore) Update(_ context.Context, key string, principal Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.values[key]
	if !ok {
		return ErrSessionNotFound
	}
	entry.Principal = principal.Clone()
	s.values[key] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictExpiredLocked(now), nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

func (s *MemoryStore) evictExpiredLocked(now time.Time) int64 {
	var removed int64
	for key, entry := range s.values {
		if entry.Expired(now) {
			delete(s.values, key)
			removed++
		}
	}
	return removed
}
