package auth

import (
	"context"
	"sync"
)

// MemoryStore implements Store in process memory.
//
// It is suitable for tests and ephemeral runs where nothing should outlive
// the process. Fields are replaced together under one lock, so a mixed
// session is never observable.
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save replaces the stored session.
func (m *MemoryStore) Save(ctx context.Context, session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := session
	m.session = &s
	return nil
}

// Load returns the stored session, if any.
func (m *MemoryStore) Load(ctx context.Context) (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil || m.session.Token == "" || m.session.Handle == "" {
		return Session{}, false, nil
	}
	return *m.session, true, nil
}

// Clear removes the stored session. Clearing an empty store is a no-op.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = nil
	return nil
}

// IsActive reports whether a session is recorded.
func (m *MemoryStore) IsActive(ctx context.Context) (bool, error) {
	_, ok, err := m.Load(ctx)
	return ok, err
}
