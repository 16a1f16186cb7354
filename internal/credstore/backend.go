package credstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by backends for a key that has no value.
var ErrNotFound = errors.New("credential not found")

// SecretBackend stores values that must be encrypted at rest.
// DeleteSecret on a missing key is not an error.
type SecretBackend interface {
	GetSecret(ctx context.Context, key string) (string, error)
	SetSecret(ctx context.Context, key, value string) error
	DeleteSecret(ctx context.Context, key string) error
}

// KVBackend stores plain values. Put writes every entry or none.
// Delete on missing keys is not an error.
type KVBackend interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// MemorySecrets is an in-process SecretBackend.
type MemorySecrets struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemorySecrets creates an empty MemorySecrets.
func NewMemorySecrets() *MemorySecrets {
	return &MemorySecrets{values: make(map[string]string)}
}

func (m *MemorySecrets) GetSecret(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemorySecrets) SetSecret(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemorySecrets) DeleteSecret(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// MemoryKV is an in-process KVBackend.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryKV) Put(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
