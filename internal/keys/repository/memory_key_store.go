// Package repository implements KeyStore backends.
//
// The in-memory store is for development and tests only: keys are lost on
// restart, which makes every previously written envelope undecryptable.
// Production deployments use the PostgreSQL or MySQL store, which persist key
// material wrapped by a KMS keeper and apply rotations in a single transaction.
package repository

import (
	"context"
	"sync"

	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
)

// MemoryKeyStore keeps keys in process memory.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*keysDomain.Key
}

// NewMemoryKeyStore creates an empty MemoryKeyStore.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]*keysDomain.Key)}
}

// Create inserts a copy of key.
func (m *MemoryKeyStore) Create(ctx context.Context, key *keysDomain.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[key.ID]; ok {
		return keysDomain.ErrKeyAlreadyExists
	}
	m.keys[key.ID] = key.Clone()
	return nil
}

// Rotate replaces retired and inserts next under one lock. retired must still be
// the active key; with a nil retired the store must have no active key.
func (m *MemoryKeyStore) Rotate(ctx context.Context, retired *keysDomain.Key, next *keysDomain.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[next.ID]; ok {
		return keysDomain.ErrKeyAlreadyExists
	}
	if retired == nil {
		for _, key := range m.keys {
			if key.IsActive() {
				return keysDomain.ErrStaleKeyState
			}
		}
	} else {
		stored, ok := m.keys[retired.ID]
		if !ok {
			return keysDomain.ErrKeyNotFound
		}
		if !stored.IsActive() {
			return keysDomain.ErrStaleKeyState
		}
		m.keys[retired.ID] = retired.Clone()
	}
	m.keys[next.ID] = next.Clone()
	return nil
}

// List returns copies of all keys.
func (m *MemoryKeyStore) List(ctx context.Context) ([]*keysDomain.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]*keysDomain.Key, 0, len(m.keys))
	for _, key := range m.keys {
		keys = append(keys, key.Clone())
	}
	return keys, nil
}

// Delete removes a key and zeroes its stored material.
func (m *MemoryKeyStore) Delete(ctx context.Context, keyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.keys[keyID]
	if !ok {
		return keysDomain.ErrKeyNotFound
	}
	key.Zero()
	delete(m.keys, keyID)
	return nil
}
