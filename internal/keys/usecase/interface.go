// Package usecase implements the data-key lifecycle: generation, rotation,
// retirement and time-gated purge.
package usecase

import (
	"context"

	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
)

// KeyStore persists data keys. Implementations receive raw key material and are
// responsible for protecting it at rest.
type KeyStore interface {
	// Create inserts a new key.
	Create(ctx context.Context, key *keysDomain.Key) error

	// Rotate atomically stores retired (the previously active key, now marked
	// retired; nil when there was none) and inserts next. Either both writes
	// happen or neither does.
	Rotate(ctx context.Context, retired *keysDomain.Key, next *keysDomain.Key) error

	// List returns every stored key.
	List(ctx context.Context) ([]*keysDomain.Key, error)

	// Delete permanently removes a key.
	Delete(ctx context.Context, keyID string) error
}

// KeyReferenceChecker reports whether persisted ciphertext still references a key.
// Purge only removes keys the checker reports as unreferenced.
type KeyReferenceChecker interface {
	IsReferenced(ctx context.Context, keyID string) (bool, error)
}

// KeyManager owns the key ring. Mutations are serialized; reads use an immutable
// snapshot and never block on writers.
type KeyManager interface {
	// Load rebuilds the key ring from the store. With autoGenerate it creates an
	// active key when none exists; otherwise a missing active key is a
	// configuration error.
	Load(ctx context.Context, autoGenerate bool) error

	// GenerateKey creates a new key and makes it active if no key is active.
	GenerateKey(ctx context.Context) (string, error)

	// GetCurrentKeyID returns the active key id, or false before the first key exists.
	GetCurrentKeyID() (string, bool)

	// RotateKey generates a new active key and retires the previous one.
	RotateKey(ctx context.Context, scopeID string) (string, error)

	// RotateIfNeeded rotates when the active key is older than the rotation interval.
	// It returns the current key id and whether a rotation happened.
	RotateIfNeeded(ctx context.Context, scopeID string) (string, bool, error)

	// NeedsRotation reports whether the key is older than the rotation interval.
	NeedsRotation(keyID string) bool

	// ValidateKey reports whether the key exists.
	ValidateKey(keyID string) bool

	// CleanupCandidates lists retired keys older than retentionDays, without material.
	CleanupCandidates(retentionDays int) ([]*keysDomain.Key, error)

	// CleanupOldKeys purges retired keys older than retentionDays that are verified
	// unreferenced and returns the purged ids.
	CleanupOldKeys(ctx context.Context, retentionDays int) ([]string, error)

	// ResolveKey returns a key by id.
	ResolveKey(keyID string) (*keysDomain.Key, error)

	// ListKeys returns every key in the ring, newest first, without material.
	ListKeys() []*keysDomain.Key

	// Stats returns operational counters and cipher parameters.
	Stats() keysDomain.Stats

	// Ready reports whether an active key is loaded.
	Ready() bool

	// Close zeroes in-memory key material.
	Close()
}
