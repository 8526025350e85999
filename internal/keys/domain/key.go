// Package domain defines the data-key model shared by the key manager, the key
// stores and the cipher engine.
package domain

import (
	"time"

	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
)

// KeyStatus is the lifecycle state of a data key.
type KeyStatus string

const (
	// KeyStatusActive marks the single key used for new encryptions.
	KeyStatusActive KeyStatus = "active"

	// KeyStatusRetired marks a key kept only to decrypt existing envelopes.
	KeyStatusRetired KeyStatus = "retired"
)

// Key is a symmetric data key.
//
// Material is the raw KeyLength-byte secret. It lives only in memory; key stores
// persist it wrapped by a KMS keeper. Scope records the scope id passed to the
// rotation that created the key (empty for keys from GenerateKey).
type Key struct {
	ID        string
	Algorithm cryptoDomain.Algorithm
	Material  []byte
	Status    KeyStatus
	Scope     string
	CreatedAt time.Time
	RetiredAt *time.Time
}

// IsActive reports whether the key is the active key.
func (k *Key) IsActive() bool {
	return k.Status == KeyStatusActive
}

// Age returns how long ago the key was created relative to now.
func (k *Key) Age(now time.Time) time.Duration {
	return now.Sub(k.CreatedAt)
}

// Retire returns a copy of the key marked retired at the given time.
func (k *Key) Retire(at time.Time) *Key {
	retired := k.Clone()
	retired.Status = KeyStatusRetired
	retiredAt := at
	retired.RetiredAt = &retiredAt
	return retired
}

// Clone returns a deep copy so snapshots never share mutable state.
func (k *Key) Clone() *Key {
	clone := *k
	if k.Material != nil {
		clone.Material = append([]byte(nil), k.Material...)
	}
	if k.RetiredAt != nil {
		retiredAt := *k.RetiredAt
		clone.RetiredAt = &retiredAt
	}
	return &clone
}

// Zero clears the key material.
func (k *Key) Zero() {
	cryptoDomain.Zero(k.Material)
}
