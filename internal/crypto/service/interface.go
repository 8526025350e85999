// Package service implements the AEAD ciphers, the envelope cipher engine and the
// KMS wrapping of key material at rest.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	// The ciphertext has the authentication tag appended.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyResolver resolves data keys for the cipher engine. Implementations must be
// safe for concurrent use and must not block on writers.
type KeyResolver interface {
	// GetCurrentKeyID returns the active key id, or false before the first key exists.
	GetCurrentKeyID() (string, bool)

	// ResolveKey returns the key with the given id.
	ResolveKey(keyID string) (*keysDomain.Key, error)
}

// KeyWrapper protects data-key material at rest.
type KeyWrapper interface {
	// Wrap encrypts raw key material.
	Wrap(ctx context.Context, material []byte) ([]byte, error)

	// Unwrap decrypts material produced by Wrap.
	Unwrap(ctx context.Context, wrapped []byte) ([]byte, error)
}
