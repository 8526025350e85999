package service

import (
	"context"
	"fmt"

	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
)

// KeeperWrapper wraps data-key material with a KMS keeper before it reaches a
// persistent key store.
type KeeperWrapper struct {
	keeper cryptoDomain.KMSKeeper
}

// NewKeeperWrapper creates a KeeperWrapper.
func NewKeeperWrapper(keeper cryptoDomain.KMSKeeper) *KeeperWrapper {
	return &KeeperWrapper{keeper: keeper}
}

// Wrap encrypts key material. Wrapping is an encrypt-time failure surface, so
// errors wrap ErrEncryption.
func (w *KeeperWrapper) Wrap(ctx context.Context, material []byte) ([]byte, error) {
	if len(material) != cryptoDomain.KeyLength {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	wrapped, err := w.keeper.Encrypt(ctx, material)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to wrap key material: %w", cryptoDomain.ErrEncryption, err)
	}
	return wrapped, nil
}

// Unwrap decrypts key material. Material that cannot be unwrapped leaves the
// service without usable keys, so errors wrap ErrConfiguration.
func (w *KeeperWrapper) Unwrap(ctx context.Context, wrapped []byte) ([]byte, error) {
	material, err := w.keeper.Decrypt(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unwrap key material: %w", cryptoDomain.ErrConfiguration, err)
	}
	if len(material) != cryptoDomain.KeyLength {
		cryptoDomain.Zero(material)
		return nil, fmt.Errorf("%w: %w", cryptoDomain.ErrConfiguration, cryptoDomain.ErrInvalidKeySize)
	}
	return material, nil
}

// Close releases the keeper.
func (w *KeeperWrapper) Close() error {
	return w.keeper.Close()
}
