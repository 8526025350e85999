package domain

import (
	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
	"github.com/allisson/phiguard/internal/errors"
)

var (
	// ErrKeyNotFound indicates no key with the given id exists.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "key not found")

	// ErrKeyAlreadyExists indicates a key id collision in the store.
	ErrKeyAlreadyExists = errors.Wrap(errors.ErrConflict, "key already exists")

	// ErrStaleKeyState indicates the store no longer matches the caller's view of
	// the active key, typically after another process rotated it.
	ErrStaleKeyState = errors.Wrap(errors.ErrConflict, "key state changed in store")

	// ErrNoActiveKey indicates the key ring has no active key. The service is not ready.
	ErrNoActiveKey = errors.Wrap(cryptoDomain.ErrConfiguration, "no active key")

	// ErrInvalidRetention indicates a negative retention period.
	ErrInvalidRetention = errors.Wrap(errors.ErrInvalidInput, "retention days must not be negative")

	// ErrPurgeUnverified indicates purge was refused because nothing verified that
	// the candidate keys are unreferenced by persisted ciphertext.
	ErrPurgeUnverified = errors.Wrap(
		errors.ErrForbidden,
		"refusing to purge retired keys without a reference check",
	)
)
