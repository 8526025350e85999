package domain

import (
	"github.com/allisson/phiguard/internal/errors"
)

// Cryptographic error taxonomy.
//
// Every specific error below wraps one of ErrConfiguration, ErrEncryption,
// ErrDecryption or ErrRotation so that callers can branch with errors.Is
// without knowing which low-level check failed. Messages exposed to clients
// must never include the wrapped detail.
var (
	// ErrConfiguration indicates the service has no usable randomness source or
	// no key material. It is fatal and not retryable; the service must not report
	// itself ready.
	ErrConfiguration = errors.Wrap(errors.ErrUnavailable, "crypto configuration error")

	// ErrEncryption indicates an encrypt-time failure. Callers must abort the write.
	ErrEncryption = errors.Wrap(errors.ErrUnavailable, "encryption failed")

	// ErrDecryption indicates tampering, corruption or an unresolvable key.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrDecryption = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrRotation indicates key generation failed during rotation. The previous
	// key stays active.
	ErrRotation = errors.Wrap(errors.ErrUnavailable, "key rotation failed")

	// ErrInvalidEnvelope indicates the envelope string could not be parsed.
	ErrInvalidEnvelope = errors.Wrap(ErrDecryption, "invalid envelope")

	// ErrMissingKeyID indicates neither the envelope nor the caller named a key.
	ErrMissingKeyID = errors.Wrap(ErrDecryption, "missing key id")

	// ErrUnsupportedAlgorithm indicates the requested algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates key material is not KeyLength bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")
)
