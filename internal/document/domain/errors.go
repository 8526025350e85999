package domain

import (
	"github.com/allisson/phiguard/internal/errors"
)

var (
	// ErrInvalidDocument indicates the payload is not a JSON object or array.
	ErrInvalidDocument = errors.Wrap(errors.ErrInvalidInput, "document must be a JSON object or array")

	// ErrInvalidDescriptor indicates a malformed sensitive-field path.
	ErrInvalidDescriptor = errors.Wrap(errors.ErrInvalidInput, "invalid sensitive field descriptor")
)
