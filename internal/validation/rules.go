// Package validation provides custom validation rules for the application.
package validation

import (
	"strings"

	"github.com/gobwas/glob"
	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
	apperrors "github.com/allisson/phiguard/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// SupportedAlgorithm validates that a string names a supported AEAD algorithm.
var SupportedAlgorithm = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := cryptoDomain.ParseAlgorithm(s)
		return err == nil
	},
	validation.NewError("validation_algorithm", "must be aes-gcm or chacha20-poly1305"),
)

// GlobPatterns validates a slice of '/'-separated glob patterns.
var GlobPatterns = validation.By(func(value interface{}) error {
	patterns, ok := value.([]string)
	if !ok {
		return validation.NewError("validation_glob_type", "must be a list of strings")
	}
	for _, pattern := range patterns {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return validation.NewError("validation_glob", "must contain valid path patterns")
		}
	}
	return nil
})

// JSONDocument validates that a decoded JSON value is an object or an array.
var JSONDocument = validation.By(func(value interface{}) error {
	switch value.(type) {
	case map[string]any, []any:
		return nil
	case nil:
		return nil // Let Required handle missing documents
	default:
		return validation.NewError("validation_json_document", "must be a JSON object or array")
	}
})
