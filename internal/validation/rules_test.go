package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoWhitespace(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{name: "no whitespace", input: "scope", shouldErr: false},
		{name: "leading whitespace", input: " scope", shouldErr: true},
		{name: "trailing whitespace", input: "scope ", shouldErr: true},
		{name: "internal spaces allowed", input: "billing scope", shouldErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NoWhitespace.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, NotBlank.Validate("value"))
	assert.Error(t, NotBlank.Validate("   "))
	assert.Error(t, NotBlank.Validate(" \t\n "))
}

func TestSupportedAlgorithm(t *testing.T) {
	assert.NoError(t, SupportedAlgorithm.Validate("aes-gcm"))
	assert.NoError(t, SupportedAlgorithm.Validate("chacha20-poly1305"))
	assert.Error(t, SupportedAlgorithm.Validate("aes-cbc"))
}

func TestGlobPatterns(t *testing.T) {
	assert.NoError(t, GlobPatterns.Validate([]string{"/patients/**", "/wards/*/beds"}))
	assert.NoError(t, GlobPatterns.Validate([]string{}))
	assert.Error(t, GlobPatterns.Validate("/patients/**"))
}

func TestJSONDocument(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		shouldErr bool
	}{
		{name: "object", input: map[string]any{"text": "hi"}, shouldErr: false},
		{name: "array", input: []any{map[string]any{}}, shouldErr: false},
		{name: "nil", input: nil, shouldErr: false},
		{name: "string", input: "text", shouldErr: true},
		{name: "number", input: 42.0, shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := JSONDocument.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWrapValidationError(t *testing.T) {
	assert.NoError(t, WrapValidationError(nil))

	err := WrapValidationError(assert.AnError)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input")
}
