// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
	customValidation "github.com/allisson/phiguard/internal/validation"
)

// RotateKeyRequest contains the parameters for a manual key rotation.
type RotateKeyRequest struct {
	Scope string `json:"scope"`
}

// Validate checks if the rotate request is valid.
func (r *RotateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Scope, validation.Length(0, 255), customValidation.NoWhitespace),
	)
}

// KeyResponse represents key metadata in API responses. Key material is never exposed.
type KeyResponse struct {
	ID        string     `json:"id"`
	Algorithm string     `json:"algorithm"`
	Status    string     `json:"status"`
	Scope     string     `json:"scope,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	RetiredAt *time.Time `json:"retired_at,omitempty"`
}

// ListKeysResponse is a page of key metadata.
type ListKeysResponse struct {
	Data []KeyResponse `json:"data"`
}

// RotateKeyResponse is returned after a manual rotation.
type RotateKeyResponse struct {
	KeyID string `json:"key_id"`
}

// MapKeyToResponse converts a domain key to an API response.
func MapKeyToResponse(key *keysDomain.Key) KeyResponse {
	return KeyResponse{
		ID:        key.ID,
		Algorithm: string(key.Algorithm),
		Status:    string(key.Status),
		Scope:     key.Scope,
		CreatedAt: key.CreatedAt,
		RetiredAt: key.RetiredAt,
	}
}

// MapKeysToListResponse converts domain keys to a list response.
func MapKeysToListResponse(keys []*keysDomain.Key) ListKeysResponse {
	data := make([]KeyResponse, 0, len(keys))
	for _, key := range keys {
		data = append(data, MapKeyToResponse(key))
	}
	return ListKeysResponse{Data: data}
}
