// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	documentDomain "github.com/allisson/phiguard/internal/document/domain"
	customValidation "github.com/allisson/phiguard/internal/validation"
)

// EncryptionContextRequest carries the classifier inputs for a protect call.
type EncryptionContextRequest struct {
	RequireEncryption bool   `json:"require_encryption"`
	Path              string `json:"path"`
	PatientID         string `json:"patient_id"`
	Text              string `json:"text"`
}

// Validate checks the encryption context bounds.
func (r EncryptionContextRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Length(0, 2048)),
		validation.Field(&r.PatientID, validation.Length(0, 255), customValidation.NoWhitespace),
	)
}

// ToDomain converts the request into the classifier input.
func (r EncryptionContextRequest) ToDomain() documentDomain.EncryptionContext {
	return documentDomain.EncryptionContext{
		RequireEncryption: r.RequireEncryption,
		Path:              r.Path,
		PatientID:         r.PatientID,
		Text:              r.Text,
	}
}

// ProtectDocumentRequest contains an outgoing payload and its classification context.
type ProtectDocumentRequest struct {
	Document any                      `json:"document"`
	Context  EncryptionContextRequest `json:"context"`
}

// Validate checks if the protect request is valid.
func (r *ProtectDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Document, validation.NotNil, customValidation.JSONDocument),
		validation.Field(&r.Context),
	)
}

// DocumentRequest contains a stored payload to reveal or rewrap.
type DocumentRequest struct {
	Document any `json:"document"`
}

// Validate checks if the document request is valid.
func (r *DocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Document, validation.NotNil, customValidation.JSONDocument),
	)
}
