// Package domain defines the sensitive-field model used by the document walker.
package domain

import "strings"

// FieldKind classifies the PHI carried by a sensitive field.
type FieldKind string

const (
	// FieldKindMessageText is free-text message content.
	FieldKindMessageText FieldKind = "message_text"

	// FieldKindClinicalNotes is clinician-authored notes.
	FieldKindClinicalNotes FieldKind = "clinical_notes"
)

// Sidecar flags written next to encrypted leaves.
const (
	// EncryptedFlag marks an object whose sensitive leaves hold envelopes.
	EncryptedFlag = "_encrypted"

	// EncryptionKeyIDFlag records the key used for the object's leaves.
	EncryptionKeyIDFlag = "_encryptionKeyId"
)

// FieldDescriptor names one sensitive leaf by dot path, e.g. "content.text".
// When a segment resolves to an array, the rest of the path applies to each element.
type FieldDescriptor struct {
	Path string    `json:"path"`
	Kind FieldKind `json:"kind"`
}

// Parent returns the path of the object holding the leaf ("" for top-level leaves).
func (f FieldDescriptor) Parent() string {
	idx := strings.LastIndex(f.Path, ".")
	if idx < 0 {
		return ""
	}
	return f.Path[:idx]
}

// Leaf returns the name of the leaf field.
func (f FieldDescriptor) Leaf() string {
	idx := strings.LastIndex(f.Path, ".")
	return f.Path[idx+1:]
}

// DefaultSensitiveFields are the message text and clinical note locations.
func DefaultSensitiveFields() []FieldDescriptor {
	return []FieldDescriptor{
		{Path: "content.text", Kind: FieldKindMessageText},
		{Path: "content.clinicalNotes", Kind: FieldKindClinicalNotes},
		{Path: "text", Kind: FieldKindMessageText},
	}
}
