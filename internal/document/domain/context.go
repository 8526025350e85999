package domain

// EncryptionContext is the input to the sensitivity classifier.
type EncryptionContext struct {
	// RequireEncryption is the explicit, authoritative trigger.
	RequireEncryption bool `json:"require_encryption"`

	// Path is the target resource path, e.g. "/patients/123/messages".
	Path string `json:"path"`

	// PatientID is set when the payload concerns an identified patient.
	PatientID string `json:"patient_id"`

	// Text is free text scanned for clinical keywords.
	Text string `json:"text"`
}
