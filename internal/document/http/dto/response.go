package dto

import (
	documentDomain "github.com/allisson/phiguard/internal/document/domain"
)

// ProtectDocumentResponse is returned by the protect endpoint.
type ProtectDocumentResponse struct {
	Document  any    `json:"document"`
	Encrypted bool   `json:"encrypted"`
	KeyID     string `json:"key_id,omitempty"`
	Fields    int    `json:"fields"`
}

// RevealDocumentResponse is returned by the reveal endpoint. FailedPaths lists
// leaves left encrypted; their values are never echoed in any other form.
type RevealDocumentResponse struct {
	Document    any      `json:"document"`
	Decrypted   int      `json:"decrypted"`
	Failed      int      `json:"failed"`
	FailedPaths []string `json:"failed_paths,omitempty"`
}

// RewrapDocumentResponse is returned by the rewrap endpoint.
type RewrapDocumentResponse struct {
	Document    any      `json:"document"`
	Rewrapped   int      `json:"rewrapped"`
	Failed      int      `json:"failed"`
	FailedPaths []string `json:"failed_paths,omitempty"`
}

// MapProtectedToResponse converts a protected document to an API response.
func MapProtectedToResponse(result *documentDomain.ProtectedDocument) ProtectDocumentResponse {
	return ProtectDocumentResponse{
		Document:  result.Document,
		Encrypted: result.Encrypted,
		KeyID:     result.KeyID,
		Fields:    result.Report.Processed,
	}
}

// MapRevealedToResponse converts a revealed document to an API response.
func MapRevealedToResponse(result *documentDomain.TransformedDocument) RevealDocumentResponse {
	return RevealDocumentResponse{
		Document:    result.Document,
		Decrypted:   result.Report.Processed,
		Failed:      result.Report.Failed,
		FailedPaths: result.Report.FailedPaths,
	}
}

// MapRewrappedToResponse converts a rewrapped document to an API response.
func MapRewrappedToResponse(result *documentDomain.TransformedDocument) RewrapDocumentResponse {
	return RewrapDocumentResponse{
		Document:    result.Document,
		Rewrapped:   result.Report.Processed,
		Failed:      result.Report.Failed,
		FailedPaths: result.Report.FailedPaths,
	}
}
