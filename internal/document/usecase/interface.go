// Package usecase implements the document boundary operations: protecting outgoing
// payloads before they are persisted or transmitted, and revealing payloads read
// back from storage.
package usecase

import (
	"context"

	documentDomain "github.com/allisson/phiguard/internal/document/domain"
)

// FieldWalker transforms the sensitive fields of a document tree.
type FieldWalker interface {
	EncryptSensitiveFields(doc any, keyID string) (any, documentDomain.WalkReport, error)
	DecryptSensitiveFields(doc any) (any, documentDomain.WalkReport)
	RewrapSensitiveFields(doc any) (any, documentDomain.WalkReport, error)
	SensitiveText(doc any) string
}

// Classifier decides whether a payload needs encryption.
type Classifier interface {
	ShouldEncrypt(ctx documentDomain.EncryptionContext) bool
}

// CurrentKeyProvider exposes the active key id.
type CurrentKeyProvider interface {
	GetCurrentKeyID() (string, bool)
}

// DocumentUseCase defines the document boundary operations.
type DocumentUseCase interface {
	// Protect encrypts the sensitive fields of doc when the classifier flags the
	// context. Encryption is fail-closed: on error no document is returned.
	Protect(
		ctx context.Context,
		doc any,
		encryptionCtx documentDomain.EncryptionContext,
	) (*documentDomain.ProtectedDocument, error)

	// Reveal decrypts every flagged object. Per-field failures are reported, not returned.
	Reveal(ctx context.Context, doc any) (*documentDomain.TransformedDocument, error)

	// Rewrap moves every envelope to the current key.
	Rewrap(ctx context.Context, doc any) (*documentDomain.TransformedDocument, error)
}
