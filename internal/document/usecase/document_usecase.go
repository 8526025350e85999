package usecase

import (
	"context"
	"fmt"

	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
	documentDomain "github.com/allisson/phiguard/internal/document/domain"
	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
)

type documentUseCase struct {
	walker     FieldWalker
	classifier Classifier
	keys       CurrentKeyProvider
}

// NewDocumentUseCase creates a DocumentUseCase.
func NewDocumentUseCase(walker FieldWalker, classifier Classifier, keys CurrentKeyProvider) DocumentUseCase {
	return &documentUseCase{
		walker:     walker,
		classifier: classifier,
		keys:       keys,
	}
}

func validateDocument(doc any) error {
	switch doc.(type) {
	case map[string]any, []any:
		return nil
	default:
		return documentDomain.ErrInvalidDocument
	}
}

// Protect classifies the payload and encrypts it under the current key.
// When the context carries no free text, the document's own sensitive fields are
// scanned for keywords.
func (d *documentUseCase) Protect(
	ctx context.Context,
	doc any,
	encryptionCtx documentDomain.EncryptionContext,
) (*documentDomain.ProtectedDocument, error) {
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	if encryptionCtx.Text == "" {
		encryptionCtx.Text = d.walker.SensitiveText(doc)
	}
	if !d.classifier.ShouldEncrypt(encryptionCtx) {
		return &documentDomain.ProtectedDocument{Document: doc}, nil
	}

	keyID, ok := d.keys.GetCurrentKeyID()
	if !ok {
		return nil, fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, keysDomain.ErrNoActiveKey)
	}

	protected, report, err := d.walker.EncryptSensitiveFields(doc, keyID)
	if err != nil {
		return nil, err
	}

	return &documentDomain.ProtectedDocument{
		Document:  protected,
		Encrypted: true,
		KeyID:     keyID,
		Report:    report,
	}, nil
}

// Reveal decrypts a stored document.
func (d *documentUseCase) Reveal(ctx context.Context, doc any) (*documentDomain.TransformedDocument, error) {
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	revealed, report := d.walker.DecryptSensitiveFields(doc)
	return &documentDomain.TransformedDocument{Document: revealed, Report: report}, nil
}

// Rewrap re-encrypts a stored document under the current key.
func (d *documentUseCase) Rewrap(ctx context.Context, doc any) (*documentDomain.TransformedDocument, error) {
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	rewrapped, report, err := d.walker.RewrapSensitiveFields(doc)
	if err != nil {
		return nil, err
	}
	return &documentDomain.TransformedDocument{Document: rewrapped, Report: report}, nil
}
