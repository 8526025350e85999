// Package mocks provides testify mocks for the document use case interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	documentDomain "github.com/allisson/phiguard/internal/document/domain"
)

// MockDocumentUseCase is a mock DocumentUseCase.
type MockDocumentUseCase struct {
	mock.Mock
}

// NewMockDocumentUseCase creates a MockDocumentUseCase that asserts its expectations on cleanup.
func NewMockDocumentUseCase(t *testing.T) *MockDocumentUseCase {
	m := &MockDocumentUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockDocumentUseCase) Protect(
	ctx context.Context,
	doc any,
	encryptionCtx documentDomain.EncryptionContext,
) (*documentDomain.ProtectedDocument, error) {
	args := m.Called(ctx, doc, encryptionCtx)
	result, _ := args.Get(0).(*documentDomain.ProtectedDocument)
	return result, args.Error(1)
}

func (m *MockDocumentUseCase) Reveal(ctx context.Context, doc any) (*documentDomain.TransformedDocument, error) {
	args := m.Called(ctx, doc)
	result, _ := args.Get(0).(*documentDomain.TransformedDocument)
	return result, args.Error(1)
}

func (m *MockDocumentUseCase) Rewrap(ctx context.Context, doc any) (*documentDomain.TransformedDocument, error) {
	args := m.Called(ctx, doc)
	result, _ := args.Get(0).(*documentDomain.TransformedDocument)
	return result, args.Error(1)
}

// MockClassifier is a mock Classifier.
type MockClassifier struct {
	mock.Mock
}

// NewMockClassifier creates a MockClassifier that asserts its expectations on cleanup.
func NewMockClassifier(t *testing.T) *MockClassifier {
	m := &MockClassifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockClassifier) ShouldEncrypt(ctx documentDomain.EncryptionContext) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}
