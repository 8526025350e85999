// Package mocks provides testify mocks for the key use case interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
)

// MockKeyStore is a mock KeyStore.
type MockKeyStore struct {
	mock.Mock
}

// NewMockKeyStore creates a MockKeyStore that asserts its expectations on cleanup.
func NewMockKeyStore(t *testing.T) *MockKeyStore {
	m := &MockKeyStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockKeyStore) Create(ctx context.Context, key *keysDomain.Key) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockKeyStore) Rotate(ctx context.Context, retired *keysDomain.Key, next *keysDomain.Key) error {
	args := m.Called(ctx, retired, next)
	return args.Error(0)
}

func (m *MockKeyStore) List(ctx context.Context) ([]*keysDomain.Key, error) {
	args := m.Called(ctx)
	keys, _ := args.Get(0).([]*keysDomain.Key)
	return keys, args.Error(1)
}

func (m *MockKeyStore) Delete(ctx context.Context, keyID string) error {
	args := m.Called(ctx, keyID)
	return args.Error(0)
}

// MockKeyReferenceChecker is a mock KeyReferenceChecker.
type MockKeyReferenceChecker struct {
	mock.Mock
}

// NewMockKeyReferenceChecker creates a MockKeyReferenceChecker.
func NewMockKeyReferenceChecker(t *testing.T) *MockKeyReferenceChecker {
	m := &MockKeyReferenceChecker{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockKeyReferenceChecker) IsReferenced(ctx context.Context, keyID string) (bool, error) {
	args := m.Called(ctx, keyID)
	return args.Bool(0), args.Error(1)
}

// MockKeyManager is a mock KeyManager.
type MockKeyManager struct {
	mock.Mock
}

// NewMockKeyManager creates a MockKeyManager.
func NewMockKeyManager(t *testing.T) *MockKeyManager {
	m := &MockKeyManager{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockKeyManager) Load(ctx context.Context, autoGenerate bool) error {
	args := m.Called(ctx, autoGenerate)
	return args.Error(0)
}

func (m *MockKeyManager) GenerateKey(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockKeyManager) GetCurrentKeyID() (string, bool) {
	args := m.Called()
	return args.String(0), args.Bool(1)
}

func (m *MockKeyManager) RotateKey(ctx context.Context, scopeID string) (string, error) {
	args := m.Called(ctx, scopeID)
	return args.String(0), args.Error(1)
}

func (m *MockKeyManager) RotateIfNeeded(ctx context.Context, scopeID string) (string, bool, error) {
	args := m.Called(ctx, scopeID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockKeyManager) NeedsRotation(keyID string) bool {
	args := m.Called(keyID)
	return args.Bool(0)
}

func (m *MockKeyManager) ValidateKey(keyID string) bool {
	args := m.Called(keyID)
	return args.Bool(0)
}

func (m *MockKeyManager) CleanupCandidates(retentionDays int) ([]*keysDomain.Key, error) {
	args := m.Called(retentionDays)
	keys, _ := args.Get(0).([]*keysDomain.Key)
	return keys, args.Error(1)
}

func (m *MockKeyManager) CleanupOldKeys(ctx context.Context, retentionDays int) ([]string, error) {
	args := m.Called(ctx, retentionDays)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockKeyManager) ResolveKey(keyID string) (*keysDomain.Key, error) {
	args := m.Called(keyID)
	key, _ := args.Get(0).(*keysDomain.Key)
	return key, args.Error(1)
}

func (m *MockKeyManager) ListKeys() []*keysDomain.Key {
	args := m.Called()
	keys, _ := args.Get(0).([]*keysDomain.Key)
	return keys
}

func (m *MockKeyManager) Stats() keysDomain.Stats {
	args := m.Called()
	return args.Get(0).(keysDomain.Stats)
}

func (m *MockKeyManager) Ready() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockKeyManager) Close() {
	m.Called()
}
