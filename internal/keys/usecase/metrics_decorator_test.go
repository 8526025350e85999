package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
	"github.com/allisson/phiguard/internal/keys/usecase"
	"github.com/allisson/phiguard/internal/keys/usecase/mocks"
)

// mockBusinessMetrics is a local mock for metrics.BusinessMetrics.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordFields(ctx context.Context, operation string, processed, failed int) {
	m.Called(ctx, operation, processed, failed)
}

func expectRecorded(m *mockBusinessMetrics, ctx context.Context, operation, status string) {
	m.On("RecordOperation", ctx, "keys", operation, status).Return().Once()
	m.On("RecordDuration", ctx, "keys", operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

func TestKeyManagerWithMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("RotateKey_Success", func(t *testing.T) {
		next := mocks.NewMockKeyManager(t)
		m := &mockBusinessMetrics{}
		km := usecase.NewKeyManagerWithMetrics(next, m)

		next.On("RotateKey", ctx, "scope").Return("k2", nil).Once()
		expectRecorded(m, ctx, "key_rotate", "success")

		keyID, err := km.RotateKey(ctx, "scope")

		assert.NoError(t, err)
		assert.Equal(t, "k2", keyID)
		m.AssertExpectations(t)
	})

	t.Run("RotateKey_Error", func(t *testing.T) {
		next := mocks.NewMockKeyManager(t)
		m := &mockBusinessMetrics{}
		km := usecase.NewKeyManagerWithMetrics(next, m)

		next.On("RotateKey", ctx, "").Return("", errors.New("boom")).Once()
		expectRecorded(m, ctx, "key_rotate", "error")

		_, err := km.RotateKey(ctx, "")

		assert.Error(t, err)
		m.AssertExpectations(t)
	})

	t.Run("GenerateKey_And_Load", func(t *testing.T) {
		next := mocks.NewMockKeyManager(t)
		m := &mockBusinessMetrics{}
		km := usecase.NewKeyManagerWithMetrics(next, m)

		next.On("GenerateKey", ctx).Return("k1", nil).Once()
		next.On("Load", ctx, true).Return(nil).Once()
		expectRecorded(m, ctx, "key_generate", "success")
		expectRecorded(m, ctx, "key_load", "success")

		_, err := km.GenerateKey(ctx)
		assert.NoError(t, err)
		assert.NoError(t, km.Load(ctx, true))
		m.AssertExpectations(t)
	})

	t.Run("CleanupOldKeys", func(t *testing.T) {
		next := mocks.NewMockKeyManager(t)
		m := &mockBusinessMetrics{}
		km := usecase.NewKeyManagerWithMetrics(next, m)

		next.On("CleanupOldKeys", ctx, 365).Return(nil, keysDomain.ErrPurgeUnverified).Once()
		expectRecorded(m, ctx, "key_cleanup", "error")

		_, err := km.CleanupOldKeys(ctx, 365)

		assert.ErrorIs(t, err, keysDomain.ErrPurgeUnverified)
		m.AssertExpectations(t)
	})

	t.Run("RotateIfNeeded_NoRotation_NotRecorded", func(t *testing.T) {
		next := mocks.NewMockKeyManager(t)
		m := &mockBusinessMetrics{}
		km := usecase.NewKeyManagerWithMetrics(next, m)

		next.On("RotateIfNeeded", ctx, "").Return("k1", false, nil).Once()

		keyID, rotated, err := km.RotateIfNeeded(ctx, "")

		assert.NoError(t, err)
		assert.False(t, rotated)
		assert.Equal(t, "k1", keyID)
		m.AssertNotCalled(t, "RecordOperation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ReadsPassThrough", func(t *testing.T) {
		next := mocks.NewMockKeyManager(t)
		km := usecase.NewKeyManagerWithMetrics(next, &mockBusinessMetrics{})
		key := &keysDomain.Key{ID: "k1"}

		next.On("GetCurrentKeyID").Return("k1", true).Once()
		next.On("ResolveKey", "k1").Return(key, nil).Once()
		next.On("ValidateKey", "k1").Return(true).Once()
		next.On("NeedsRotation", "k1").Return(false).Once()
		next.On("Ready").Return(true).Once()
		next.On("Stats").Return(keysDomain.Stats{TotalKeyCount: 1}).Once()
		next.On("CleanupCandidates", 30).Return([]*keysDomain.Key{key}, nil).Once()
		next.On("Close").Return().Once()

		id, ok := km.GetCurrentKeyID()
		assert.True(t, ok)
		assert.Equal(t, "k1", id)
		resolved, err := km.ResolveKey("k1")
		assert.NoError(t, err)
		assert.Same(t, key, resolved)
		assert.True(t, km.ValidateKey("k1"))
		assert.False(t, km.NeedsRotation("k1"))
		assert.True(t, km.Ready())
		assert.Equal(t, 1, km.Stats().TotalKeyCount)
		candidates, err := km.CleanupCandidates(30)
		assert.NoError(t, err)
		assert.Len(t, candidates, 1)
		km.Close()
	})
}
