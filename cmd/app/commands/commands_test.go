package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
	keysMocks "github.com/allisson/phiguard/internal/keys/usecase/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadKeyRing(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store is accepted", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(keysDomain.ErrNoActiveKey).Once()

		assert.NoError(t, loadKeyRing(ctx, keyManager))
	})

	t.Run("store failure", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(errors.New("connection refused")).Once()

		err := loadKeyRing(ctx, keyManager)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load keys")
	})
}

func TestRunGenerateKey(t *testing.T) {
	ctx := context.Background()

	t.Run("first key becomes active", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(keysDomain.ErrNoActiveKey).Once()
		keyManager.On("GenerateKey", ctx).Return("k1", nil).Once()
		keyManager.On("GetCurrentKeyID").Return("k1", true).Once()

		var out bytes.Buffer
		require.NoError(t, RunGenerateKey(ctx, keyManager, discardLogger(), &out))
		assert.Contains(t, out.String(), "Generated active key k1")
	})

	t.Run("additional key is retired", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(nil).Once()
		keyManager.On("GenerateKey", ctx).Return("k2", nil).Once()
		keyManager.On("GetCurrentKeyID").Return("k1", true).Once()

		var out bytes.Buffer
		require.NoError(t, RunGenerateKey(ctx, keyManager, discardLogger(), &out))
		assert.Contains(t, out.String(), "Generated key k2 (retired, active key is k1")
	})

	t.Run("generation failure", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(nil).Once()
		keyManager.On("GenerateKey", ctx).Return("", cryptoDomain.ErrEncryption).Once()

		err := RunGenerateKey(ctx, keyManager, discardLogger(), &bytes.Buffer{})
		assert.ErrorIs(t, err, cryptoDomain.ErrEncryption)
	})
}

func TestRunRotateKey(t *testing.T) {
	ctx := context.Background()

	t.Run("rotate", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(nil).Once()
		keyManager.On("RotateKey", ctx, "tenant-a").Return("k2", nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunRotateKey(ctx, keyManager, discardLogger(), &out, "tenant-a", false))
		assert.Contains(t, out.String(), "Rotated to key k2")
		assert.Contains(t, out.String(), "Restart them to switch right away")
	})

	t.Run("rotation failure keeps previous key", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(nil).Once()
		keyManager.On("RotateKey", ctx, "").Return("", cryptoDomain.ErrRotation).Once()

		err := RunRotateKey(ctx, keyManager, discardLogger(), &bytes.Buffer{}, "", false)
		assert.ErrorIs(t, err, cryptoDomain.ErrRotation)
	})

	t.Run("if needed and due", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(nil).Once()
		keyManager.On("RotateIfNeeded", ctx, "").Return("k2", true, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunRotateKey(ctx, keyManager, discardLogger(), &out, "", true))
		assert.Contains(t, out.String(), "Rotated to key k2")
	})

	t.Run("if needed and not due", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(nil).Once()
		keyManager.On("RotateIfNeeded", ctx, "").Return("k1", false, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunRotateKey(ctx, keyManager, discardLogger(), &out, "", true))
		assert.Contains(t, out.String(), "nothing to do")
	})
}

func TestRunCleanupKeys(t *testing.T) {
	ctx := context.Background()
	retiredAt := time.Now().AddDate(0, 0, -400)

	t.Run("dry run lists candidates", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(nil).Once()
		keyManager.On("CleanupCandidates", 365).Return([]*keysDomain.Key{
			{ID: "k0", Status: keysDomain.KeyStatusRetired, RetiredAt: &retiredAt},
		}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunCleanupKeys(ctx, keyManager, discardLogger(), &out, 365, true, "text"))
		assert.Contains(t, out.String(), "Dry-run mode: Would purge 1 key(s)")
		assert.Contains(t, out.String(), "k0")
	})

	t.Run("purge with json output", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(nil).Once()
		keyManager.On("CleanupOldKeys", ctx, 30).Return([]string{"k0"}, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunCleanupKeys(ctx, keyManager, discardLogger(), &out, 30, false, "json"))

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, float64(1), result["count"])
		assert.Equal(t, []interface{}{"k0"}, result["key_ids"])
		assert.Equal(t, false, result["dry_run"])
	})

	t.Run("nothing to purge", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(nil).Once()
		keyManager.On("CleanupOldKeys", ctx, 30).Return(nil, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunCleanupKeys(ctx, keyManager, discardLogger(), &out, 30, false, "json"))
		assert.Contains(t, out.String(), `"key_ids": []`)
	})

	t.Run("unverified purge refused", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(nil).Once()
		keyManager.On("CleanupOldKeys", ctx, 30).Return(nil, keysDomain.ErrPurgeUnverified).Once()

		err := RunCleanupKeys(ctx, keyManager, discardLogger(), &bytes.Buffer{}, 30, false, "text")
		assert.ErrorIs(t, err, keysDomain.ErrPurgeUnverified)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)

		err := RunCleanupKeys(ctx, keyManager, discardLogger(), &bytes.Buffer{}, -1, false, "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retention days must be a positive number")

		err = RunCleanupKeys(ctx, keyManager, discardLogger(), &bytes.Buffer{}, 30, false, "yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid format")
	})
}

func TestRunKeyStats(t *testing.T) {
	ctx := context.Background()
	stats := keysDomain.Stats{
		Algorithm:            cryptoDomain.AESGCM,
		KeyLength:            32,
		IVLength:             12,
		TagLength:            16,
		ActiveKeyCount:       1,
		TotalKeyCount:        3,
		CurrentKeyID:         "k3",
		RotationIntervalDays: 90,
	}

	t.Run("text", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(nil).Once()
		keyManager.On("Stats").Return(stats).Once()

		var out bytes.Buffer
		require.NoError(t, RunKeyStats(ctx, keyManager, &out, "text"))
		assert.Contains(t, out.String(), "aes-gcm")
		assert.Contains(t, out.String(), "Current key:            k3")
	})

	t.Run("json", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(nil).Once()
		keyManager.On("Stats").Return(stats).Once()

		var out bytes.Buffer
		require.NoError(t, RunKeyStats(ctx, keyManager, &out, "json"))

		var decoded keysDomain.Stats
		require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
		assert.Equal(t, stats, decoded)
	})

	t.Run("no key yet", func(t *testing.T) {
		keyManager := keysMocks.NewMockKeyManager(t)
		keyManager.On("Load", ctx, false).Return(keysDomain.ErrNoActiveKey).Once()
		keyManager.On("Stats").Return(keysDomain.Stats{Algorithm: cryptoDomain.AESGCM}).Once()

		var out bytes.Buffer
		require.NoError(t, RunKeyStats(ctx, keyManager, &out, "text"))
		assert.Contains(t, out.String(), "(none)")
	})
}

func TestRunKeyRotation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	called := make(chan struct{}, 1)
	keyManager := keysMocks.NewMockKeyManager(t)
	keyManager.On("RotateIfNeeded", mock.Anything, "").
		Return("k2", true, nil).
		Run(func(mock.Arguments) {
			select {
			case called <- struct{}{}:
			default:
			}
		})

	done := make(chan struct{})
	go func() {
		runKeyRotation(ctx, keyManager, 5*time.Millisecond, discardLogger())
		close(done)
	}()

	select {
	case <-called:
	case <-time.After(5 * time.Second):
		t.Fatal("rotation check did not run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("rotation loop did not stop")
	}
}

type mockKMSKeeper struct {
	mock.Mock
}

func (m *mockKMSKeeper) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	args := m.Called(ctx, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockKMSKeeper) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	args := m.Called(ctx, ciphertext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockKMSKeeper) Close() error {
	args := m.Called()
	return args.Error(0)
}

type mockKMSService struct {
	mock.Mock
}

func (m *mockKMSService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	args := m.Called(ctx, keyURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(cryptoDomain.KMSKeeper), args.Error(1)
}

func TestRunCreateMasterKey(t *testing.T) {
	ctx := context.Background()

	t.Run("local key", func(t *testing.T) {
		kmsService := &mockKMSService{}

		var out bytes.Buffer
		require.NoError(t, RunCreateMasterKey(ctx, kmsService, discardLogger(), &out, ""))

		line := ""
		for _, l := range strings.Split(out.String(), "\n") {
			if strings.HasPrefix(l, "KMS_KEY_URI=") {
				line = l
			}
		}
		require.NotEmpty(t, line)

		encoded := strings.TrimSuffix(strings.TrimPrefix(line, `KMS_KEY_URI="base64key://`), `"`)
		key, err := base64.URLEncoding.DecodeString(encoded)
		require.NoError(t, err)
		assert.Len(t, key, cryptoDomain.KeyLength)
		kmsService.AssertNotCalled(t, "OpenKeeper", mock.Anything, mock.Anything)
	})

	t.Run("wrapped by kms", func(t *testing.T) {
		uri := "awskms:///alias/phiguard"
		keeper := &mockKMSKeeper{}
		keeper.On("Encrypt", ctx, mock.MatchedBy(func(b []byte) bool { return len(b) == cryptoDomain.KeyLength })).
			Return([]byte("wrapped"), nil).Once()
		keeper.On("Close").Return(nil).Once()

		kmsService := &mockKMSService{}
		kmsService.On("OpenKeeper", ctx, uri).Return(keeper, nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunCreateMasterKey(ctx, kmsService, discardLogger(), &out, uri))
		assert.Contains(t, out.String(), `KMS_KEY_URI="awskms:///alias/phiguard"`)
		assert.Contains(t, out.String(), `WRAPPED_MASTER_KEY="`+base64.StdEncoding.EncodeToString([]byte("wrapped"))+`"`)

		keeper.AssertExpectations(t)
		kmsService.AssertExpectations(t)
	})

	t.Run("keeper open failure", func(t *testing.T) {
		kmsService := &mockKMSService{}
		kmsService.On("OpenKeeper", ctx, "gcpkms://bad").Return(nil, errors.New("permission denied")).Once()

		err := RunCreateMasterKey(ctx, kmsService, discardLogger(), &bytes.Buffer{}, "gcpkms://bad")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open KMS keeper")
	})

	t.Run("wrap failure", func(t *testing.T) {
		keeper := &mockKMSKeeper{}
		keeper.On("Encrypt", ctx, mock.Anything).Return(nil, errors.New("quota exceeded")).Once()
		keeper.On("Close").Return(nil).Once()

		kmsService := &mockKMSService{}
		kmsService.On("OpenKeeper", ctx, "awskms:///alias/x").Return(keeper, nil).Once()

		err := RunCreateMasterKey(ctx, kmsService, discardLogger(), &bytes.Buffer{}, "awskms:///alias/x")
		assert.ErrorIs(t, err, cryptoDomain.ErrEncryption)
		keeper.AssertExpectations(t)
	})
}

func TestRunMigrations(t *testing.T) {
	t.Run("unsupported driver", func(t *testing.T) {
		err := RunMigrations(discardLogger(), "sqlite", "file::memory:")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})

	t.Run("invalid connection string", func(t *testing.T) {
		err := RunMigrations(discardLogger(), "postgres", "invalid-connection-string")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create migrate instance")
	})
}
