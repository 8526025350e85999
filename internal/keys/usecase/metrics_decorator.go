package usecase

import (
	"context"
	"time"

	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
	"github.com/allisson/phiguard/internal/metrics"
)

const metricsDomain = "keys"

// keyManagerWithMetrics decorates KeyManager with metrics instrumentation.
// Only the mutating operations are recorded; snapshot reads are on the hot path
// of every encrypt and decrypt.
type keyManagerWithMetrics struct {
	next    KeyManager
	metrics metrics.BusinessMetrics
}

// NewKeyManagerWithMetrics wraps a KeyManager with metrics recording.
func NewKeyManagerWithMetrics(keyManager KeyManager, m metrics.BusinessMetrics) KeyManager {
	return &keyManagerWithMetrics{
		next:    keyManager,
		metrics: m,
	}
}

func (k *keyManagerWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	k.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	k.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Load records metrics for key ring loading.
func (k *keyManagerWithMetrics) Load(ctx context.Context, autoGenerate bool) error {
	start := time.Now()
	err := k.next.Load(ctx, autoGenerate)
	k.record(ctx, "key_load", start, err)
	return err
}

// GenerateKey records metrics for key generation.
func (k *keyManagerWithMetrics) GenerateKey(ctx context.Context) (string, error) {
	start := time.Now()
	keyID, err := k.next.GenerateKey(ctx)
	k.record(ctx, "key_generate", start, err)
	return keyID, err
}

// RotateKey records metrics for key rotation.
func (k *keyManagerWithMetrics) RotateKey(ctx context.Context, scopeID string) (string, error) {
	start := time.Now()
	keyID, err := k.next.RotateKey(ctx, scopeID)
	k.record(ctx, "key_rotate", start, err)
	return keyID, err
}

// RotateIfNeeded records metrics only when a rotation was attempted.
func (k *keyManagerWithMetrics) RotateIfNeeded(ctx context.Context, scopeID string) (string, bool, error) {
	start := time.Now()
	keyID, rotated, err := k.next.RotateIfNeeded(ctx, scopeID)
	if rotated || err != nil {
		k.record(ctx, "key_rotate", start, err)
	}
	return keyID, rotated, err
}

// CleanupOldKeys records metrics for retired key purges.
func (k *keyManagerWithMetrics) CleanupOldKeys(ctx context.Context, retentionDays int) ([]string, error) {
	start := time.Now()
	purged, err := k.next.CleanupOldKeys(ctx, retentionDays)
	k.record(ctx, "key_cleanup", start, err)
	return purged, err
}

func (k *keyManagerWithMetrics) GetCurrentKeyID() (string, bool) {
	return k.next.GetCurrentKeyID()
}

func (k *keyManagerWithMetrics) NeedsRotation(keyID string) bool {
	return k.next.NeedsRotation(keyID)
}

func (k *keyManagerWithMetrics) ValidateKey(keyID string) bool {
	return k.next.ValidateKey(keyID)
}

func (k *keyManagerWithMetrics) CleanupCandidates(retentionDays int) ([]*keysDomain.Key, error) {
	return k.next.CleanupCandidates(retentionDays)
}

func (k *keyManagerWithMetrics) ResolveKey(keyID string) (*keysDomain.Key, error) {
	return k.next.ResolveKey(keyID)
}

func (k *keyManagerWithMetrics) ListKeys() []*keysDomain.Key {
	return k.next.ListKeys()
}

func (k *keyManagerWithMetrics) Stats() keysDomain.Stats {
	return k.next.Stats()
}

func (k *keyManagerWithMetrics) Ready() bool {
	return k.next.Ready()
}

func (k *keyManagerWithMetrics) Close() {
	k.next.Close()
}
