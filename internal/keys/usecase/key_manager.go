package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
	keysDomain "github.com/allisson/phiguard/internal/keys/domain"
)

const (
	day = 24 * time.Hour

	defaultMissReloadInterval = 10 * time.Second
	missReloadTimeout         = 5 * time.Second
)

// KeyManagerConfig configures a KeyManager.
type KeyManagerConfig struct {
	// Algorithm for newly generated keys. Defaults to AES-256-GCM.
	Algorithm cryptoDomain.Algorithm

	// RotationIntervalDays is the maximum active key age. Zero disables rotation checks.
	RotationIntervalDays int

	// AllowUnverifiedPurge lets CleanupOldKeys purge without a ReferenceChecker.
	AllowUnverifiedPurge bool

	// ReferenceChecker verifies purge candidates are unreferenced.
	ReferenceChecker KeyReferenceChecker

	// Clock defaults to time.Now.
	Clock func() time.Time

	// Random is the key material source. Defaults to crypto/rand.
	Random io.Reader

	// MissReloadInterval is the minimum time between store reloads triggered by
	// ResolveKey misses. Defaults to 10 seconds.
	MissReloadInterval time.Duration
}

type keyManager struct {
	mu     sync.Mutex
	ring   atomic.Pointer[keysDomain.KeyRing]
	store  KeyStore
	cfg    KeyManagerConfig
	logger *slog.Logger

	// guarded by mu
	lastMissReload time.Time
	closed         bool
}

// NewKeyManager creates a KeyManager with an empty key ring. Call Load before use.
func NewKeyManager(store KeyStore, cfg KeyManagerConfig, logger *slog.Logger) KeyManager {
	if cfg.Algorithm == "" {
		cfg.Algorithm = cryptoDomain.AESGCM
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Random == nil {
		cfg.Random = rand.Reader
	}
	if cfg.MissReloadInterval <= 0 {
		cfg.MissReloadInterval = defaultMissReloadInterval
	}

	km := &keyManager{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
	km.ring.Store(keysDomain.NewKeyRing(nil))
	return km
}

func (k *keyManager) now() time.Time {
	return k.cfg.Clock().UTC()
}

func (k *keyManager) newKey(status keysDomain.KeyStatus, scopeID string) (*keysDomain.Key, error) {
	material := make([]byte, cryptoDomain.KeyLength)
	if _, err := io.ReadFull(k.cfg.Random, material); err != nil {
		return nil, fmt.Errorf("%w: secure random source unavailable: %w", cryptoDomain.ErrConfiguration, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		cryptoDomain.Zero(material)
		return nil, fmt.Errorf("%w: failed to generate key id: %w", cryptoDomain.ErrConfiguration, err)
	}

	now := k.now()
	key := &keysDomain.Key{
		ID:        id.String(),
		Algorithm: k.cfg.Algorithm,
		Material:  material,
		Status:    status,
		Scope:     scopeID,
		CreatedAt: now,
	}
	if status == keysDomain.KeyStatusRetired {
		key.RetiredAt = &now
	}
	return key, nil
}

// Load rebuilds the key ring from the store.
func (k *keyManager) Load(ctx context.Context, autoGenerate bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	keys, err := k.store.List(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to load keys: %w", cryptoDomain.ErrConfiguration, err)
	}

	ring := keysDomain.NewKeyRing(keys)
	if ring.ActiveCount() > 1 {
		activeID, _ := ring.ActiveID()
		k.logger.Warn("multiple active keys in store, using newest",
			slog.Int("active_key_count", ring.ActiveCount()),
			slog.String("key_id", activeID),
		)
	}

	if _, ok := ring.ActiveID(); !ok {
		if !autoGenerate {
			k.ring.Store(ring)
			return keysDomain.ErrNoActiveKey
		}

		key, err := k.newKey(keysDomain.KeyStatusActive, "")
		if err != nil {
			return err
		}
		if err := k.store.Create(ctx, key); err != nil {
			return fmt.Errorf("%w: failed to store generated key: %w", cryptoDomain.ErrConfiguration, err)
		}
		ring = keysDomain.NewKeyRing(append(ring.Keys(), key))
		k.logger.Info("generated initial key", slog.String("key_id", key.ID))
	}

	k.ring.Store(ring)
	k.logger.Info("key ring loaded",
		slog.Int("total_key_count", ring.Len()),
		slog.String("algorithm", string(k.cfg.Algorithm)),
	)
	return nil
}

// reloadLocked replaces the ring with the store's keys, so that rotations and
// purges made by other processes become visible. Records whose status did not
// change keep their in-memory instance. Callers hold mu.
func (k *keyManager) reloadLocked(ctx context.Context) (*keysDomain.KeyRing, error) {
	stored, err := k.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reload keys: %w", err)
	}

	current := k.ring.Load()
	keys := make([]*keysDomain.Key, 0, len(stored))
	for _, key := range stored {
		if existing, ok := current.Get(key.ID); ok && existing.Status == key.Status {
			if key != existing {
				key.Zero()
			}
			keys = append(keys, existing)
			continue
		}
		keys = append(keys, key)
	}

	ring := keysDomain.NewKeyRing(keys)
	if previousID, _ := current.ActiveID(); previousID != "" {
		if activeID, _ := ring.ActiveID(); activeID != previousID {
			k.logger.Info("active key changed in store",
				slog.String("key_id", activeID),
				slog.String("previous_key_id", previousID),
			)
		}
	}
	k.ring.Store(ring)
	return ring, nil
}

// GenerateKey creates a new key and makes it active if no key is active. A key
// generated while another is active is stored retired so the single-active-key
// invariant holds.
func (k *keyManager) GenerateKey(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	ring, err := k.reloadLocked(ctx)
	if err != nil {
		return "", err
	}
	status := keysDomain.KeyStatusActive
	if _, ok := ring.ActiveID(); ok {
		status = keysDomain.KeyStatusRetired
	}

	key, err := k.newKey(status, "")
	if err != nil {
		return "", err
	}
	if err := k.store.Create(ctx, key); err != nil {
		cryptoDomain.Zero(key.Material)
		return "", err
	}

	k.ring.Store(keysDomain.NewKeyRing(append(ring.Keys(), key)))
	k.logger.Info("key generated",
		slog.String("key_id", key.ID),
		slog.String("status", string(key.Status)),
	)
	return key.ID, nil
}

// GetCurrentKeyID returns the active key id.
func (k *keyManager) GetCurrentKeyID() (string, bool) {
	return k.ring.Load().ActiveID()
}

// RotateKey generates a new active key and retires the previous one. On any
// failure the previous key stays active and the ring is unchanged.
func (k *keyManager) RotateKey(ctx context.Context, scopeID string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, err := k.reloadLocked(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", cryptoDomain.ErrRotation, err)
	}
	return k.rotateLocked(ctx, scopeID)
}

// rotateLocked rotates against the current ring. When the store reports that
// another process changed the active key in the meantime, the ring is reloaded
// and the rotation retried once.
func (k *keyManager) rotateLocked(ctx context.Context, scopeID string) (string, error) {
	keyID, err := k.rotateOnce(ctx, scopeID)
	if !errors.Is(err, keysDomain.ErrStaleKeyState) {
		return keyID, err
	}

	k.logger.Warn("key store changed during rotation, reloading")
	if _, reloadErr := k.reloadLocked(ctx); reloadErr != nil {
		return "", fmt.Errorf("%w: %w", cryptoDomain.ErrRotation, reloadErr)
	}
	return k.rotateOnce(ctx, scopeID)
}

func (k *keyManager) rotateOnce(ctx context.Context, scopeID string) (string, error) {
	ring := k.ring.Load()

	next, err := k.newKey(keysDomain.KeyStatusActive, scopeID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", cryptoDomain.ErrRotation, err)
	}

	var retired *keysDomain.Key
	if prev := ring.Active(); prev != nil {
		retired = prev.Retire(k.now())
	}

	if err := k.store.Rotate(ctx, retired, next); err != nil {
		cryptoDomain.Zero(next.Material)
		return "", fmt.Errorf("%w: %w", cryptoDomain.ErrRotation, err)
	}

	keys := make([]*keysDomain.Key, 0, ring.Len()+1)
	for _, key := range ring.Keys() {
		if retired != nil && key.ID == retired.ID {
			keys = append(keys, retired)
			continue
		}
		keys = append(keys, key)
	}
	keys = append(keys, next)
	k.ring.Store(keysDomain.NewKeyRing(keys))

	attrs := []any{slog.String("key_id", next.ID), slog.String("scope", scopeID)}
	if retired != nil {
		attrs = append(attrs, slog.String("retired_key_id", retired.ID))
	}
	k.logger.Info("key rotated", attrs...)
	return next.ID, nil
}

// RotateIfNeeded reloads the ring and rotates when the active key has outlived
// the rotation interval.
func (k *keyManager) RotateIfNeeded(ctx context.Context, scopeID string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	ring, err := k.reloadLocked(ctx)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", cryptoDomain.ErrRotation, err)
	}
	currentID, ok := ring.ActiveID()
	if !ok {
		return "", false, keysDomain.ErrNoActiveKey
	}
	if !k.NeedsRotation(currentID) {
		return currentID, false, nil
	}

	nextID, err := k.rotateLocked(ctx, scopeID)
	if err != nil {
		return currentID, false, err
	}
	return nextID, true, nil
}

// NeedsRotation reports whether now - createdAt exceeds the rotation interval.
// Unknown keys never need rotation.
func (k *keyManager) NeedsRotation(keyID string) bool {
	if k.cfg.RotationIntervalDays <= 0 {
		return false
	}
	key, ok := k.ring.Load().Get(keyID)
	if !ok {
		return false
	}
	return key.Age(k.now()) > time.Duration(k.cfg.RotationIntervalDays)*day
}

// ValidateKey reports whether the key exists, consulting the store on a miss.
func (k *keyManager) ValidateKey(keyID string) bool {
	_, err := k.ResolveKey(keyID)
	return err == nil
}

func (k *keyManager) candidates(ring *keysDomain.KeyRing, retentionDays int) ([]*keysDomain.Key, error) {
	if retentionDays < 0 {
		return nil, keysDomain.ErrInvalidRetention
	}

	now := k.now()
	retention := time.Duration(retentionDays) * day

	var out []*keysDomain.Key
	for _, key := range ring.Keys() {
		if key.IsActive() || key.RetiredAt == nil {
			continue
		}
		if now.Sub(*key.RetiredAt) > retention {
			out = append(out, key)
		}
	}
	return out, nil
}

// CleanupCandidates lists purge candidates without key material.
func (k *keyManager) CleanupCandidates(retentionDays int) ([]*keysDomain.Key, error) {
	keys, err := k.candidates(k.ring.Load(), retentionDays)
	if err != nil {
		return nil, err
	}

	return withoutMaterial(keys), nil
}

// ListKeys returns the ring's keys without material, newest first.
func (k *keyManager) ListKeys() []*keysDomain.Key {
	return withoutMaterial(k.ring.Load().Keys())
}

func withoutMaterial(keys []*keysDomain.Key) []*keysDomain.Key {
	out := make([]*keysDomain.Key, 0, len(keys))
	for _, key := range keys {
		clone := *key
		clone.Material = nil
		out = append(out, &clone)
	}
	return out
}

// CleanupOldKeys purges retired keys past retention. Each candidate must be
// reported unreferenced by the ReferenceChecker; without a checker the purge is
// refused unless AllowUnverifiedPurge is set. The active key is never purged.
func (k *keyManager) CleanupOldKeys(ctx context.Context, retentionDays int) ([]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if retentionDays < 0 {
		return nil, keysDomain.ErrInvalidRetention
	}
	ring, err := k.reloadLocked(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := k.candidates(ring, retentionDays)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	if k.cfg.ReferenceChecker == nil && !k.cfg.AllowUnverifiedPurge {
		return nil, keysDomain.ErrPurgeUnverified
	}

	purged := make(map[string]*keysDomain.Key, len(candidates))
	var purgeErr error
	for _, key := range candidates {
		if k.cfg.ReferenceChecker != nil {
			referenced, err := k.cfg.ReferenceChecker.IsReferenced(ctx, key.ID)
			if err != nil {
				purgeErr = fmt.Errorf("failed to check references for key %s: %w", key.ID, err)
				break
			}
			if referenced {
				k.logger.Info("retired key still referenced, keeping", slog.String("key_id", key.ID))
				continue
			}
		}

		if err := k.store.Delete(ctx, key.ID); err != nil {
			purgeErr = fmt.Errorf("failed to delete key %s: %w", key.ID, err)
			break
		}
		purged[key.ID] = key
	}

	ids := make([]string, 0, len(purged))
	if len(purged) > 0 {
		remaining := make([]*keysDomain.Key, 0, ring.Len()-len(purged))
		for _, key := range ring.Keys() {
			if _, ok := purged[key.ID]; ok {
				ids = append(ids, key.ID)
				continue
			}
			remaining = append(remaining, key)
		}
		// Purged records are dropped from the ring but not zeroed: older snapshots
		// and ResolveKey callers may still hold them. The store wipes its own copy.
		k.ring.Store(keysDomain.NewKeyRing(remaining))
		k.logger.Info("retired keys purged",
			slog.Int("purged_count", len(ids)),
			slog.Int("retention_days", retentionDays),
		)
	}

	return ids, purgeErr
}

// ResolveKey returns a key by id. A miss reloads the ring from the store, at most
// once per MissReloadInterval, so keys created by other processes resolve.
func (k *keyManager) ResolveKey(keyID string) (*keysDomain.Key, error) {
	if key, ok := k.ring.Load().Get(keyID); ok {
		return key, nil
	}
	if key, ok := k.reloadOnMiss(keyID); ok {
		return key, nil
	}
	return nil, keysDomain.ErrKeyNotFound
}

func (k *keyManager) reloadOnMiss(keyID string) (*keysDomain.Key, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, false
	}
	// another caller may have reloaded while we waited for the lock
	if key, ok := k.ring.Load().Get(keyID); ok {
		return key, true
	}

	now := k.now()
	if !k.lastMissReload.IsZero() && now.Sub(k.lastMissReload) < k.cfg.MissReloadInterval {
		return nil, false
	}
	k.lastMissReload = now

	ctx, cancel := context.WithTimeout(context.Background(), missReloadTimeout)
	defer cancel()

	ring, err := k.reloadLocked(ctx)
	if err != nil {
		k.logger.Warn("key reload after lookup miss failed", slog.Any("error", err))
		return nil, false
	}
	return ring.Get(keyID)
}

// Stats returns operational counters and cipher parameters.
func (k *keyManager) Stats() keysDomain.Stats {
	ring := k.ring.Load()
	currentID, _ := ring.ActiveID()
	return keysDomain.Stats{
		Algorithm:            k.cfg.Algorithm,
		KeyLength:            cryptoDomain.KeyLength,
		IVLength:             cryptoDomain.NonceLength,
		TagLength:            cryptoDomain.TagLength,
		ActiveKeyCount:       ring.ActiveCount(),
		TotalKeyCount:        ring.Len(),
		CurrentKeyID:         currentID,
		RotationIntervalDays: k.cfg.RotationIntervalDays,
	}
}

// Ready reports whether an active key is loaded.
func (k *keyManager) Ready() bool {
	_, ok := k.ring.Load().ActiveID()
	return ok
}

// Close zeroes in-memory key material and empties the ring.
func (k *keyManager) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.closed = true
	ring := k.ring.Swap(keysDomain.NewKeyRing(nil))
	ring.Close()
}
