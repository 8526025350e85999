package domain

import (
	"sort"
)

// KeyRing is an immutable snapshot of every known key.
//
// The key manager swaps whole rings atomically, so a reader holding a ring always
// sees a consistent active key and never a half-constructed one. Callers must not
// mutate the keys returned from a ring.
type KeyRing struct {
	activeID string
	keys     map[string]*Key
	ordered  []*Key
}

// NewKeyRing builds a ring from keys. The newest active key becomes the ring's
// active key; any older key still marked active is reported through
// ActiveCount so the inconsistency is visible.
func NewKeyRing(keys []*Key) *KeyRing {
	ring := &KeyRing{
		keys:    make(map[string]*Key, len(keys)),
		ordered: make([]*Key, 0, len(keys)),
	}
	for _, k := range keys {
		ring.keys[k.ID] = k
		ring.ordered = append(ring.ordered, k)
	}

	sort.SliceStable(ring.ordered, func(i, j int) bool {
		return ring.ordered[i].CreatedAt.After(ring.ordered[j].CreatedAt)
	})

	for _, k := range ring.ordered {
		if k.IsActive() {
			ring.activeID = k.ID
			break
		}
	}
	return ring
}

// ActiveID returns the active key id and whether one exists.
func (r *KeyRing) ActiveID() (string, bool) {
	if r == nil || r.activeID == "" {
		return "", false
	}
	return r.activeID, true
}

// Active returns the active key or nil.
func (r *KeyRing) Active() *Key {
	if r == nil || r.activeID == "" {
		return nil
	}
	return r.keys[r.activeID]
}

// Get returns the key with the given id.
func (r *KeyRing) Get(id string) (*Key, bool) {
	if r == nil {
		return nil, false
	}
	k, ok := r.keys[id]
	return k, ok
}

// Keys returns the keys ordered newest first.
func (r *KeyRing) Keys() []*Key {
	if r == nil {
		return nil
	}
	out := make([]*Key, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the total number of keys.
func (r *KeyRing) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ordered)
}

// ActiveCount returns the number of keys marked active.
func (r *KeyRing) ActiveCount() int {
	if r == nil {
		return 0
	}
	count := 0
	for _, k := range r.ordered {
		if k.IsActive() {
			count++
		}
	}
	return count
}

// Close zeroes the material of every key in the ring.
func (r *KeyRing) Close() {
	if r == nil {
		return
	}
	for _, k := range r.ordered {
		k.Zero()
	}
}
