package cache

import (
	"errors"
	"sync"
)

// ErrPropertyNotFound is returned by PropertyStore implementations when a
// slot has no value. The engine treats any load failure as an empty bucket,
// so implementations may return other errors as well.
var ErrPropertyNotFound = errors.New("property not found")

// PropertyStore is the host-provided key/value facility used to persist
// whole bucket snapshots across process restarts. Implementations are
// passive storage: they must not interpret the stored bytes.
type PropertyStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Clear(key string) error
}

// MemoryProperties is a map-backed PropertyStore. It is the default store
// for hosts that don't provide one; contents live exactly as long as the
// process.
type MemoryProperties struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryProperties creates an empty in-memory property store.
func NewMemoryProperties() *MemoryProperties {
	return &MemoryProperties{slots: make(map[string][]byte)}
}

// Get returns the value stored under key. The returned slice is a copy;
// mutating it cannot corrupt the stored snapshot.
func (p *MemoryProperties) Get(key string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	value, ok := p.slots[key]
	if !ok {
		return nil, ErrPropertyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores value under key, overwriting any previous value.
func (p *MemoryProperties) Set(key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	p.slots[key] = stored
	return nil
}

// Clear removes the slot for key.
func (p *MemoryProperties) Clear(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.slots, key)
	return nil
}
