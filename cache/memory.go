package cache

import (
	"context"
	"sync"
	"time"
)

// entry holds a cached blob with its write timestamp.
type entry struct {
	blob      []byte
	writtenAt time.Time
}

// MemoryBackend is an in-process Backend bounded by entry count.
// It is safe for concurrent use.
type MemoryBackend struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
}

// NewMemoryBackend creates a backend holding at most maxEntries blobs.
func NewMemoryBackend(maxEntries int) *MemoryBackend {
	return &MemoryBackend{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
	}
}

func (m *MemoryBackend) Load(_ context.Context, key string) ([]byte, time.Time, bool, error) {
	m.mu.RLock()
	e, ok := m.store[key]
	m.mu.RUnlock()
	if !ok {
		return nil, time.Time{}, false, nil
	}
	return e.blob, e.writtenAt, true, nil
}

// Store saves blob. If the backend is at capacity, a random other entry is
// evicted to make room.
func (m *MemoryBackend) Store(_ context.Context, key string, blob []byte, writtenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Map iteration order is random in Go.
	if _, exists := m.store[key]; !exists && m.maxEntries > 0 && len(m.store) >= m.maxEntries {
		for k := range m.store {
			delete(m.store, k)
			break
		}
	}

	m.store[key] = &entry{
		blob:      append([]byte(nil), blob...),
		writtenAt: writtenAt,
	}
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
