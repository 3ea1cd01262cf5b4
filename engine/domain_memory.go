package engine

import (
	"sync"
	"time"
)

// domainEntry stores a remembered lookup result with a TTL.
type domainEntry struct {
	value     string
	found     bool
	expiresAt time.Time
}

// DomainMemory remembers the outcome of a per-site lookup so sites shared
// by several businesses are fetched once per TTL. Negative outcomes are
// remembered too. Entries expire after the configured TTL and are cleaned
// up periodically.
type DomainMemory struct {
	store sync.Map // key (string) -> *domainEntry
	ttl   time.Duration
	now   func() time.Time
	done  chan struct{}
	once  sync.Once
}

// NewDomainMemory creates a DomainMemory with the given TTL and starts
// a background goroutine that prunes expired entries every hour.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	return newDomainMemory(ttl, time.Now)
}

func newDomainMemory(ttl time.Duration, now func() time.Time) *DomainMemory {
	dm := &DomainMemory{
		ttl:  ttl,
		now:  now,
		done: make(chan struct{}),
	}
	go dm.cleanupLoop()
	return dm
}

// Get returns the remembered value for key. ok is false when nothing is
// remembered or the entry expired; found is the remembered lookup outcome.
func (dm *DomainMemory) Get(key string) (value string, found, ok bool) {
	val, exists := dm.store.Load(key)
	if !exists {
		return "", false, false
	}
	entry := val.(*domainEntry)
	if dm.now().After(entry.expiresAt) {
		dm.store.Delete(key)
		return "", false, false
	}
	return entry.value, entry.found, true
}

// Set records the lookup outcome for key.
func (dm *DomainMemory) Set(key, value string, found bool) {
	dm.store.Store(key, &domainEntry{
		value:     value,
		found:     found,
		expiresAt: dm.now().Add(dm.ttl),
	})
}

// Delete forgets key.
func (dm *DomainMemory) Delete(key string) {
	dm.store.Delete(key)
}

// Stop terminates the background cleanup goroutine. It is safe to call
// more than once.
func (dm *DomainMemory) Stop() {
	dm.once.Do(func() { close(dm.done) })
}

// cleanupLoop runs every hour, deleting expired entries.
func (dm *DomainMemory) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			now := dm.now()
			dm.store.Range(func(key, value any) bool {
				entry := value.(*domainEntry)
				if now.After(entry.expiresAt) {
					dm.store.Delete(key)
				}
				return true
			})
		}
	}
}
