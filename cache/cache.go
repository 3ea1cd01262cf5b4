package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/mapleads/models"
)

// Backend persists opaque cache blobs with their write time.
type Backend interface {
	// Load returns the blob stored under key. ok is false when absent.
	Load(ctx context.Context, key string) (blob []byte, writtenAt time.Time, ok bool, err error)

	// Store overwrites the blob under key.
	Store(ctx context.Context, key string, blob []byte, writtenAt time.Time) error
}

// Cache stores the records extracted for a (category, location) query.
// It is safe for concurrent use when the backend is.
type Cache struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Cache over backend.
func New(backend Backend, logger *slog.Logger) *Cache {
	return &Cache{backend: backend, logger: logger, now: time.Now}
}

// Key generates a cache key from the query pair, case-insensitively.
func Key(category, location string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(category)))
	h.Write([]byte("|"))
	h.Write([]byte(strings.ToLower(location)))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached records if an entry exists and is younger than
// maxAge. If maxAge <= 0, no cache lookup is performed. A missing, expired
// or unreadable entry is a miss.
func (c *Cache) Get(ctx context.Context, category, location string, maxAge time.Duration) ([]models.BusinessRecord, bool) {
	if maxAge <= 0 {
		return nil, false
	}

	key := Key(category, location)
	blob, writtenAt, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		c.logger.Warn("cache load failed", "key", key, "error", err)
		return nil, false
	}
	if !ok || c.now().Sub(writtenAt) > maxAge {
		return nil, false
	}

	var recs []models.BusinessRecord
	if err := json.Unmarshal(blob, &recs); err != nil {
		c.logger.Warn("cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return recs, true
}

// Set stores recs under the query pair, replacing any previous entry.
func (c *Cache) Set(ctx context.Context, category, location string, recs []models.BusinessRecord) error {
	if recs == nil {
		recs = []models.BusinessRecord{}
	}
	blob, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("cache: marshal records: %w", err)
	}
	if err := c.backend.Store(ctx, Key(category, location), blob, c.now()); err != nil {
		return fmt.Errorf("cache: store: %w", err)
	}
	return nil
}
