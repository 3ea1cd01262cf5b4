package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/use-agent/mapleads/models"
)

// SQLite persists cache entries and flushed records in a single database
// file. It implements cache.Backend and store.RecordSink.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		blob BLOB NOT NULL,
		written_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT,
		email TEXT,
		website TEXT,
		instagram TEXT,
		facebook TEXT,
		rating REAL,
		review_count INTEGER,
		category TEXT,
		lat REAL,
		lng REAL,
		scraped_at DATETIME NOT NULL,
		search_group TEXT NOT NULL DEFAULT '',
		UNIQUE(name, address, search_group)
	);
	CREATE INDEX IF NOT EXISTS idx_records_group ON records(search_group);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Load implements cache.Backend.
func (s *SQLite) Load(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	var (
		blob      []byte
		writtenAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT blob, written_at FROM cache_entries WHERE key = ?", key,
	).Scan(&blob, &writtenAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("loading cache entry: %w", err)
	}
	return blob, time.UnixMilli(writtenAt), true, nil
}

// Store implements cache.Backend.
func (s *SQLite) Store(ctx context.Context, key string, blob []byte, writtenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, blob, written_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET blob = excluded.blob, written_at = excluded.written_at
	`, key, blob, writtenAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

// SaveRecords inserts recs, ignoring rows already present for the same
// (name, address, search group). It returns the number of rows inserted.
func (s *SQLite) SaveRecords(ctx context.Context, recs []models.BusinessRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO records
		(name, address, phone, email, website, instagram, facebook,
		 rating, review_count, category, lat, lng, scraped_at, search_group)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range recs {
		var lat, lng sql.NullFloat64
		if r.Location != nil {
			lat = sql.NullFloat64{Float64: r.Location.Lat, Valid: true}
			lng = sql.NullFloat64{Float64: r.Location.Lng, Valid: true}
		}
		res, err := stmt.ExecContext(ctx,
			r.Name, r.Address, r.Phone, r.Email, r.Website, r.Instagram, r.Facebook,
			r.Rating, r.ReviewCount, r.Category, lat, lng,
			r.ScrapedAt.UTC(), r.SearchGroup,
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("inserting %q: %w", r.Name, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}
	return inserted, nil
}

// Count returns the number of persisted records.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count)
	return count, err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
