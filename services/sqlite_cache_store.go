package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Ash-333/nepse-data/models"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCacheStore is a local durable CacheStore for deployments without
// MongoDB. One file, one table, payloads stored as blobs.
type SQLiteCacheStore struct {
	db *sql.DB
}

// NewSQLiteCacheStore opens (or creates) the cache database at path
func NewSQLiteCacheStore(path string) (*SQLiteCacheStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			key        TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			fetched_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}

	log.Printf("SQLite cache store ready at %s", path)
	return &SQLiteCacheStore{db: db}, nil
}

func (s *SQLiteCacheStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	var payload []byte
	var fetchedAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, fetched_at FROM cache_entries WHERE key = ?", key).
		Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return &models.CacheEntry{
		Key:       key,
		Payload:   json.RawMessage(payload),
		FetchedAt: fetchedAt,
	}, nil
}

func (s *SQLiteCacheStore) Upsert(ctx context.Context, key string, payload json.RawMessage, fetchedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, payload, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at`,
		key, []byte(payload), fetchedAt)
	if err != nil {
		return fmt.Errorf("sqlite upsert %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteCacheStore) Close() error {
	return s.db.Close()
}
