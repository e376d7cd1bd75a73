// Package statecache persists small pieces of client state between CLI
// invocations: the saved access token and the selected project. A
// missing or unreadable cache degrades to "signed out", never a crash.
package statecache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// Well-known cache keys.
const (
	KeyAccessToken    = "access_token"
	KeyCurrentProject = "current_project"
)

// Cache is a SQLite-backed key/value store.
type Cache struct {
	path string
	db   *sql.DB
}

// Open opens (creating if needed) the cache at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state cache: %w", err)
	}

	// SQLite is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	c := &Cache{path: path, db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS state (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate state cache: %w", err)
	}
	return nil
}

// Get returns the value for key and whether it was present.
func (c *Cache) Get(key string) (string, bool, error) {
	var value string
	err := c.db.QueryRow(`SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read state cache: %w", err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (c *Cache) Set(key, value string) error {
	_, err := c.db.Exec(`
		INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write state cache: %w", err)
	}
	return nil
}

// Delete removes key from the cache. Deleting an absent key is a no-op.
func (c *Cache) Delete(key string) error {
	if _, err := c.db.Exec(`DELETE FROM state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete from state cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
