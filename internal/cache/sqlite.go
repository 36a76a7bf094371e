package cache

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_records (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    tags       TEXT NOT NULL DEFAULT '',
    expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_records_expires ON cache_records(expires_at);
`

// SQLite is a Store persisted to a local database file, so cached
// records survive one-shot CLI runs.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the cache database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Get(key string) ([]byte, bool) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRow(
		"SELECT value, expires_at FROM cache_records WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if err != nil {
		return nil, false
	}
	if time.Now().Unix() >= expiresAt {
		s.db.Exec("DELETE FROM cache_records WHERE key = ?", key)
		return nil, false
	}
	return value, true
}

func (s *SQLite) Set(key string, value []byte, opts Options) {
	expiresAt := time.Now().Add(opts.TTL).Unix()
	// Tags stored comma-delimited; InvalidateTag matches on the
	// delimited form to avoid substring collisions.
	tags := strings.Join(opts.Tags, ",")
	s.db.Exec(
		`INSERT INTO cache_records (key, value, tags, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, tags = excluded.tags, expires_at = excluded.expires_at`,
		key, value, tags, expiresAt,
	)
}

// InvalidateTag removes every record carrying the tag.
func (s *SQLite) InvalidateTag(tag string) error {
	_, err := s.db.Exec(
		"DELETE FROM cache_records WHERE ',' || tags || ',' LIKE ?",
		"%,"+tag+",%",
	)
	if err != nil {
		return fmt.Errorf("invalidating tag %s: %w", tag, err)
	}
	return nil
}

// Prune removes expired records. The serve command runs this
// periodically; one-shot runs rely on Get-side expiry.
func (s *SQLite) Prune() (int64, error) {
	res, err := s.db.Exec("DELETE FROM cache_records WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return res.RowsAffected()
}
