package redirect

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

const redirectsDDL = `
CREATE TABLE IF NOT EXISTS redirects (
	url        TEXT PRIMARY KEY,
	target     TEXT NOT NULL,
	checked_at TEXT NOT NULL
);`

// SQLiteBackend persists resolved URLs across runs in a sqlite file, so a
// URL is only ever probed once no matter how many runs report it.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the cache database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening redirect cache: %w", err)
	}
	if _, err := db.Exec(redirectsDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating redirect cache schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (s *SQLiteBackend) Get(url string) (string, bool, error) {
	var target string
	err := s.db.QueryRow(
		`SELECT target FROM redirects WHERE url = ?`, url).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying redirect cache: %w", err)
	}
	return target, true, nil
}

func (s *SQLiteBackend) Put(url, target string, checkedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO redirects (url, target, checked_at) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET target = excluded.target, checked_at = excluded.checked_at`,
		url, target, checkedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("updating redirect cache: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) Close() error { return s.db.Close() }
