// Package sqlitedb opens the site's SQLite databases with the same pool
// and per-connection settings.
package sqlitedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// MaxOpenConns bounds the pool of every database opened here.
const MaxOpenConns = 4

// pragmas run on every new connection. WAL with a busy timeout lets
// readers proceed during writes.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"cache_size(-8000)",
}

// DSN returns the data source name for path with the connection pragmas.
func DSN(path string) string {
	dsn := "file:" + path
	for i, p := range pragmas {
		if i == 0 {
			dsn += "?"
		} else {
			dsn += "&"
		}
		dsn += "_pragma=" + p
	}
	return dsn
}

// Open creates the parent directory of path and opens the database.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(MaxOpenConns)
	db.SetMaxIdleConns(MaxOpenConns)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return db, nil
}
