package waitlist

import (
	"fmt"
	"strings"

	"github.com/zerovacancy/zerovacancy-sub004/internal/sqlitedb"
)

// SQLiteStore keeps the waitlist in a local SQLite file.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (or creates) the database at path, ensures the data
// directory exists, and creates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlitedb.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS waitlist (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    company TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_waitlist_created_at ON waitlist(created_at);
CREATE INDEX IF NOT EXISTS idx_waitlist_status ON waitlist(status);
`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure waitlist schema: %w", err)
	}
	return &SQLiteStore{sqlStore{
		db:          db,
		placeholder: func(int) string { return "?" },
		isDuplicate: func(err error) bool {
			return strings.Contains(err.Error(), "UNIQUE constraint failed")
		},
	}}, nil
}
