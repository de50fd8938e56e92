package waitlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeLayout is fixed-width so that text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// sqlStore holds the queries shared by the SQLite and Postgres backends.
type sqlStore struct {
	db          *sql.DB
	placeholder func(n int) string
	isDuplicate func(error) bool
}

func (s *sqlStore) bind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the underlying database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts e. A duplicate email yields ErrAlreadyJoined.
func (s *sqlStore) Create(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, s.bind(`INSERT INTO waitlist (id, email, name, company, role, source, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.Email, e.Name, e.Company, e.Role, e.Source, string(e.Status),
		e.CreatedAt.UTC().Format(timeLayout), e.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		if s.isDuplicate(err) {
			return ErrAlreadyJoined
		}
		return err
	}
	return nil
}

// GetByEmail returns the entry for a normalized email.
func (s *sqlStore) GetByEmail(ctx context.Context, email string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, s.bind(`SELECT id, email, name, company, role, source, status, created_at, updated_at FROM waitlist WHERE email = ?`), email)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// List returns a page of entries newest first, and the total count.
func (s *sqlStore) List(ctx context.Context, opts ListOptions) ([]Entry, int, error) {
	where := ""
	var args []any
	if opts.Status != "" {
		where = " WHERE status = ?"
		args = append(args, string(opts.Status))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, s.bind(`SELECT COUNT(*) FROM waitlist`+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	query := `SELECT id, email, name, company, role, source, status, created_at, updated_at FROM waitlist` + where +
		` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(opts.Limit) + ` OFFSET ` + strconv.Itoa(opts.Offset)
	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// SetStatus updates the status of the entry with id.
func (s *sqlStore) SetStatus(ctx context.Context, id string, status Status, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.bind(`UPDATE waitlist SET status = ?, updated_at = ? WHERE id = ?`),
		string(status), at.UTC().Format(timeLayout), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var status string
	err := sc.Scan(&e.ID, &e.Email, &e.Name, &e.Company, &e.Role, &e.Source, &status,
		timeScanner{&e.CreatedAt}, timeScanner{&e.UpdatedAt})
	if err != nil {
		return Entry{}, err
	}
	e.Status = Status(status)
	return e, nil
}

// timeScanner accepts native timestamps as well as the text layout used by
// the SQLite backend.
type timeScanner struct {
	t *time.Time
}

func (ts timeScanner) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*ts.t = time.Time{}
	case time.Time:
		*ts.t = x.UTC()
	case string:
		return ts.parse(x)
	case []byte:
		return ts.parse(string(x))
	default:
		return fmt.Errorf("waitlist: cannot scan %T into time", v)
	}
	return nil
}

func (ts timeScanner) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("waitlist: parse time %q: %w", s, err)
	}
	*ts.t = t.UTC()
	return nil
}
