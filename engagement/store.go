package engagement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zerovacancy/zerovacancy-sub004/internal/sqlitedb"
	"github.com/zerovacancy/zerovacancy-sub004/viewport"
)

// Store persists engagement rows and settings in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens the engagement database at path.
func NewStore(path string) (*Store, error) {
	db, err := sqlitedb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open engagement db: %w", err)
	}
	db.SetConnMaxLifetime(time.Hour)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS page_views (
			visitor_id TEXT NOT NULL,
			path TEXT NOT NULL,
			day TEXT NOT NULL,
			device TEXT NOT NULL,
			screen TEXT NOT NULL DEFAULT '',
			max_depth REAL NOT NULL DEFAULT 0,
			views INTEGER NOT NULL DEFAULT 0,
			last_seen TEXT NOT NULL,
			PRIMARY KEY (visitor_id, path, day)
		);
		CREATE INDEX IF NOT EXISTS idx_page_views_day ON page_views(day);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// Record merges v into its (visitor, path, day) row, keeping the maximum
// depth and adding v.Views to the view count.
func (s *Store) Record(ctx context.Context, v View) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO page_views (visitor_id, path, day, device, screen, max_depth, views, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(visitor_id, path, day) DO UPDATE SET
			max_depth = MAX(page_views.max_depth, excluded.max_depth),
			views = page_views.views + excluded.views,
			screen = CASE WHEN excluded.screen != '' THEN excluded.screen ELSE page_views.screen END,
			last_seen = excluded.last_seen`,
		v.VisitorID, v.Path, v.Day, v.Device, v.Screen, v.MaxDepth, v.Views,
		v.LastSeen.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

// Get returns the row for (visitor, path, day).
func (s *Store) Get(ctx context.Context, visitorID, path, day string) (View, error) {
	var v View
	var last string
	err := s.db.QueryRowContext(ctx, `
		SELECT visitor_id, path, day, device, screen, max_depth, views, last_seen
		FROM page_views WHERE visitor_id = ? AND path = ? AND day = ?`,
		visitorID, path, day).Scan(&v.VisitorID, &v.Path, &v.Day, &v.Device, &v.Screen, &v.MaxDepth, &v.Views, &last)
	if err != nil {
		return View{}, err
	}
	v.LastSeen, _ = time.Parse(time.RFC3339, last)
	return v, nil
}

// Summary aggregates the days in [from, to] inclusive. topN bounds the
// number of pages returned.
func (s *Store) Summary(ctx context.Context, from, to time.Time, topN int) (*Summary, error) {
	fromDay, toDay := Day(from), Day(to)
	sum := &Summary{From: from, To: to, TopPages: []PageStat{}}

	var mobile int
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(views), 0),
		       COUNT(DISTINCT visitor_id),
		       COALESCE(SUM(CASE WHEN device = ? THEN views ELSE 0 END), 0),
		       AVG(max_depth)
		FROM page_views WHERE day BETWEEN ? AND ?`,
		viewport.DeviceMobile, fromDay, toDay).Scan(&sum.Views, &sum.UniqueVisitors, &mobile, &avg)
	if err != nil {
		return nil, fmt.Errorf("summary totals: %w", err)
	}
	if sum.Views > 0 {
		sum.MobileShare = round1(float64(mobile) * 100 / float64(sum.Views))
	}
	sum.AvgDepth = round1(avg.Float64)

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, SUM(views) AS v, AVG(max_depth)
		FROM page_views WHERE day BETWEEN ? AND ?
		GROUP BY path ORDER BY v DESC, path LIMIT ?`, fromDay, toDay, topN)
	if err != nil {
		return nil, fmt.Errorf("summary pages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p PageStat
		if err := rows.Scan(&p.Path, &p.Views, &p.AvgDepth); err != nil {
			return nil, err
		}
		p.AvgDepth = round1(p.AvgDepth)
		sum.TopPages = append(sum.TopPages, p)
	}
	return sum, rows.Err()
}

// Prune deletes rows older than the given day.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM page_views WHERE day < ?`, Day(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func round1(f float64) float64 {
	return float64(int64(f*10+0.5)) / 10
}
