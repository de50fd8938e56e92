package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/zerovacancy/zerovacancy-sub004/supabase"
)

// RemoteStore keeps the waitlist in a table of the hosted database service.
type RemoteStore struct {
	client *supabase.Client
	table  string
}

// NewRemoteStore stores entries in table through client.
func NewRemoteStore(client *supabase.Client, table string) *RemoteStore {
	if table == "" {
		table = "waitlist"
	}
	return &RemoteStore{client: client, table: table}
}

// Create inserts e. A unique violation yields ErrAlreadyJoined.
func (s *RemoteStore) Create(ctx context.Context, e Entry) error {
	err := s.client.Insert(ctx, s.table, e, nil)
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) && apiErr.Conflict() {
		return ErrAlreadyJoined
	}
	return err
}

// GetByEmail returns the entry for a normalized email.
func (s *RemoteStore) GetByEmail(ctx context.Context, email string) (Entry, error) {
	var rows []Entry
	_, err := s.client.Select(ctx, s.table, supabase.Query{
		Filters: []supabase.Filter{supabase.Eq("email", email)},
		Limit:   1,
	}, &rows)
	if err != nil {
		return Entry{}, err
	}
	if len(rows) == 0 {
		return Entry{}, ErrNotFound
	}
	return rows[0], nil
}

// List returns a page of entries newest first, and the total count.
func (s *RemoteStore) List(ctx context.Context, opts ListOptions) ([]Entry, int, error) {
	q := supabase.Query{
		Order:  "created_at",
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}
	if opts.Status != "" {
		q.Filters = append(q.Filters, supabase.Eq("status", string(opts.Status)))
	}
	var rows []Entry
	total, err := s.client.Select(ctx, s.table, q, &rows)
	if err != nil {
		return nil, 0, err
	}
	if seen := opts.Offset + len(rows); total < seen {
		total = seen
	}
	return rows, total, nil
}

// SetStatus updates the status of the entry with id.
func (s *RemoteStore) SetStatus(ctx context.Context, id string, status Status, at time.Time) error {
	n, err := s.client.Update(ctx, s.table, []supabase.Filter{supabase.Eq("id", id)}, map[string]any{
		"status":     status,
		"updated_at": at.UTC(),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks that the service answers.
func (s *RemoteStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, s.table)
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (s *RemoteStore) Close() error {
	return nil
}
