// Package supabase wraps the PostgREST client for the hosted database
// service with the project URL and anon key conventions the site uses.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/supabase-community/postgrest-go"
)

// ErrNotConfigured is returned by every call on a client built without an
// endpoint URL or access token.
var ErrNotConfigured = errors.New("supabase: client is not configured")

// APIError is an error reported by PostgREST, identified by its Postgres or
// PostgREST error code.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: %s: %s", e.Code, e.Message)
}

// Conflict reports a unique-constraint violation.
func (e *APIError) Conflict() bool {
	return e.Code == "23505"
}

// Client issues requests against one project.
type Client struct {
	baseURL string
	key     string
	schema  string
	rest    *postgrest.Client
}

// Option customises a Client.
type Option func(*Client)

// WithSchema selects a non-public schema.
func WithSchema(schema string) Option {
	return func(c *Client) {
		c.schema = schema
	}
}

// New builds a client for the project at rawURL using the anon access key.
// It never fails; a client with missing settings returns ErrNotConfigured
// from every call.
func New(rawURL, key string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(rawURL, "/"),
		key:     key,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Configured() {
		c.rest = postgrest.NewClient(c.baseURL+"/rest/v1", c.schema, map[string]string{
			"apikey":        key,
			"Authorization": "Bearer " + key,
		})
	}
	return c
}

// Configured reports whether the client has both an endpoint and a key.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.key != ""
}

// Filter matches rows whose column equals a value.
type Filter struct {
	Column string
	Value  string
}

// Eq matches rows whose column equals value.
func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// Query describes a select.
type Query struct {
	Columns   string // defaults to *
	Filters   []Filter
	Order     string // column name
	Ascending bool
	Offset    int
	Limit     int // 0 means every row
}

// Insert adds row to table. When out is non-nil the inserted
// representation is decoded into it.
func (c *Client) Insert(ctx context.Context, table string, row, out any) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	returning := "minimal"
	if out != nil {
		returning = "representation"
	}
	body, _, err := c.rest.From(table).Insert(row, false, "", returning, "").Execute()
	if err != nil {
		return apiError(table, err)
	}
	return decodeInto(body, out)
}

// Select runs q against table, decodes the rows into out and returns the
// exact total row count.
func (c *Client) Select(ctx context.Context, table string, q Query, out any) (int, error) {
	if err := c.ready(ctx); err != nil {
		return 0, err
	}
	cols := q.Columns
	if cols == "" {
		cols = "*"
	}
	f := c.rest.From(table).Select(cols, "exact", false)
	for _, flt := range q.Filters {
		f = f.Eq(flt.Column, flt.Value)
	}
	if q.Order != "" {
		f = f.Order(q.Order, &postgrest.OrderOpts{Ascending: q.Ascending})
	}
	if q.Limit > 0 {
		f = f.Range(q.Offset, q.Offset+q.Limit-1, "")
	}
	body, count, err := f.Execute()
	if err != nil {
		return 0, apiError(table, err)
	}
	if err := decodeInto(body, out); err != nil {
		return 0, err
	}
	return int(count), nil
}

// Update applies patch to every row matching filters and returns the
// number of rows changed.
func (c *Client) Update(ctx context.Context, table string, filters []Filter, patch any) (int, error) {
	if len(filters) == 0 {
		return 0, fmt.Errorf("supabase: refusing unfiltered update of %s", table)
	}
	if err := c.ready(ctx); err != nil {
		return 0, err
	}
	f := c.rest.From(table).Update(patch, "representation", "")
	for _, flt := range filters {
		f = f.Eq(flt.Column, flt.Value)
	}
	body, _, err := f.Execute()
	if err != nil {
		return 0, apiError(table, err)
	}
	var rows []json.RawMessage
	if err := decodeInto(body, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Ping checks that table answers with the configured key.
func (c *Client) Ping(ctx context.Context, table string) error {
	_, err := c.Select(ctx, table, Query{Limit: 1}, nil)
	return err
}

func (c *Client) ready(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if c.rest.ClientError != nil {
		return fmt.Errorf("supabase: %w", c.rest.ClientError)
	}
	return ctx.Err()
}

// apiError turns the "(code) message" errors postgrest-go reports for
// non-2xx responses into an *APIError.
func apiError(table string, err error) error {
	msg := err.Error()
	if strings.HasPrefix(msg, "(") {
		if i := strings.Index(msg, ") "); i > 1 {
			return &APIError{Code: msg[1:i], Message: msg[i+2:]}
		}
	}
	return fmt.Errorf("supabase: %s: %w", table, err)
}

func decodeInto(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("supabase: decode response: %w", err)
	}
	return nil
}
