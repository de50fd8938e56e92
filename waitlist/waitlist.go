// Package waitlist stores waitlist sign-ups. Entries are created by an
// insert and read by the site; the only mutation is an admin status change.
package waitlist

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no entry matches.
	ErrNotFound = errors.New("waitlist: entry not found")
	// ErrAlreadyJoined is returned when the email is already on the list.
	ErrAlreadyJoined = errors.New("waitlist: email already joined")
	// ErrInvalidEmail is returned for addresses that do not parse.
	ErrInvalidEmail = errors.New("waitlist: invalid email address")
	// ErrInvalidStatus is returned for unknown status values.
	ErrInvalidStatus = errors.New("waitlist: invalid status")
)

// Status is the lifecycle state of an entry.
type Status string

const (
	StatusPending      Status = "pending"
	StatusConfirmed    Status = "confirmed"
	StatusInvited      Status = "invited"
	StatusUnsubscribed Status = "unsubscribed"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusInvited, StatusUnsubscribed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Entry is one sign-up.
type Entry struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Role      string    `json:"role"`
	Source    string    `json:"source"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListOptions selects a page of entries, newest first. An empty Status
// lists every status.
type ListOptions struct {
	Status Status
	Offset int
	Limit  int
}

// Repository is implemented by every storage backend.
type Repository interface {
	Create(ctx context.Context, e Entry) error
	GetByEmail(ctx context.Context, email string) (Entry, error)
	List(ctx context.Context, opts ListOptions) ([]Entry, int, error)
	SetStatus(ctx context.Context, id string, status Status, at time.Time) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Repository = (*SQLiteStore)(nil)
	_ Repository = (*PostgresStore)(nil)
	_ Repository = (*RemoteStore)(nil)
)
