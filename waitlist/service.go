package waitlist

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field limits applied by Join.
const (
	maxEmailLen = 254
	maxFieldLen = 120
)

// JoinRequest is the data submitted by the sign-up form.
type JoinRequest struct {
	Email   string `json:"email" form:"email"`
	Name    string `json:"name" form:"name"`
	Company string `json:"company" form:"company"`
	Role    string `json:"role" form:"role"`
	Source  string `json:"source" form:"source"`
}

// Service validates sign-ups and hands them to a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Repository returns the backing store.
func (s *Service) Repository() Repository {
	return s.repo
}

// Join adds a new pending entry. A repeated email returns the stored entry
// together with ErrAlreadyJoined.
func (s *Service) Join(ctx context.Context, req JoinRequest) (Entry, error) {
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return Entry{}, err
	}
	now := s.now().UTC()
	e := Entry{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      clip(req.Name),
		Company:   clip(req.Company),
		Role:      clip(req.Role),
		Source:    clip(req.Source),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		if errors.Is(err, ErrAlreadyJoined) {
			existing, gerr := s.repo.GetByEmail(ctx, email)
			if gerr != nil {
				return Entry{}, err
			}
			return existing, err
		}
		return Entry{}, fmt.Errorf("waitlist: create entry: %w", err)
	}
	return e, nil
}

// List returns a page of entries and the total matching count.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Entry, int, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return s.repo.List(ctx, opts)
}

// SetStatus moves an entry to status.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return s.repo.SetStatus(ctx, id, status, s.now().UTC())
}

// NormalizeEmail trims and lowercases addr and checks that it is a bare
// address.
func NormalizeEmail(addr string) (string, error) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" || len(addr) > maxEmailLen {
		return "", ErrInvalidEmail
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return "", ErrInvalidEmail
	}
	at := strings.LastIndexByte(addr, '@')
	if !strings.Contains(addr[at+1:], ".") {
		return "", ErrInvalidEmail
	}
	return addr, nil
}

// clip trims s and cuts it to maxFieldLen runes.
func clip(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxFieldLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxFieldLen])
}
