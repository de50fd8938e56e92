// Package api defines the JSON response envelope used by every /api route.
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Paging limits.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Response is the envelope wrapping every API payload.
type Response struct {
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Page is a requested page. Page numbers start at 1.
type Page struct {
	Number  int
	PerPage int
}

// Offset is the number of items before this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// PageFromQuery reads page and per_page query parameters. Missing or
// malformed values fall back to page 1 and DefaultPerPage; page is raised
// to at least 1 and per_page clamped to 1..MaxPerPage.
func PageFromQuery(c echo.Context) Page {
	return NewPage(atoi(c.QueryParam("page"), 1), atoi(c.QueryParam("per_page"), DefaultPerPage))
}

// NewPage clamps number and perPage to valid values.
func NewPage(number, perPage int) Page {
	if number < 1 {
		number = 1
	}
	switch {
	case perPage < 1:
		perPage = 1
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	return Page{Number: number, PerPage: perPage}
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Paginate computes the pagination counters for total items.
func Paginate(p Page, total int) *Pagination {
	pages := 0
	if total > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return &Pagination{
		Page:       p.Number,
		PerPage:    p.PerPage,
		Total:      total,
		TotalPages: pages,
		HasNext:    p.Number < pages,
		HasPrev:    p.Number > 1,
	}
}

// Slice returns the window of items for page p.
func Slice[T any](items []T, p Page) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// Success writes a success envelope.
func Success(c echo.Context, code int, data any) error {
	return c.JSON(code, Response{Status: StatusSuccess, Data: data})
}

// Paged writes a success envelope with pagination counters.
func Paged(c echo.Context, data any, p Page, total int) error {
	return c.JSON(http.StatusOK, Response{Status: StatusSuccess, Data: data, Pagination: Paginate(p, total)})
}

// Fail writes an error envelope.
func Fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, Response{Status: StatusError, Error: msg})
}
