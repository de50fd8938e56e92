// Package blog stores and serves the site's blog: posts, categories and
// authors in SQLite, a TTL read cache, search, and cover images.
package blog

import (
	"database/sql"
	"strings"
)

// ErrNotFound is returned when a requested post, category or author does
// not exist.
var ErrNotFound = sql.ErrNoRows

// Post is the core content type.
type Post struct {
	Slug       string
	Title      string
	Date       string // YYYY-MM-DD
	Tags       []string
	Summary    string
	Content    string
	Category   string // category slug, may be empty
	AuthorID   string
	CoverImage string // file name under the uploads directory
	Published  bool
}

// Link is the canonical path of the post.
func (p Post) Link() string {
	return "/blog/" + p.Slug + "/"
}

// Category groups posts. Count is the number of published posts.
type Category struct {
	Slug        string
	Name        string
	Description string
	Count       int
}

// Author is shown in post bylines.
type Author struct {
	ID        string
	Name      string
	Role      string
	AvatarURL string
}

// ListFilter narrows a published-post listing. Empty fields match all.
type ListFilter struct {
	Tag      string
	Category string
}

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// ParseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// SplitTags parses a comma-separated form value, dropping empty entries.
func SplitTags(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if t := normalizeTag(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// RelatedPosts returns posts sharing a tag or the category with current.
func RelatedPosts(current Post, posts []Post, limit int) []Post {
	tagSet := make(map[string]struct{})
	for _, t := range current.Tags {
		if tag := normalizeTag(t); tag != "" {
			tagSet[tag] = struct{}{}
		}
	}
	var related []Post
	for _, p := range posts {
		if p.Slug == current.Slug {
			continue
		}
		match := current.Category != "" && p.Category == current.Category
		for _, t := range p.Tags {
			if _, ok := tagSet[normalizeTag(t)]; ok {
				match = true
				break
			}
		}
		if match {
			related = append(related, p)
			if limit > 0 && len(related) == limit {
				break
			}
		}
	}
	return related
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
