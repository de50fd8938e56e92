package blog

import (
	"sync"
	"time"
)

// Source is the read side of Store that PostCache loads from.
type Source interface {
	ListPosts(f ListFilter) ([]Post, error)
	ListTags() ([]string, error)
	ListCategories() ([]Category, error)
	ListAuthors() ([]Author, error)
}

type snapshot struct {
	posts      []Post
	tags       []string
	categories []Category
	authors    map[string]Author
}

// PostCache is an in-memory cache of published posts, tags, categories and
// authors with a TTL.
type PostCache struct {
	mu      sync.RWMutex
	snap    *snapshot
	fetched time.Time
	ttl     time.Duration
	src     Source
}

// NewPostCache creates a PostCache backed by src.
func NewPostCache(src Source, ttl time.Duration) *PostCache {
	return &PostCache{src: src, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.snap != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

func (c *PostCache) load() error {
	if c.valid() {
		return nil
	}
	posts, err := c.src.ListPosts(ListFilter{})
	if err != nil {
		return err
	}
	tags, err := c.src.ListTags()
	if err != nil {
		return err
	}
	cats, err := c.src.ListCategories()
	if err != nil {
		return err
	}
	authors, err := c.src.ListAuthors()
	if err != nil {
		return err
	}
	byID := make(map[string]Author, len(authors))
	for _, a := range authors {
		byID[a.ID] = a
	}
	if posts == nil {
		posts = []Post{}
	}
	c.snap = &snapshot{posts: posts, tags: tags, categories: cats, authors: byID}
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns the cached snapshot, reloading under the write lock
// only when it has expired.
func (c *PostCache) ensureLoaded() (*snapshot, error) {
	c.mu.RLock()
	if c.valid() {
		s := c.snap
		c.mu.RUnlock()
		return s, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, err
	}
	return c.snap, nil
}

// ListPosts returns published posts narrowed by f.
func (c *PostCache) ListPosts(f ListFilter) ([]Post, error) {
	s, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	if f.Tag == "" && f.Category == "" {
		return s.posts, nil
	}
	tag := normalizeTag(f.Tag)
	var filtered []Post
	for _, p := range s.posts {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if tag != "" && !hasTag(p, tag) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

func hasTag(p Post, tag string) bool {
	for _, t := range p.Tags {
		if normalizeTag(t) == tag {
			return true
		}
	}
	return false
}

// ListTags returns all unique tags from published posts.
func (c *PostCache) ListTags() ([]string, error) {
	s, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return s.tags, nil
}

// ListCategories returns categories with their published post counts.
func (c *PostCache) ListCategories() ([]Category, error) {
	s, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return s.categories, nil
}

// GetCategory returns a category by slug.
func (c *PostCache) GetCategory(slug string) (Category, error) {
	s, err := c.ensureLoaded()
	if err != nil {
		return Category{}, err
	}
	for _, cat := range s.categories {
		if cat.Slug == slug {
			return cat, nil
		}
	}
	return Category{}, ErrNotFound
}

// Author returns the author with id, or false if unknown.
func (c *PostCache) Author(id string) (Author, bool) {
	s, err := c.ensureLoaded()
	if err != nil {
		return Author{}, false
	}
	a, ok := s.authors[id]
	return a, ok
}

// GetPost returns a single published post by slug from the cache.
func (c *PostCache) GetPost(slug string) (Post, error) {
	s, err := c.ensureLoaded()
	if err != nil {
		return Post{}, err
	}
	for _, p := range s.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}
