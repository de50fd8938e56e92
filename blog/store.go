package blog

import (
	"database/sql"
	"sort"
	"strings"

	"github.com/zerovacancy/zerovacancy-sub004/internal/sqlitedb"
)

// Store wraps a SQLite database holding posts, categories and authors.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	db, err := sqlitedb.Open(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    date TEXT NOT NULL,
    tags TEXT NOT NULL,
    summary TEXT NOT NULL,
    content TEXT NOT NULL,
    published INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS categories (
    slug TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS authors (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT '',
    avatar_url TEXT NOT NULL DEFAULT ''
);
`)
	if err != nil {
		return err
	}
	for _, col := range []string{
		`category TEXT NOT NULL DEFAULT ''`,
		`author_id TEXT NOT NULL DEFAULT ''`,
		`cover_image TEXT NOT NULL DEFAULT ''`,
	} {
		if err := s.addColumn("posts", col); err != nil {
			return err
		}
	}
	return nil
}

// addColumn adds a column, ignoring the error SQLite gives when it exists.
func (s *Store) addColumn(table, def string) error {
	if _, err := s.db.Exec(`ALTER TABLE ` + table + ` ADD COLUMN ` + def); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			return nil
		}
		return err
	}
	return nil
}

const postColumns = `slug, title, date, tags, summary, content, category, author_id, cover_image, published`

func scanPost(sc interface{ Scan(...any) error }) (Post, error) {
	var p Post
	var tags string
	var published int
	if err := sc.Scan(&p.Slug, &p.Title, &p.Date, &tags, &p.Summary, &p.Content, &p.Category, &p.AuthorID, &p.CoverImage, &published); err != nil {
		return Post{}, err
	}
	p.Tags = ParseTags(tags)
	p.Published = published == 1
	return p, nil
}

func (s *Store) queryPosts(query string, args ...any) ([]Post, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListPosts returns published posts ordered by date descending, narrowed
// by f.
func (s *Store) ListPosts(f ListFilter) ([]Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE published = 1`
	var args []any
	if f.Tag != "" {
		query += ` AND instr(lower(tags), ',' || ? || ',') > 0`
		args = append(args, normalizeTag(f.Tag))
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	return s.queryPosts(query+` ORDER BY date DESC, slug`, args...)
}

// ListAllPosts returns every post (published and drafts) ordered by date
// descending.
func (s *Store) ListAllPosts() ([]Post, error) {
	return s.queryPosts(`SELECT ` + postColumns + ` FROM posts ORDER BY date DESC, slug`)
}

// GetPost returns a single published post by slug.
func (s *Store) GetPost(slug string) (Post, error) {
	return scanPost(s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ? AND published = 1`, slug))
}

// GetPostAny returns a post by slug regardless of published status (for admin).
func (s *Store) GetPostAny(slug string) (Post, error) {
	return scanPost(s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug))
}

// SavePost upserts a post. Tags are normalized to lowercase.
func (s *Store) SavePost(p Post) error {
	normalized := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		if t = normalizeTag(t); t != "" {
			normalized = append(normalized, t)
		}
	}
	tagString := "," + strings.Join(normalized, ",") + ","
	published := 0
	if p.Published {
		published = 1
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Title, p.Date, tagString, p.Summary, p.Content, p.Category, p.AuthorID, p.CoverImage, published)
	return err
}

// DeletePost removes a post by slug.
func (s *Store) DeletePost(slug string) error {
	_, err := s.db.Exec(`DELETE FROM posts WHERE slug = ?`, slug)
	return err
}

// ListTags returns a sorted, deduplicated slice of all tags from published posts.
func (s *Store) ListTags() ([]string, error) {
	rows, err := s.db.Query(`SELECT tags FROM posts WHERE published = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, err
		}
		for _, t := range ParseTags(tags) {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result := make([]string, 0, len(set))
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}

// ListCategories returns every category with its published post count,
// ordered by name.
func (s *Store) ListCategories() ([]Category, error) {
	rows, err := s.db.Query(`
SELECT c.slug, c.name, c.description, COUNT(p.slug)
FROM categories c
LEFT JOIN posts p ON p.category = c.slug AND p.published = 1
GROUP BY c.slug, c.name, c.description
ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.Slug, &c.Name, &c.Description, &c.Count); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// SaveCategory upserts a category.
func (s *Store) SaveCategory(c Category) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO categories (slug, name, description) VALUES (?, ?, ?)`,
		c.Slug, c.Name, c.Description)
	return err
}

// ListAuthors returns every author ordered by name.
func (s *Store) ListAuthors() ([]Author, error) {
	rows, err := s.db.Query(`SELECT id, name, role, avatar_url FROM authors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []Author
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Role, &a.AvatarURL); err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// SaveAuthor upserts an author.
func (s *Store) SaveAuthor(a Author) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO authors (id, name, role, avatar_url) VALUES (?, ?, ?, ?)`,
		a.ID, a.Name, a.Role, a.AvatarURL)
	return err
}

// SearchPosts matches published posts whose title, summary or content
// contains q, case-insensitively.
func (s *Store) SearchPosts(q string, limit int) ([]Post, error) {
	like := "%" + escapeLike(strings.ToLower(strings.TrimSpace(q))) + "%"
	return s.queryPosts(`SELECT `+postColumns+` FROM posts
WHERE published = 1 AND (lower(title) LIKE ? ESCAPE '\' OR lower(summary) LIKE ? ESCAPE '\' OR lower(content) LIKE ? ESCAPE '\')
ORDER BY date DESC LIMIT ?`, like, like, like, limit)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
