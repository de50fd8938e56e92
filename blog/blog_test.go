package blog

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "blog.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	posts := []Post{
		{Slug: "first-lease", Title: "Signing Your First Lease", Date: "2024-01-10", Tags: []string{"Renting", "Guides"}, Summary: "What to check", Content: "Deposit and inventory.", Category: "renters", AuthorID: "a1", Published: true},
		{Slug: "vacancy-costs", Title: "The Real Cost of Vacancy", Date: "2024-03-02", Tags: []string{"landlords"}, Summary: "Empty units cost money", Content: "Every idle day adds up.", Category: "owners", AuthorID: "a2", Published: true},
		{Slug: "draft-post", Title: "Unfinished", Date: "2024-04-01", Tags: []string{"renting"}, Summary: "wip", Content: "wip", Category: "renters"},
	}
	for _, p := range posts {
		if err := s.SavePost(p); err != nil {
			t.Fatalf("SavePost(%s): %v", p.Slug, err)
		}
	}
	for _, c := range []Category{
		{Slug: "renters", Name: "Renters", Description: "For tenants"},
		{Slug: "owners", Name: "Owners"},
		{Slug: "empty", Name: "Empty"},
	} {
		if err := s.SaveCategory(c); err != nil {
			t.Fatalf("SaveCategory: %v", err)
		}
	}
	for _, a := range []Author{{ID: "a1", Name: "Dana Reyes", Role: "Editor"}, {ID: "a2", Name: "Sam Ortiz"}} {
		if err := s.SaveAuthor(a); err != nil {
			t.Fatalf("SaveAuthor: %v", err)
		}
	}
}

func TestSaveAndGetPost(t *testing.T) {
	s := setupTestStore(t)
	seed(t, s)

	got, err := s.GetPost("first-lease")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "Signing Your First Lease" || got.Category != "renters" || got.AuthorID != "a1" {
		t.Errorf("unexpected post: %+v", got)
	}
	if want := []string{"renting", "guides"}; !reflect.DeepEqual(got.Tags, want) {
		t.Errorf("Tags = %v, want %v", got.Tags, want)
	}
	if !got.Published {
		t.Error("Published should be true")
	}
}

func TestGetPostHidesDrafts(t *testing.T) {
	s := setupTestStore(t)
	seed(t, s)

	if _, err := s.GetPost("draft-post"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPost(draft) error = %v, want ErrNotFound", err)
	}
	p, err := s.GetPostAny("draft-post")
	if err != nil {
		t.Fatalf("GetPostAny failed: %v", err)
	}
	if p.Published {
		t.Error("draft should not be published")
	}
}

func TestListPostsFilters(t *testing.T) {
	s := setupTestStore(t)
	seed(t, s)

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"all published newest first", ListFilter{}, []string{"vacancy-costs", "first-lease"}},
		{"tag is case-insensitive", ListFilter{Tag: "RENTING"}, []string{"first-lease"}},
		{"category", ListFilter{Category: "owners"}, []string{"vacancy-costs"}},
		{"tag and category", ListFilter{Tag: "guides", Category: "owners"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := s.ListPosts(tt.filter)
			if err != nil {
				t.Fatalf("ListPosts: %v", err)
			}
			var slugs []string
			for _, p := range posts {
				slugs = append(slugs, p.Slug)
			}
			if !reflect.DeepEqual(slugs, tt.want) {
				t.Errorf("slugs = %v, want %v", slugs, tt.want)
			}
		})
	}

	all, err := s.ListAllPosts()
	if err != nil {
		t.Fatalf("ListAllPosts: %v", err)
	}
	if len(all) != 3 || all[0].Slug != "draft-post" {
		t.Errorf("ListAllPosts = %d posts, first %q", len(all), all[0].Slug)
	}
}

func TestListCategoriesCountsPublished(t *testing.T) {
	s := setupTestStore(t)
	seed(t, s)

	cats, err := s.ListCategories()
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	counts := map[string]int{}
	for _, c := range cats {
		counts[c.Slug] = c.Count
	}
	want := map[string]int{"renters": 1, "owners": 1, "empty": 0}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("counts = %v, want %v", counts, want)
	}
}

func TestListTagsAndDelete(t *testing.T) {
	s := setupTestStore(t)
	seed(t, s)

	tags, err := s.ListTags()
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if want := []string{"guides", "landlords", "renting"}; !reflect.DeepEqual(tags, want) {
		t.Errorf("tags = %v, want %v", tags, want)
	}

	if err := s.DeletePost("first-lease"); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := s.GetPostAny("first-lease"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted post still present: %v", err)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blog.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.SavePost(Post{Slug: "x", Title: "X", Date: "2024-01-01", CoverImage: "x.jpg", Published: true}); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	s.Close()

	s, err = NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	p, err := s.GetPost("x")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if p.CoverImage != "x.jpg" {
		t.Errorf("CoverImage = %q", p.CoverImage)
	}
}

func TestSQLSearcher(t *testing.T) {
	s := setupTestStore(t)
	seed(t, s)
	search := NewSQLSearcher(s)
	ctx := context.Background()

	slugs, err := search.Search(ctx, "IDLE day", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if want := []string{"vacancy-costs"}; !reflect.DeepEqual(slugs, want) {
		t.Errorf("slugs = %v, want %v", slugs, want)
	}

	slugs, err = search.Search(ctx, "wip", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(slugs) != 0 {
		t.Errorf("drafts must not be searchable, got %v", slugs)
	}

	slugs, err = search.Search(ctx, "100%", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(slugs) != 0 {
		t.Errorf("wildcards should be escaped, got %v", slugs)
	}

	if slugs, _ := search.Search(ctx, "  ", 10); slugs != nil {
		t.Errorf("blank query returned %v", slugs)
	}
}

func TestElasticSearcher(t *testing.T) {
	url := os.Getenv("ELASTICSEARCH_URL")
	if url == "" {
		t.Skip("ELASTICSEARCH_URL not set")
	}
	ctx := context.Background()
	es, err := NewElasticSearcher([]string{url}, "test-posts-"+time.Now().Format("150405"))
	if err != nil {
		t.Fatalf("NewElasticSearcher: %v", err)
	}
	if err := es.CreateIndex(ctx); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	p := Post{Slug: "es-post", Title: "Vacancy heatmap", Date: "2024-05-05", Content: "city rents", Published: true}
	if err := es.Index(ctx, p); err != nil {
		t.Fatalf("Index: %v", err)
	}
	slugs, err := es.Search(ctx, "heatmap", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(slugs) != 1 || slugs[0] != "es-post" {
		t.Errorf("slugs = %v", slugs)
	}
	if err := es.Remove(ctx, "es-post"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := es.Remove(ctx, "es-post"); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
}

type countingSource struct {
	*Store
	loads int
}

func (c *countingSource) ListPosts(f ListFilter) ([]Post, error) {
	c.loads++
	return c.Store.ListPosts(f)
}

func TestPostCache(t *testing.T) {
	s := setupTestStore(t)
	seed(t, s)
	src := &countingSource{Store: s}
	cache := NewPostCache(src, time.Minute)

	posts, err := cache.ListPosts(ListFilter{})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(posts))
	}
	filtered, _ := cache.ListPosts(ListFilter{Tag: "Guides", Category: "renters"})
	if len(filtered) != 1 || filtered[0].Slug != "first-lease" {
		t.Errorf("filtered = %+v", filtered)
	}
	if _, err := cache.GetPost("draft-post"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPost(draft) = %v, want ErrNotFound", err)
	}
	if a, ok := cache.Author("a1"); !ok || a.Name != "Dana Reyes" {
		t.Errorf("Author(a1) = %+v, %v", a, ok)
	}
	if _, ok := cache.Author("nobody"); ok {
		t.Error("unknown author should not be found")
	}
	if c, err := cache.GetCategory("owners"); err != nil || c.Count != 1 {
		t.Errorf("GetCategory = %+v, %v", c, err)
	}
	if src.loads != 1 {
		t.Errorf("loads = %d, want 1 while cache is fresh", src.loads)
	}

	cache.Invalidate()
	if _, err := cache.ListTags(); err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if src.loads != 2 {
		t.Errorf("loads = %d, want 2 after Invalidate", src.loads)
	}
}

func TestPostCacheExpires(t *testing.T) {
	s := setupTestStore(t)
	src := &countingSource{Store: s}
	cache := NewPostCache(src, 10*time.Millisecond)

	if posts, err := cache.ListPosts(ListFilter{}); err != nil || posts == nil {
		t.Fatalf("empty store should yield an empty slice, got %v, %v", posts, err)
	}
	time.Sleep(20 * time.Millisecond)
	cache.ListPosts(ListFilter{})
	if src.loads != 2 {
		t.Errorf("loads = %d, want 2 after TTL", src.loads)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":             "hello-world",
		"  Rent & Deposits 2024 ": "rent-deposits-2024",
		"---":                     "",
		"Café":                    "caf",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitTags(t *testing.T) {
	got := SplitTags(" Go, ,Web ,")
	if want := []string{"go", "web"}; !reflect.DeepEqual(got, want) {
		t.Errorf("SplitTags = %v, want %v", got, want)
	}
}

func TestRelatedPosts(t *testing.T) {
	current := Post{Slug: "a", Tags: []string{"go"}, Category: "c1"}
	posts := []Post{
		current,
		{Slug: "b", Tags: []string{"GO"}},
		{Slug: "c", Category: "c1"},
		{Slug: "d", Tags: []string{"rust"}},
	}
	got := RelatedPosts(current, posts, 0)
	if len(got) != 2 || got[0].Slug != "b" || got[1].Slug != "c" {
		t.Errorf("RelatedPosts = %+v", got)
	}
	if got := RelatedPosts(current, posts, 1); len(got) != 1 {
		t.Errorf("limit ignored: %d", len(got))
	}
}

func encodePNG(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return &buf
}

func TestProcessCoverScalesWideImages(t *testing.T) {
	c, err := ProcessCover(encodePNG(t, 2400, 600), "My Post")
	if err != nil {
		t.Fatalf("ProcessCover: %v", err)
	}
	if c.Width != CoverWidth || c.Height != 300 {
		t.Errorf("size = %dx%d, want %dx300", c.Width, c.Height, CoverWidth)
	}
	if c.Filename != "my-post-cover.jpg" {
		t.Errorf("Filename = %q", c.Filename)
	}

	small, err := ProcessCover(encodePNG(t, 300, 200), "")
	if err != nil {
		t.Fatalf("ProcessCover: %v", err)
	}
	if small.Width != 300 || small.Height != 200 || small.Filename != "cover-cover.jpg" {
		t.Errorf("small = %dx%d %q", small.Width, small.Height, small.Filename)
	}

	if _, err := ProcessCover(bytes.NewReader([]byte("not an image")), "x"); err == nil {
		t.Error("expected decode error")
	}
}

func TestSaveCoverAvoidsCollisions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	c := Cover{Filename: "post-cover.jpg", Data: []byte("jpeg")}

	first, err := SaveCover(dir, c)
	if err != nil {
		t.Fatalf("SaveCover: %v", err)
	}
	second, err := SaveCover(dir, c)
	if err != nil {
		t.Fatalf("SaveCover: %v", err)
	}
	if first != "post-cover.jpg" || second != "post-cover-2.jpg" {
		t.Errorf("names = %q, %q", first, second)
	}
	if _, err := os.Stat(filepath.Join(dir, second)); err != nil {
		t.Errorf("second file missing: %v", err)
	}
}
