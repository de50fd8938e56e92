package blog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Searcher finds published posts matching a free-text query. Implementations
// return slugs ordered by relevance.
type Searcher interface {
	Index(ctx context.Context, p Post) error
	Remove(ctx context.Context, slug string) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// SQLSearcher searches with LIKE over the post store. Indexing is a no-op
// because it reads the posts table directly.
type SQLSearcher struct {
	store *Store
}

// NewSQLSearcher returns a Searcher backed by store.
func NewSQLSearcher(store *Store) *SQLSearcher {
	return &SQLSearcher{store: store}
}

func (s *SQLSearcher) Index(context.Context, Post) error     { return nil }
func (s *SQLSearcher) Remove(context.Context, string) error { return nil }

// Search returns the slugs of posts whose text contains query.
func (s *SQLSearcher) Search(_ context.Context, query string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	posts, err := s.store.SearchPosts(query, limit)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, len(posts))
	for i, p := range posts {
		slugs[i] = p.Slug
	}
	return slugs, nil
}

// DefaultIndex is the Elasticsearch index used when none is configured.
const DefaultIndex = "zerovacancy-posts"

// ElasticSearcher indexes published posts in Elasticsearch and searches
// them with a multi_match query.
type ElasticSearcher struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticSearcher connects to the given addresses. An empty index uses
// DefaultIndex.
func NewElasticSearcher(addresses []string, index string) (*ElasticSearcher, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticSearcher{client: client, index: index}, nil
}

// CreateIndex creates the index with its mapping. An existing index is
// left alone.
func (es *ElasticSearcher) CreateIndex(ctx context.Context) error {
	mapping := `{
		"mappings": {
			"properties": {
				"slug": {"type": "keyword"},
				"title": {"type": "text"},
				"summary": {"type": "text"},
				"content": {"type": "text"},
				"tags": {"type": "keyword"},
				"category": {"type": "keyword"},
				"date": {"type": "date", "format": "yyyy-MM-dd"}
			}
		}
	}`
	req := esapi.IndicesCreateRequest{
		Index: es.index,
		Body:  strings.NewReader(mapping),
	}
	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("create index: %s", res.String())
	}
	return nil
}

// Ping checks the cluster is reachable.
func (es *ElasticSearcher) Ping(ctx context.Context) error {
	res, err := es.client.Ping(es.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return nil
}

type esDoc struct {
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
	Date     string   `json:"date"`
}

// Index stores p. Drafts are removed from the index instead.
func (es *ElasticSearcher) Index(ctx context.Context, p Post) error {
	if !p.Published {
		return es.Remove(ctx, p.Slug)
	}
	body, err := json.Marshal(esDoc{
		Slug:     p.Slug,
		Title:    p.Title,
		Summary:  p.Summary,
		Content:  p.Content,
		Tags:     p.Tags,
		Category: p.Category,
		Date:     p.Date,
	})
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      es.index,
		DocumentID: p.Slug,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("index %s: %w", p.Slug, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index %s: %s", p.Slug, res.String())
	}
	return nil
}

// Remove deletes the document for slug. A missing document is not an error.
func (es *ElasticSearcher) Remove(ctx context.Context, slug string) error {
	req := esapi.DeleteRequest{Index: es.index, DocumentID: slug, Refresh: "true"}
	res, err := req.Do(ctx, es.client)
	if err != nil {
		return fmt.Errorf("delete %s: %w", slug, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete %s: %s", slug, res.String())
	}
	return nil
}

type esSearchResult struct {
	Hits struct {
		Hits []struct {
			Source esDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a multi_match query over title, summary, content and tags.
func (es *ElasticSearcher) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	q := map[string]any{
		"size": limit,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^3", "summary^2", "content", "tags"},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	res, err := es.client.Search(
		es.client.Search.WithContext(ctx),
		es.client.Search.WithIndex(es.index),
		es.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.String())
	}
	var result esSearchResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	slugs := make([]string, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		slugs = append(slugs, h.Source.Slug)
	}
	return slugs, nil
}

// Reindex indexes every post in posts, stopping at the first failure.
func Reindex(ctx context.Context, s Searcher, posts []Post) error {
	for _, p := range posts {
		if err := s.Index(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
