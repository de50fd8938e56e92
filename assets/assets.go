// Package assets serves the site's embedded browser scripts and
// pre-compresses a configured set of them at startup.
package assets

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"path"
	"sort"
	"sync"
	"time"
)

//go:embed js/*.js
var embedded embed.FS

// DefaultOptimizeTimeout bounds Prebundle when Bundle.OptimizeTimeout is zero.
const DefaultOptimizeTimeout = 60 * time.Second

// Bundle lists the assets to pre-process eagerly at startup and how long
// that may take.
type Bundle struct {
	Include         []string
	OptimizeTimeout time.Duration
}

// Asset is one servable file.
type Asset struct {
	Name        string
	ContentType string
	Body        []byte
	ETag        string
	Gzip        []byte // nil until bundled
}

// Server holds the embedded assets.
type Server struct {
	mu       sync.RWMutex
	assets   map[string]*Asset
	compress func([]byte) ([]byte, error)
}

// New loads every embedded script.
func New() (*Server, error) {
	return newFromFS(embedded, "js")
}

func newFromFS(fsys fs.FS, dir string) (*Server, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read assets: %w", err)
	}
	s := &Server{assets: make(map[string]*Asset, len(entries)), compress: gzipBytes}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		body, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		ct := mime.TypeByExtension(path.Ext(e.Name()))
		if ct == "" {
			ct = "application/octet-stream"
		}
		sum := sha256.Sum256(body)
		s.assets[e.Name()] = &Asset{
			Name:        e.Name(),
			ContentType: ct,
			Body:        body,
			ETag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		}
	}
	return s, nil
}

// Names returns the asset names in sorted order.
func (s *Server) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.assets))
	for n := range s.assets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a copy of the named asset.
func (s *Server) Lookup(name string) (Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[name]
	if !ok {
		return Asset{}, false
	}
	return *a, true
}

// DefaultBundle includes every embedded asset with the default timeout.
func (s *Server) DefaultBundle() Bundle {
	return Bundle{Include: s.Names(), OptimizeTimeout: DefaultOptimizeTimeout}
}

type result struct {
	name string
	gz   []byte
	err  error
}

// Prebundle compresses every asset in b.Include concurrently. Work not
// finished within the timeout is abandoned and those assets keep being
// served uncompressed. It returns the names that were bundled and fails
// only for names that do not exist.
func (s *Server) Prebundle(ctx context.Context, b Bundle) ([]string, error) {
	timeout := b.OptimizeTimeout
	if timeout <= 0 {
		timeout = DefaultOptimizeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.mu.RLock()
	bodies := make(map[string][]byte, len(b.Include))
	for _, name := range b.Include {
		a, ok := s.assets[name]
		if !ok {
			s.mu.RUnlock()
			return nil, fmt.Errorf("prebundle: unknown asset %q", name)
		}
		bodies[name] = a.Body
	}
	s.mu.RUnlock()

	results := make(chan result, len(bodies))
	for name, body := range bodies {
		go func(name string, body []byte) {
			gz, err := s.compress(body)
			results <- result{name: name, gz: gz, err: err}
		}(name, body)
	}

	var done []string
	for range bodies {
		select {
		case <-ctx.Done():
			sort.Strings(done)
			return done, nil
		case r := <-results:
			if r.err != nil {
				continue
			}
			s.mu.Lock()
			s.assets[r.name].Gzip = r.gz
			s.mu.Unlock()
			done = append(done, r.name)
		}
	}
	sort.Strings(done)
	return done, nil
}

func gzipBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
