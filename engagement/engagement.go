// Package engagement records privacy-first page views and scroll depth.
// Visitors are identified by a salted hash of IP and User-Agent; raw IPs
// are never stored.
package engagement

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/zerovacancy/zerovacancy-sub004/viewport"
)

const saltKey = "hash_salt"

// Event kinds carried by a Beacon.
const (
	EventView   = "view"
	EventScroll = "scroll"
)

// Beacon is the payload sent by the embedded engagement script.
type Beacon struct {
	Event          string  `json:"event"`
	Path           string  `json:"path"`
	ScrollTop      float64 `json:"scroll_top"`
	DocumentHeight float64 `json:"document_height"`
	ViewportHeight float64 `json:"viewport_height"`
	Screen         string  `json:"screen"`
}

// Input validation limits for beacons.
const (
	maxPathLen   = 2048
	maxScreenLen = 32
	maxExtent    = 1e7
)

// Validate checks field lengths and value ranges and fills defaults.
func (b *Beacon) Validate() error {
	if b.Event == "" {
		b.Event = EventView
	}
	if b.Event != EventView && b.Event != EventScroll {
		return fmt.Errorf("unknown event %q", b.Event)
	}
	if b.Path == "" || !strings.HasPrefix(b.Path, "/") {
		return fmt.Errorf("path must be absolute")
	}
	if len(b.Path) > maxPathLen {
		return fmt.Errorf("path exceeds maximum length of %d", maxPathLen)
	}
	if len(b.Screen) > maxScreenLen {
		return fmt.Errorf("screen exceeds maximum length of %d", maxScreenLen)
	}
	for _, v := range []float64{b.ScrollTop, b.DocumentHeight, b.ViewportHeight} {
		if math.IsNaN(v) || v < 0 || v > maxExtent {
			return fmt.Errorf("scroll metrics out of range")
		}
	}
	return nil
}

// Depth is the scroll progress the beacon reports, 0..100.
func (b Beacon) Depth() float64 {
	return viewport.ScrollProgress(b.ScrollTop, b.DocumentHeight, b.ViewportHeight)
}

// View is one stored (visitor, path, day) row.
type View struct {
	VisitorID string
	Path      string
	Day       string // YYYY-MM-DD, UTC
	Device    string
	Screen    string
	MaxDepth  float64
	Views     int
	LastSeen  time.Time
}

// Summary aggregates engagement over a period for the admin dashboard.
type Summary struct {
	From           time.Time  `json:"from"`
	To             time.Time  `json:"to"`
	Views          int        `json:"views"`
	UniqueVisitors int        `json:"unique_visitors"`
	MobileShare    float64    `json:"mobile_share"` // percent of views from mobile devices
	AvgDepth       float64    `json:"avg_depth"`
	TopPages       []PageStat `json:"top_pages"`
}

// PageStat is per-path engagement.
type PageStat struct {
	Path     string  `json:"path"`
	Views    int     `json:"views"`
	AvgDepth float64 `json:"avg_depth"`
}

// Hasher derives anonymous identifiers from a per-installation salt.
type Hasher struct {
	salt string
}

// LoadHasher reads the persisted salt from store, generating and saving a
// new random one on first use.
func LoadHasher(store *Store) (*Hasher, error) {
	s, err := store.GetSetting(saltKey)
	if err != nil {
		return nil, fmt.Errorf("read hash salt: %w", err)
	}
	if s == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		s = hex.EncodeToString(b)
		if err := store.SetSetting(saltKey, s); err != nil {
			return nil, fmt.Errorf("store hash salt: %w", err)
		}
	}
	return &Hasher{salt: s}, nil
}

// VisitorID creates a salted visitor ID from IP and User-Agent.
func (h *Hasher) VisitorID(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(h.salt + ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])[:16]
}

var botTokens = []string{
	"bot", "crawler", "spider", "crawl", "slurp", "scrape",
	"facebookexternalhit", "headlesschrome", "lighthouse",
	"curl/", "wget/", "python-requests",
}

// IsBot checks if the User-Agent is likely a bot or crawler. An empty
// User-Agent counts as a bot.
func IsBot(ua string) bool {
	ua = strings.ToLower(strings.TrimSpace(ua))
	if ua == "" {
		return true
	}
	for _, tok := range botTokens {
		if strings.Contains(ua, tok) {
			return true
		}
	}
	return false
}

// Day formats t as the UTC day key used for storage.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
