package zerovacancy

import (
	"time"

	"github.com/zerovacancy/zerovacancy-sub004/blog"
	"github.com/zerovacancy/zerovacancy-sub004/ratelimit"
	"github.com/zerovacancy/zerovacancy-sub004/runtimeconfig"
	"github.com/zerovacancy/zerovacancy-sub004/waitlist"
)

// SiteConfig holds all configuration for the site.
type SiteConfig struct {
	Name        string // Site name (default "ZeroVacancy")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Fallback author name for JSON-LD

	Addr     string // Listen address (default ":3000")
	LogLevel string // debug, info, warn, error, off (default "info")

	DatabasePath         string // Blog SQLite path (default "data/blog.db")
	WaitlistDatabasePath string // Waitlist SQLite path when no other backend is set (default "data/waitlist.db")

	EngagementEnabled      bool   // Record page views and scroll depth
	EngagementDatabasePath string // Engagement SQLite path (default "data/engagement.db")
	EngagementRetention    int    // Days of engagement data kept (default 365)

	AdminPassword     string // Plain admin password, compared in constant time
	AdminPasswordHash string // bcrypt hash, preferred over AdminPassword when set
	SessionSecret     string // Required: session encryption secret
	CookieSecure      bool   // Set true for HTTPS

	PostCacheTTL          time.Duration // Post cache TTL (default 5min)
	PostsPerPage          int           // Blog index page size (default 9)
	AssetsOptimizeTimeout time.Duration // Bound on asset pre-bundling (default 60s)

	SignupsPerHour int // Waitlist sign-ups allowed per IP per hour (default 10)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "ZeroVacancy"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.WaitlistDatabasePath == "" {
		c.WaitlistDatabasePath = "data/waitlist.db"
	}
	if c.EngagementDatabasePath == "" {
		c.EngagementDatabasePath = "data/engagement.db"
	}
	if c.EngagementRetention <= 0 {
		c.EngagementRetention = 365
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.PostsPerPage <= 0 {
		c.PostsPerPage = 9
	}
	if c.AssetsOptimizeTimeout <= 0 {
		c.AssetsOptimizeTimeout = 60 * time.Second
	}
	if c.SignupsPerHour <= 0 {
		c.SignupsPerHour = 10
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithStaticDir sets the directory for static files and uploads (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithWaitlistRepository replaces the default SQLite waitlist store.
func WithWaitlistRepository(repo waitlist.Repository) Option {
	return func(a *App) {
		a.waitlistRepo = repo
	}
}

// WithSearcher replaces the default SQL blog search.
func WithSearcher(s blog.Searcher) Option {
	return func(a *App) {
		a.Search = s
	}
}

// WithSignupLimiter replaces the in-memory waitlist sign-up limiter, for
// example with a Redis limiter shared between instances.
func WithSignupLimiter(l ratelimit.Limiter) Option {
	return func(a *App) {
		a.signupLimiter = l
	}
}

// WithRuntimeConfig sets the resolved browser configuration. Without it
// the process-wide runtimeconfig.Current is used.
func WithRuntimeConfig(r runtimeconfig.Resolution) Option {
	return func(a *App) {
		a.runtime = r
		a.runtimeSet = true
	}
}
