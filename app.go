// Package zerovacancy is the ZeroVacancy marketing site: landing and
// pricing pages, a waitlist, a blog, privacy-first engagement tracking and
// a small admin dashboard, built with Echo and templ.
package zerovacancy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/zerovacancy/zerovacancy-sub004/assets"
	"github.com/zerovacancy/zerovacancy-sub004/blog"
	"github.com/zerovacancy/zerovacancy-sub004/engagement"
	"github.com/zerovacancy/zerovacancy-sub004/health"
	"github.com/zerovacancy/zerovacancy-sub004/ratelimit"
	"github.com/zerovacancy/zerovacancy-sub004/runtimeconfig"
	"github.com/zerovacancy/zerovacancy-sub004/views"
	"github.com/zerovacancy/zerovacancy-sub004/waitlist"
)

// App wires together the stores, caches, handlers, middleware and views.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo

	Blog       *blog.Store
	Cache      *blog.PostCache
	Search     blog.Searcher
	Waitlist   *waitlist.Service
	Engagement *engagement.Handler
	Assets     *assets.Server

	waitlistRepo    waitlist.Repository
	engagementStore *engagement.Store
	loginLimiter    *ratelimit.Memory
	signupLimiter   ratelimit.Limiter
	ownedLimiters   []*ratelimit.Memory
	runtime         runtimeconfig.Resolution
	runtimeSet      bool
	staticDir       string

	initOnce sync.Once
	initErr  error
	stop     chan struct{}
}

// New creates an App with the given configuration. Call Init (or Start)
// before serving.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(parseLevel(cfg.LogLevel))

	a := &App{
		Config:    cfg,
		Echo:      e,
		staticDir: "public",
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func parseLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

// Init opens the stores and registers middleware and routes. Only the
// first call does any work.
func (a *App) Init() error {
	a.initOnce.Do(func() {
		a.initErr = a.init()
	})
	return a.initErr
}

func (a *App) init() error {
	if a.Config.AdminPassword == "" && a.Config.AdminPasswordHash == "" {
		return fmt.Errorf("zerovacancy: AdminPassword or AdminPasswordHash is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("zerovacancy: SessionSecret is required")
	}
	if !a.runtimeSet {
		a.runtime = runtimeconfig.Init(runtimeconfig.Values{}, a.Echo.Logger)
	}

	store, err := blog.NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("zerovacancy: init blog store: %w", err)
	}
	a.Blog = store
	a.Cache = blog.NewPostCache(a.Blog, a.Config.PostCacheTTL)
	if a.Search == nil {
		a.Search = blog.NewSQLSearcher(a.Blog)
	}

	if a.waitlistRepo == nil {
		repo, err := waitlist.NewSQLiteStore(a.Config.WaitlistDatabasePath)
		if err != nil {
			return fmt.Errorf("zerovacancy: init waitlist store: %w", err)
		}
		a.waitlistRepo = repo
	}
	a.Waitlist = waitlist.NewService(a.waitlistRepo)

	a.loginLimiter = a.memoryLimiter(5, time.Minute)
	if a.signupLimiter == nil {
		a.signupLimiter = a.memoryLimiter(a.Config.SignupsPerHour, time.Hour)
	}

	if a.Config.EngagementEnabled {
		if err := a.initEngagement(); err != nil {
			return err
		}
	}

	a.Assets, err = assets.New()
	if err != nil {
		return fmt.Errorf("zerovacancy: load assets: %w", err)
	}
	bundle := a.Assets.DefaultBundle()
	bundle.OptimizeTimeout = a.Config.AssetsOptimizeTimeout
	done, err := a.Assets.Prebundle(context.Background(), bundle)
	if err != nil {
		return fmt.Errorf("zerovacancy: prebundle assets: %w", err)
	}
	if len(done) < len(bundle.Include) {
		a.Echo.Logger.Warnf("assets: bundled %d of %d within %s; the rest are served uncompressed", len(done), len(bundle.Include), bundle.OptimizeTimeout)
	}

	a.setupMiddleware()
	a.setupRoutes()
	return nil
}

func (a *App) memoryLimiter(max int, window time.Duration) *ratelimit.Memory {
	l := ratelimit.NewMemory(max, window)
	a.ownedLimiters = append(a.ownedLimiters, l)
	return l
}

func (a *App) initEngagement() error {
	store, err := engagement.NewStore(a.Config.EngagementDatabasePath)
	if err != nil {
		return fmt.Errorf("zerovacancy: init engagement: %w", err)
	}
	a.engagementStore = store
	hasher, err := engagement.LoadHasher(store)
	if err != nil {
		return fmt.Errorf("zerovacancy: init engagement salt: %w", err)
	}
	// 60 beacons per IP per minute.
	a.Engagement = engagement.NewHandler(store, hasher, a.memoryLimiter(60, time.Minute))
	go a.pruneEngagement(24 * time.Hour)
	return nil
}

// pruneEngagement drops rows past the retention window once per interval.
func (a *App) pruneEngagement(interval time.Duration) {
	prune := func() {
		cutoff := time.Now().AddDate(0, 0, -a.Config.EngagementRetention)
		if n, err := a.engagementStore.Prune(context.Background(), cutoff); err != nil {
			a.Echo.Logger.Errorf("engagement prune: %v", err)
		} else if n > 0 {
			a.Echo.Logger.Infof("engagement prune: removed %d rows", n)
		}
	}
	prune()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			prune()
		}
	}
}

// Start initializes the app if needed and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// HealthChecks returns the backend checks reported by the health service.
func (a *App) HealthChecks() map[string]health.Check {
	return map[string]health.Check{
		"waitlist": func(ctx context.Context) error {
			return a.waitlistRepo.Ping(ctx)
		},
		"blog": func(context.Context) error {
			return a.Blog.Ping()
		},
	}
}

// Runtime returns the resolved browser configuration.
func (a *App) Runtime() runtimeconfig.Resolution {
	return a.runtime
}

func (a *App) viewConfig() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
		FallbackEnv: runtimeconfig.Fallback().Public(),
		Engagement:  a.Engagement != nil,
	}
}

// Close releases every resource the app opened.
func (a *App) Close() error {
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}
	for _, l := range a.ownedLimiters {
		l.Stop()
	}
	var errs []error
	if a.Blog != nil {
		errs = append(errs, a.Blog.Close())
	}
	if a.waitlistRepo != nil {
		errs = append(errs, a.waitlistRepo.Close())
	}
	if a.engagementStore != nil {
		errs = append(errs, a.engagementStore.Close())
	}
	return errors.Join(errs...)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("zerovacancy: required environment variable %s is not set", key)
	}
	return v
}
