package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	zerovacancy "github.com/zerovacancy/zerovacancy-sub004"
	"github.com/zerovacancy/zerovacancy-sub004/blog"
	"github.com/zerovacancy/zerovacancy-sub004/health"
	"github.com/zerovacancy/zerovacancy-sub004/ratelimit"
	"github.com/zerovacancy/zerovacancy-sub004/runtimeconfig"
	"github.com/zerovacancy/zerovacancy-sub004/supabase"
	"github.com/zerovacancy/zerovacancy-sub004/waitlist"
)

const shutdownTimeout = 10 * time.Second

// resolveRuntime parses the flags shared by serve and config and resolves
// the process-wide runtime configuration. Flags form the global tier.
func resolveRuntime(name string, args []string, logger runtimeconfig.Logger) (runtimeconfig.Resolution, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var global runtimeconfig.Values
	fs.StringVar(&global.DatabaseURL, "supabase-url", "", "hosted database endpoint")
	fs.StringVar(&global.AccessToken, "supabase-key", "", "hosted database anon key")
	if err := fs.Parse(args); err != nil {
		return runtimeconfig.Resolution{}, err
	}
	return runtimeconfig.Init(global, logger), nil
}

func runConfig(args []string) error {
	logger := log.New("config")
	res, err := resolveRuntime("config", args, logger)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"env": res.Public(),
		"sources": map[string]string{
			"VITE_SUPABASE_URL":      res.URLSource.String(),
			"VITE_SUPABASE_ANON_KEY": res.TokenSource.String(),
		},
		"missing": res.Missing(),
	})
}

func runServe(args []string) error {
	logger := log.New("zerovacancy")
	res, err := resolveRuntime("serve", args, logger)
	if err != nil {
		return err
	}

	cfg := zerovacancy.SiteConfig{
		Name:                   zerovacancy.EnvOr("SITE_NAME", ""),
		URL:                    zerovacancy.EnvOr("SITE_URL", ""),
		Description:            zerovacancy.EnvOr("SITE_DESCRIPTION", "Book vetted local photographers and videographers to market your rentals."),
		Author:                 zerovacancy.EnvOr("SITE_AUTHOR", "ZeroVacancy"),
		Addr:                   zerovacancy.EnvOr("ADDR", ""),
		LogLevel:               zerovacancy.EnvOr("LOG_LEVEL", ""),
		DatabasePath:           zerovacancy.EnvOr("DATABASE_PATH", ""),
		WaitlistDatabasePath:   zerovacancy.EnvOr("WAITLIST_DATABASE_PATH", ""),
		EngagementEnabled:      envBool("ENGAGEMENT_ENABLED", true),
		EngagementDatabasePath: zerovacancy.EnvOr("ENGAGEMENT_DATABASE_PATH", ""),
		EngagementRetention:    envInt("ENGAGEMENT_RETENTION_DAYS", 0),
		AdminPassword:          os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash:      os.Getenv("ADMIN_PASSWORD_HASH"),
		SessionSecret:          zerovacancy.MustEnv("SESSION_SECRET"),
		CookieSecure:           envBool("COOKIE_SECURE", false),
		AssetsOptimizeTimeout:  envDuration("ASSETS_OPTIMIZE_TIMEOUT", 0),
		SignupsPerHour:         envInt("SIGNUPS_PER_HOUR", 0),
	}
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		return errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, closeApp, err := setupApp(ctx, cfg, res, logger)
	if err != nil {
		return err
	}
	defer closeApp()

	if addr := os.Getenv("GRPC_ADDR"); addr != "" {
		hs := health.New(app.HealthChecks(), app.Echo.Logger)
		shutdown, err := hs.Start(addr)
		if err != nil {
			return fmt.Errorf("health listener %s: %w", addr, err)
		}
		go hs.Run(ctx, 30*time.Second)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = shutdown(sctx)
		}()
		logger.Infof("grpc health listening on %s", addr)
	}

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.Shutdown(sctx)
}

// openWaitlist is replaced in tests.
var openWaitlist = waitlistRepository

// setupApp builds and initializes the application with the optional
// backends named by the environment. On error every resource opened so far
// is released; on success the returned func releases them.
func setupApp(ctx context.Context, cfg zerovacancy.SiteConfig, res runtimeconfig.Resolution, logger *log.Logger) (app *zerovacancy.App, closeFn func(), err error) {
	var closers []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil {
				logger.Warnf("close after failed start: %v", cerr)
			}
		}
	}()

	opts := []zerovacancy.Option{
		zerovacancy.WithRuntimeConfig(res),
		zerovacancy.WithStaticDir(zerovacancy.EnvOr("STATIC_DIR", "public")),
	}

	repo, err := openWaitlist(ctx, res, logger)
	if err != nil {
		return nil, nil, err
	}
	// The repository belongs to the app once New has run.
	closeRepo := func() error { return nil }
	if repo != nil {
		closeRepo = repo.Close
		opts = append(opts, zerovacancy.WithWaitlistRepository(repo))
	}
	closers = append(closers, func() error { return closeRepo() })

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		closers = append(closers, client.Close)
		perHour := cfg.SignupsPerHour
		if perHour <= 0 {
			perHour = 10
		}
		limiter := ratelimit.NewRedis(client, "zerovacancy:signup:", perHour, time.Hour)
		if err := limiter.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("redis %s: %w", addr, err)
		}
		logger.Infof("sign-up rate limiting shared through redis at %s", addr)
		opts = append(opts, zerovacancy.WithSignupLimiter(limiter))
	}

	var es *blog.ElasticSearcher
	if raw := os.Getenv("ELASTICSEARCH_URL"); raw != "" {
		es, err = blog.NewElasticSearcher(strings.Split(raw, ","), os.Getenv("ELASTICSEARCH_INDEX"))
		if err != nil {
			return nil, nil, err
		}
		if err := es.CreateIndex(ctx); err != nil {
			return nil, nil, err
		}
		opts = append(opts, zerovacancy.WithSearcher(es))
	}

	app = zerovacancy.New(cfg, opts...)
	closeRepo = app.Close
	if err := app.Init(); err != nil {
		return nil, nil, err
	}

	if es != nil {
		posts, err := app.Blog.ListPosts(blog.ListFilter{})
		if err != nil {
			return nil, nil, err
		}
		if err := blog.Reindex(ctx, es, posts); err != nil {
			return nil, nil, err
		}
		logger.Infof("indexed %d posts in elasticsearch", len(posts))
	}

	return app, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warnf("close: %v", err)
			}
		}
	}, nil
}

// waitlistRepository selects the waitlist backend. WAITLIST_DATABASE_URL
// selects Postgres and WAITLIST_BACKEND=sqlite opts into the local file
// (nil here, opened by the app). Otherwise entries go to the hosted
// database, even when it is not configured: the client then fails every
// call and sign-ups are answered with 503.
func waitlistRepository(ctx context.Context, res runtimeconfig.Resolution, logger *log.Logger) (waitlist.Repository, error) {
	if dsn := os.Getenv("WAITLIST_DATABASE_URL"); dsn != "" {
		repo, err := waitlist.NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		logger.Info("waitlist stored in postgres")
		return repo, nil
	}
	switch backend := strings.ToLower(os.Getenv("WAITLIST_BACKEND")); backend {
	case "sqlite":
		logger.Info("waitlist stored in local sqlite")
		return nil, nil
	case "", "remote":
	default:
		return nil, fmt.Errorf("unknown WAITLIST_BACKEND %q (want remote or sqlite)", backend)
	}
	if missing := res.Missing(); len(missing) > 0 {
		logger.Warnf("hosted database not configured (missing %s); waitlist sign-ups will fail", strings.Join(missing, ", "))
	} else {
		logger.Infof("waitlist stored in hosted database at %s", res.DatabaseURL)
	}
	client := supabase.New(res.DatabaseURL, res.AccessToken)
	return waitlist.NewRemoteStore(client, os.Getenv("WAITLIST_TABLE")), nil
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
