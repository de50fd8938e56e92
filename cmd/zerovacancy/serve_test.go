package main

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/gommon/log"

	zerovacancy "github.com/zerovacancy/zerovacancy-sub004"
	"github.com/zerovacancy/zerovacancy-sub004/runtimeconfig"
	"github.com/zerovacancy/zerovacancy-sub004/supabase"
	"github.com/zerovacancy/zerovacancy-sub004/waitlist"
)

type closeRecorder struct {
	closed int
}

func (r *closeRecorder) Create(context.Context, waitlist.Entry) error { return nil }
func (r *closeRecorder) GetByEmail(context.Context, string) (waitlist.Entry, error) {
	return waitlist.Entry{}, waitlist.ErrNotFound
}
func (r *closeRecorder) List(context.Context, waitlist.ListOptions) ([]waitlist.Entry, int, error) {
	return nil, 0, nil
}
func (r *closeRecorder) SetStatus(context.Context, string, waitlist.Status, time.Time) error {
	return nil
}
func (r *closeRecorder) Ping(context.Context) error { return nil }
func (r *closeRecorder) Close() error {
	r.closed++
	return nil
}

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

func clearBackendEnv(t *testing.T) {
	t.Setenv("WAITLIST_DATABASE_URL", "")
	t.Setenv("WAITLIST_BACKEND", "")
	t.Setenv("WAITLIST_TABLE", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("ELASTICSEARCH_URL", "")
	t.Setenv("STATIC_DIR", filepath.Join(t.TempDir(), "public"))
}

func useRecorder(t *testing.T) *closeRecorder {
	rec := &closeRecorder{}
	prev := openWaitlist
	openWaitlist = func(context.Context, runtimeconfig.Resolution, *log.Logger) (waitlist.Repository, error) {
		return rec, nil
	}
	t.Cleanup(func() { openWaitlist = prev })
	return rec
}

func testConfig(t *testing.T) zerovacancy.SiteConfig {
	dir := t.TempDir()
	return zerovacancy.SiteConfig{
		LogLevel:             "off",
		DatabasePath:         filepath.Join(dir, "blog.db"),
		WaitlistDatabasePath: filepath.Join(dir, "waitlist.db"),
		AdminPassword:        "secret",
		SessionSecret:        "test-session-secret-0123456789abcdef",
	}
}

func TestWaitlistRepositoryDefaultsToRemote(t *testing.T) {
	clearBackendEnv(t)
	repo, err := waitlistRepository(context.Background(), runtimeconfig.Resolution{}, quietLogger())
	if err != nil {
		t.Fatalf("waitlistRepository: %v", err)
	}
	if _, ok := repo.(*waitlist.RemoteStore); !ok {
		t.Fatalf("repo = %T, want *waitlist.RemoteStore", repo)
	}
	err = repo.Create(context.Background(), waitlist.Entry{Email: "a@example.com"})
	if !errors.Is(err, supabase.ErrNotConfigured) {
		t.Fatalf("Create error = %v, want ErrNotConfigured", err)
	}
}

func TestWaitlistRepositorySQLiteOptIn(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("WAITLIST_BACKEND", "sqlite")
	repo, err := waitlistRepository(context.Background(), runtimeconfig.Resolution{}, quietLogger())
	if err != nil || repo != nil {
		t.Fatalf("got %v, %v; want nil repository for the app's sqlite file", repo, err)
	}

	t.Setenv("WAITLIST_BACKEND", "mysql")
	if _, err := waitlistRepository(context.Background(), runtimeconfig.Resolution{}, quietLogger()); err == nil {
		t.Fatal("expected unknown backend to be rejected")
	}
}

func TestSetupClosesRepositoryWhenInitFails(t *testing.T) {
	clearBackendEnv(t)
	rec := useRecorder(t)
	cfg := testConfig(t)
	cfg.SessionSecret = ""

	if _, _, err := setupApp(context.Background(), cfg, runtimeconfig.Resolution{}, quietLogger()); err == nil {
		t.Fatal("expected Init to fail without a session secret")
	}
	if rec.closed != 1 {
		t.Fatalf("repository closed %d times, want 1", rec.closed)
	}
}

func TestSetupClosesRepositoryWhenRedisIsDown(t *testing.T) {
	clearBackendEnv(t)
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")
	rec := useRecorder(t)

	if _, _, err := setupApp(context.Background(), testConfig(t), runtimeconfig.Resolution{}, quietLogger()); err == nil {
		t.Fatal("expected unreachable redis to fail startup")
	}
	if rec.closed != 1 {
		t.Fatalf("repository closed %d times, want 1", rec.closed)
	}
}

func TestSetupHandsRepositoryToApp(t *testing.T) {
	clearBackendEnv(t)
	rec := useRecorder(t)

	app, closeApp, err := setupApp(context.Background(), testConfig(t), runtimeconfig.Resolution{}, quietLogger())
	if err != nil {
		t.Fatalf("setupApp: %v", err)
	}
	if app.Waitlist == nil {
		t.Fatal("waitlist service not initialized")
	}
	if rec.closed != 0 {
		t.Fatalf("repository closed before shutdown")
	}
	closeApp()
	if rec.closed != 1 {
		t.Fatalf("repository closed %d times, want 1", rec.closed)
	}
}
