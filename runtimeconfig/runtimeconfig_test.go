package runtimeconfig

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Warnf(format string, args ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestResolveGlobalNeverOverwritten(t *testing.T) {
	global := Values{DatabaseURL: "https://global.example", AccessToken: "global-token"}
	injected := Values{DatabaseURL: "https://injected.example", AccessToken: "injected-token"}
	fallback := Values{DatabaseURL: "https://fallback.example", AccessToken: "fallback-token"}

	r := Resolve(global, injected, fallback)
	if r.Values != global {
		t.Fatalf("Resolve = %+v, want %+v", r.Values, global)
	}
	if r.URLSource != TierGlobal || r.TokenSource != TierGlobal {
		t.Fatalf("sources = %s/%s, want global/global", r.URLSource, r.TokenSource)
	}
}

func TestResolveInjectedOnly(t *testing.T) {
	injected := Values{DatabaseURL: "https://abc.supabase.co", AccessToken: "anon-123"}

	r := Resolve(Values{}, injected, Values{})
	if r.Values != injected {
		t.Fatalf("Resolve = %+v, want %+v", r.Values, injected)
	}
	if r.URLSource != TierInjected || r.TokenSource != TierInjected {
		t.Fatalf("sources = %s/%s, want injected/injected", r.URLSource, r.TokenSource)
	}
}

func TestResolveFallsBackToDefaults(t *testing.T) {
	r := Resolve(Values{}, Values{}, Fallback())
	if r.DatabaseURL != DefaultDatabaseURL {
		t.Errorf("DatabaseURL = %q, want %q", r.DatabaseURL, DefaultDatabaseURL)
	}
	if r.AccessToken != DefaultAccessToken {
		t.Errorf("AccessToken = %q, want %q", r.AccessToken, DefaultAccessToken)
	}
}

func TestResolveFieldByField(t *testing.T) {
	r := Resolve(
		Values{AccessToken: "global-token"},
		Values{DatabaseURL: "https://injected.example", AccessToken: "injected-token"},
		Values{DatabaseURL: "https://fallback.example"},
	)
	if r.DatabaseURL != "https://injected.example" || r.URLSource != TierInjected {
		t.Errorf("url = %q from %s", r.DatabaseURL, r.URLSource)
	}
	if r.AccessToken != "global-token" || r.TokenSource != TierGlobal {
		t.Errorf("token = %q from %s", r.AccessToken, r.TokenSource)
	}
}

func TestResolveNothingSet(t *testing.T) {
	r := Resolve(Values{}, Values{}, Values{})
	if r.DatabaseURL != "" || r.AccessToken != "" {
		t.Fatalf("expected empty values, got %+v", r.Values)
	}
	missing := r.Missing()
	if len(missing) != 2 {
		t.Fatalf("Missing = %v, want two keys", missing)
	}
}

func TestFromEnvPrefersViteKeys(t *testing.T) {
	v := FromEnv(envMap(map[string]string{
		"VITE_SUPABASE_URL": "https://vite.example",
		"SUPABASE_URL":      "https://plain.example",
		"SUPABASE_ANON_KEY": "plain-key",
	}))
	if v.DatabaseURL != "https://vite.example" {
		t.Errorf("DatabaseURL = %q", v.DatabaseURL)
	}
	if v.AccessToken != "plain-key" {
		t.Errorf("AccessToken = %q", v.AccessToken)
	}
}

func TestLoadWarnsOnMissingToken(t *testing.T) {
	log := &recordingLogger{}
	r := Load(Values{}, envMap(map[string]string{"SUPABASE_URL": "https://x.example"}), log)
	if r.DatabaseURL != "https://x.example" {
		t.Fatalf("DatabaseURL = %q", r.DatabaseURL)
	}
	if DefaultAccessToken == "" && len(log.warnings) != 1 {
		t.Fatalf("warnings = %v, want one", log.warnings)
	}
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signedToken(t, jwt.MapClaims{"role": "anon", "ref": "abc", "exp": exp.Unix()})
	info, err := InspectToken(tok)
	if err != nil {
		t.Fatalf("InspectToken: %v", err)
	}
	if info.Role != "anon" || info.Ref != "abc" || !info.ExpiresAt.Equal(exp) {
		t.Fatalf("info = %+v", info)
	}
}

func TestTokenWarnings(t *testing.T) {
	expired := signedToken(t, jwt.MapClaims{"role": "anon", "exp": time.Now().Add(-time.Hour).Unix()})
	service := signedToken(t, jwt.MapClaims{"role": "service_role"})
	good := signedToken(t, jwt.MapClaims{"role": "anon"})

	if w := tokenWarnings(expired); len(w) != 1 || !strings.Contains(w[0], "expired") {
		t.Errorf("expired token warnings = %v", w)
	}
	if w := tokenWarnings(service); len(w) != 1 || !strings.Contains(w[0], "service_role") {
		t.Errorf("service token warnings = %v", w)
	}
	if w := tokenWarnings(good); len(w) != 0 {
		t.Errorf("anon token warnings = %v", w)
	}
	if w := tokenWarnings("sb_publishable_abc"); len(w) != 0 {
		t.Errorf("opaque key warnings = %v", w)
	}
}

func TestInjectHTMLBeforeHead(t *testing.T) {
	doc := []byte("<html><HEAD><title>x</title></HEAD><body></body></html>")
	out := string(InjectHTML(doc, Values{DatabaseURL: "https://a.example", AccessToken: "k"}))
	script := strings.Index(out, "<script>")
	head := strings.Index(out, "</HEAD>")
	if script < 0 || head < 0 || script > head {
		t.Fatalf("script not injected before </head>: %s", out)
	}
	if !strings.Contains(out, `"VITE_SUPABASE_URL":"https://a.example"`) {
		t.Fatalf("missing url in %s", out)
	}
}

func TestInjectHTMLWithoutHead(t *testing.T) {
	out := string(InjectHTML([]byte(`<body class="x"><p>hi</p></body>`), Values{}))
	if !strings.HasPrefix(out, `<body class="x"><script>`) {
		t.Fatalf("expected script after <body>: %s", out)
	}
	out = string(InjectHTML([]byte("<p>fragment</p>"), Values{}))
	if !strings.HasPrefix(out, "<script>") || !strings.HasSuffix(out, "<p>fragment</p>") {
		t.Fatalf("expected script prepended: %s", out)
	}
}

func TestScriptEscapesMarkup(t *testing.T) {
	s := string(Script(Values{DatabaseURL: "</script><script>alert(1)</script>"}))
	if strings.Count(s, "</script>") != 1 {
		t.Fatalf("payload closed the script tag: %s", s)
	}
}

func TestInjectMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(InjectMiddleware(func() Values {
		return Values{DatabaseURL: "https://mw.example", AccessToken: "tok"}
	}))
	e.GET("/", func(c echo.Context) error {
		return c.HTML(http.StatusOK, "<html><head></head><body>ok</body></html>")
	})
	e.GET("/json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"a": "b"})
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "https://mw.example") {
		t.Fatalf("html not injected: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/json", nil))
	if strings.Contains(rec.Body.String(), "<script>") {
		t.Fatalf("json response was rewritten: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestScriptKeepsBrowserValues(t *testing.T) {
	s := string(Script(Values{DatabaseURL: "https://a.example", AccessToken: "k"}))
	if !strings.Contains(s, `var e=window.__ENV__=window.__ENV__||{};`) {
		t.Fatalf("script does not reuse an existing window.__ENV__: %s", s)
	}
	if !strings.Contains(s, `for(var k in v){if(!e[k]&&v[k]){e[k]=v[k];}}`) {
		t.Fatalf("script overwrites values already set in the browser: %s", s)
	}
}

func TestInjectMiddlewareRestoresWriterOnPanic(t *testing.T) {
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(InjectMiddleware(func() Values { return Values{} }))
	e.GET("/boom", func(c echo.Context) error {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("error response was swallowed")
	}
}

func TestInitRunsOnce(t *testing.T) {
	first := Init(Values{DatabaseURL: "https://first.example", AccessToken: "one"}, nil)
	second := Init(Values{DatabaseURL: "https://second.example", AccessToken: "two"}, nil)
	if first != second || Current() != first {
		t.Fatalf("Init is not idempotent: %+v vs %+v", first, second)
	}
	if first.DatabaseURL != "https://first.example" {
		t.Fatalf("DatabaseURL = %q", first.DatabaseURL)
	}
}
