package engagement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zerovacancy/zerovacancy-sub004/ratelimit"
)

const (
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "engagement.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func setupHandler(t *testing.T, max int) (*Handler, *Store) {
	t.Helper()
	s := setupStore(t)
	hasher, err := LoadHasher(s)
	if err != nil {
		t.Fatalf("LoadHasher: %v", err)
	}
	limiter := ratelimit.NewMemory(max, time.Minute)
	t.Cleanup(limiter.Stop)
	h := NewHandler(s, hasher, limiter)
	h.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return h, s
}

func post(h *Handler, body, ua string, header map[string]string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/engagement", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("User-Agent", ua)
	req.RemoteAddr = "198.51.100.7:5000"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = h.Collect(c)
	return rec
}

func TestLoadHasherPersistsSalt(t *testing.T) {
	s := setupStore(t)
	h1, err := LoadHasher(s)
	if err != nil {
		t.Fatalf("LoadHasher: %v", err)
	}
	h2, err := LoadHasher(s)
	if err != nil {
		t.Fatalf("LoadHasher: %v", err)
	}
	a, b := h1.VisitorID("1.2.3.4", "ua"), h2.VisitorID("1.2.3.4", "ua")
	if a != b {
		t.Errorf("visitor ids differ across loads: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("len(visitor id) = %d, want 16", len(a))
	}
	if a == h1.VisitorID("1.2.3.5", "ua") {
		t.Error("different IPs must hash differently")
	}
}

func TestBeaconValidate(t *testing.T) {
	tests := []struct {
		name string
		b    Beacon
		ok   bool
	}{
		{"defaults to view", Beacon{Path: "/"}, true},
		{"scroll", Beacon{Event: EventScroll, Path: "/blog/", ScrollTop: 10, DocumentHeight: 100, ViewportHeight: 50}, true},
		{"relative path", Beacon{Path: "blog"}, false},
		{"unknown event", Beacon{Event: "click", Path: "/"}, false},
		{"negative", Beacon{Path: "/", ScrollTop: -1}, false},
		{"long screen", Beacon{Path: "/", Screen: strings.Repeat("9", 40)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.b
			err := b.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
			if tt.ok && b.Event == "" {
				t.Error("Event should be defaulted")
			}
		})
	}
}

func TestIsBot(t *testing.T) {
	for ua, want := range map[string]bool{
		"":          true,
		"Googlebot": true,
		"curl/8.0":  true,
		desktopUA:   false,
		iphoneUA:    false,
	} {
		if got := IsBot(ua); got != want {
			t.Errorf("IsBot(%q) = %v, want %v", ua, got, want)
		}
	}
}

func TestCollectKeepsMaxDepth(t *testing.T) {
	h, s := setupHandler(t, 100)

	beacons := []string{
		`{"event":"view","path":"/pricing/","scroll_top":0,"document_height":2000,"viewport_height":1000,"screen":"1920x1080"}`,
		`{"event":"scroll","path":"/pricing/","scroll_top":750,"document_height":2000,"viewport_height":1000}`,
		`{"event":"scroll","path":"/pricing/","scroll_top":200,"document_height":2000,"viewport_height":1000}`,
	}
	for _, b := range beacons {
		if rec := post(h, b, desktopUA, nil); rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
		}
	}

	visitor := h.hasher.VisitorID("198.51.100.7", desktopUA)
	v, err := s.Get(context.Background(), visitor, "/pricing/", "2024-06-01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.MaxDepth != 75 {
		t.Errorf("MaxDepth = %v, want 75", v.MaxDepth)
	}
	if v.Views != 1 {
		t.Errorf("Views = %d, want 1", v.Views)
	}
	if v.Device != "desktop" || v.Screen != "1920x1080" {
		t.Errorf("Device/Screen = %q/%q", v.Device, v.Screen)
	}
}

func TestCollectIgnoresDNTAndBots(t *testing.T) {
	h, s := setupHandler(t, 100)
	body := `{"path":"/"}`

	if rec := post(h, body, desktopUA, map[string]string{"DNT": "1"}); rec.Code != http.StatusNoContent {
		t.Fatalf("DNT status = %d", rec.Code)
	}
	if rec := post(h, body, "Googlebot/2.1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("bot status = %d", rec.Code)
	}
	sum, err := s.Summary(context.Background(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 5)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Views != 0 {
		t.Errorf("Views = %d, want 0", sum.Views)
	}
}

func TestCollectRejectsInvalid(t *testing.T) {
	h, _ := setupHandler(t, 100)
	if rec := post(h, `{"path":"nope"}`, desktopUA, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if rec := post(h, `{not json`, desktopUA, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCollectRateLimited(t *testing.T) {
	h, _ := setupHandler(t, 2)
	body := `{"path":"/"}`
	post(h, body, desktopUA, nil)
	post(h, body, desktopUA, nil)
	if rec := post(h, body, desktopUA, nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestCollectUsesMobileClientHint(t *testing.T) {
	h, s := setupHandler(t, 100)
	post(h, `{"path":"/"}`, desktopUA, map[string]string{"Sec-CH-UA-Mobile": "?1"})

	v, err := s.Get(context.Background(), h.hasher.VisitorID("198.51.100.7", desktopUA), "/", "2024-06-01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Device != "mobile" {
		t.Errorf("Device = %q, want mobile", v.Device)
	}
}

func TestSummary(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	rows := []View{
		{VisitorID: "a", Path: "/", Day: "2024-06-03", Device: "desktop", MaxDepth: 100, Views: 2, LastSeen: now},
		{VisitorID: "b", Path: "/", Day: "2024-06-03", Device: "mobile", MaxDepth: 50, Views: 1, LastSeen: now},
		{VisitorID: "b", Path: "/pricing/", Day: "2024-06-02", Device: "mobile", MaxDepth: 30, Views: 1, LastSeen: now},
		{VisitorID: "c", Path: "/old/", Day: "2024-05-01", Device: "desktop", MaxDepth: 10, Views: 5, LastSeen: now},
	}
	for _, v := range rows {
		if err := s.Record(ctx, v); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	sum, err := s.Summary(ctx, now.AddDate(0, 0, -6), now, 10)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Views != 4 || sum.UniqueVisitors != 2 {
		t.Errorf("Views/Unique = %d/%d, want 4/2", sum.Views, sum.UniqueVisitors)
	}
	if sum.MobileShare != 50 {
		t.Errorf("MobileShare = %v, want 50", sum.MobileShare)
	}
	if sum.AvgDepth != 60 {
		t.Errorf("AvgDepth = %v, want 60", sum.AvgDepth)
	}
	if len(sum.TopPages) != 2 || sum.TopPages[0].Path != "/" || sum.TopPages[0].Views != 3 || sum.TopPages[0].AvgDepth != 75 {
		t.Errorf("TopPages = %+v", sum.TopPages)
	}

	n, err := s.Prune(ctx, now.AddDate(0, 0, -7))
	if err != nil || n != 1 {
		t.Errorf("Prune = %d, %v, want 1", n, err)
	}
}

func TestGetSummaryJSON(t *testing.T) {
	h, _ := setupHandler(t, 100)
	post(h, `{"path":"/"}`, iphoneUA, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/engagement?days=abc", nil)
	rec := httptest.NewRecorder()
	if err := h.GetSummary(e.NewContext(req, rec)); err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	var sum Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Views != 1 || sum.MobileShare != 100 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestParseDays(t *testing.T) {
	for in, want := range map[string]int{"": 7, "30": 30, "0": 1, "9999": 365} {
		if got := ParseDays(in); got != want {
			t.Errorf("ParseDays(%q) = %d, want %d", in, got, want)
		}
	}
}
