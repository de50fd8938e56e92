package engagement

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zerovacancy/zerovacancy-sub004/ratelimit"
	"github.com/zerovacancy/zerovacancy-sub004/viewport"
)

const topPages = 10

// Handler serves the beacon endpoint and the admin summary.
type Handler struct {
	store   *Store
	hasher  *Hasher
	limiter ratelimit.Limiter
	now     func() time.Time
}

// NewHandler creates a Handler. limiter bounds beacons per client IP.
func NewHandler(store *Store, hasher *Hasher, limiter ratelimit.Limiter) *Handler {
	return &Handler{store: store, hasher: hasher, limiter: limiter, now: time.Now}
}

// Collect handles POST /api/engagement.
func (h *Handler) Collect(c echo.Context) error {
	req := c.Request()
	ip := c.RealIP()

	ok, err := h.limiter.Allow(req.Context(), "engagement:"+ip)
	if err != nil {
		c.Logger().Errorf("engagement rate limit: %v", err)
	} else if !ok {
		return c.NoContent(http.StatusTooManyRequests)
	}

	if req.Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	var b Beacon
	if err := c.Bind(&b); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}
	if err := b.Validate(); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}

	ua := req.UserAgent()
	if IsBot(ua) {
		return c.NoContent(http.StatusNoContent)
	}

	device := viewport.DeviceClass(ua)
	if device == viewport.DeviceDesktop && viewport.IsMobile(ua, req.Header) {
		device = viewport.DeviceMobile
	}
	views := 0
	if b.Event == EventView {
		views = 1
	}
	now := h.now()
	v := View{
		VisitorID: h.hasher.VisitorID(ip, ua),
		Path:      b.Path,
		Day:       Day(now),
		Device:    device,
		Screen:    b.Screen,
		MaxDepth:  b.Depth(),
		Views:     views,
		LastSeen:  now,
	}
	if err := h.store.Record(req.Context(), v); err != nil {
		c.Logger().Errorf("Failed to save engagement: %v", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Summary aggregates the last n days, today included.
func (h *Handler) Summary(c echo.Context, days int) (*Summary, error) {
	to := h.now().UTC()
	from := to.AddDate(0, 0, -(days - 1))
	return h.store.Summary(c.Request().Context(), from, to, topPages)
}

// GetSummary returns the summary as JSON. The days query parameter
// defaults to 7 and is clamped to 1..365.
func (h *Handler) GetSummary(c echo.Context) error {
	sum, err := h.Summary(c, ParseDays(c.QueryParam("days")))
	if err != nil {
		c.Logger().Errorf("Failed to get engagement summary: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, sum)
}

// ParseDays reads a period length in days.
func ParseDays(s string) int {
	n, err := strconv.Atoi(s)
	switch {
	case err != nil:
		return 7
	case n < 1:
		return 1
	case n > 365:
		return 365
	}
	return n
}
