package zerovacancy

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/zerovacancy/zerovacancy-sub004/api"
	"github.com/zerovacancy/zerovacancy-sub004/blog"
	"github.com/zerovacancy/zerovacancy-sub004/views"
	"github.com/zerovacancy/zerovacancy-sub004/waitlist"
)

const searchLimit = 20

func (a *App) handleHome(c echo.Context) error {
	return a.renderHome(c, http.StatusOK, views.WaitlistForm{CSRF: CsrfToken(c)})
}

func (a *App) renderHome(c echo.Context, code int, form views.WaitlistForm) error {
	posts, err := a.Cache.ListPosts(blog.ListFilter{})
	if err != nil {
		return err
	}
	if len(posts) > homePostCount {
		posts = posts[:homePostCount]
	}
	return RenderStatus(c, code, views.Home(a.viewConfig(), views.HomeData{Posts: posts, Form: form}))
}

func (a *App) handlePricing(c echo.Context) error {
	return a.renderPricing(c, http.StatusOK, views.WaitlistForm{CSRF: CsrfToken(c)})
}

func (a *App) renderPricing(c echo.Context, code int, form views.WaitlistForm) error {
	return RenderStatus(c, code, views.Pricing(a.viewConfig(), views.PricingData{Plans: pricingPlans, Form: form}))
}

func (a *App) handleBlogIndex(c echo.Context) error {
	filter := blog.ListFilter{
		Tag:      strings.ToLower(strings.TrimSpace(c.QueryParam("tag"))),
		Category: strings.TrimSpace(c.QueryParam("category")),
	}
	data := views.BlogIndexData{ActiveTag: filter.Tag}
	if filter.Category != "" {
		cat, err := a.Cache.GetCategory(filter.Category)
		if err != nil {
			if errors.Is(err, blog.ErrNotFound) {
				return echo.ErrNotFound
			}
			return err
		}
		data.ActiveCategory = &cat
	}
	posts, err := a.Cache.ListPosts(filter)
	if err != nil {
		return err
	}
	if data.Tags, err = a.Cache.ListTags(); err != nil {
		return err
	}
	if data.Categories, err = a.Cache.ListCategories(); err != nil {
		return err
	}
	number, _ := strconv.Atoi(c.QueryParam("page"))
	page := api.NewPage(number, a.Config.PostsPerPage)
	data.Posts = api.Slice(posts, page)
	data.Pagination = api.Paginate(page, len(posts))
	if page.Number > 1 && len(data.Posts) == 0 {
		return echo.ErrNotFound
	}
	return Render(c, views.BlogIndex(a.viewConfig(), data))
}

func (a *App) handlePost(c echo.Context) error {
	post, err := a.Cache.GetPost(c.Param("slug"))
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	posts, err := a.Cache.ListPosts(blog.ListFilter{})
	if err != nil {
		return err
	}
	data := views.PostData{
		Post:    post,
		Related: blog.RelatedPosts(post, posts, 3),
	}
	if author, ok := a.Cache.Author(post.AuthorID); ok {
		data.Author = &author
	}
	if post.Category != "" {
		if cat, err := a.Cache.GetCategory(post.Category); err == nil {
			data.Category = &cat
		}
	}
	return Render(c, views.BlogPost(a.viewConfig(), data))
}

func (a *App) handleSearch(c echo.Context) error {
	data := views.SearchData{Query: strings.TrimSpace(c.QueryParam("q"))}
	if data.Query != "" {
		posts, err := a.searchPosts(c, data.Query)
		if err != nil {
			c.Logger().Errorf("blog search %q: %v", data.Query, err)
			data.Error = "Search is unavailable right now. Please try again later."
		}
		data.Posts = posts
	}
	return Render(c, views.Search(a.viewConfig(), data))
}

// searchPosts resolves search hits through the cache so only published
// posts are returned.
func (a *App) searchPosts(c echo.Context, q string) ([]blog.Post, error) {
	slugs, err := a.Search.Search(c.Request().Context(), q, searchLimit)
	if err != nil {
		return nil, err
	}
	posts := make([]blog.Post, 0, len(slugs))
	for _, slug := range slugs {
		if p, err := a.Cache.GetPost(slug); err == nil {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

// handleWaitlistForm handles the sign-up form on the landing and pricing
// pages. Invalid input re-renders the originating page with the error.
func (a *App) handleWaitlistForm(c echo.Context) error {
	var req waitlist.JoinRequest
	if err := c.Bind(&req); err != nil {
		return echo.ErrBadRequest
	}
	form := views.WaitlistForm{
		CSRF:    CsrfToken(c),
		Email:   req.Email,
		Name:    req.Name,
		Company: req.Company,
		Role:    req.Role,
		Source:  req.Source,
	}
	rerender := func(code int, msg string) error {
		form.Error = msg
		if req.Source == "pricing" {
			return a.renderPricing(c, code, form)
		}
		return a.renderHome(c, code, form)
	}

	ok, err := a.signupLimiter.Allow(c.Request().Context(), "signup:"+c.RealIP())
	if err != nil {
		c.Logger().Warnf("signup limiter: %v", err)
	} else if !ok {
		return rerender(http.StatusTooManyRequests, "Too many sign-ups from this network. Please try again later.")
	}

	_, err = a.Waitlist.Join(c.Request().Context(), req)
	switch {
	case err == nil:
		return Render(c, views.WaitlistThanks(a.viewConfig(), views.WaitlistResult{
			OK:      true,
			Title:   "You're on the list",
			Message: "Thanks for joining. We'll email you as soon as we open in your area.",
		}))
	case errors.Is(err, waitlist.ErrAlreadyJoined):
		return Render(c, views.WaitlistThanks(a.viewConfig(), views.WaitlistResult{
			OK:      true,
			Title:   "You're already on the list",
			Message: "That email has already joined the waitlist. We'll be in touch soon.",
		}))
	case errors.Is(err, waitlist.ErrInvalidEmail):
		return rerender(http.StatusUnprocessableEntity, "Please enter a valid email address.")
	default:
		c.Logger().Errorf("waitlist join: %v", err)
		return RenderStatus(c, http.StatusServiceUnavailable, views.WaitlistThanks(a.viewConfig(), views.WaitlistResult{
			Title:   "Something went wrong",
			Message: "We couldn't save your sign-up. Please try again in a few minutes.",
		}))
	}
}

type joinResponse struct {
	Email         string          `json:"email"`
	Status        waitlist.Status `json:"status"`
	AlreadyJoined bool            `json:"already_joined"`
}

func (a *App) handleWaitlistAPI(c echo.Context) error {
	var req waitlist.JoinRequest
	if err := c.Bind(&req); err != nil {
		return api.Fail(c, http.StatusBadRequest, "invalid request body")
	}
	ok, err := a.signupLimiter.Allow(c.Request().Context(), "signup:"+c.RealIP())
	if err != nil {
		c.Logger().Warnf("signup limiter: %v", err)
	} else if !ok {
		return api.Fail(c, http.StatusTooManyRequests, "too many sign-ups, try again later")
	}

	entry, err := a.Waitlist.Join(c.Request().Context(), req)
	switch {
	case err == nil:
		return api.Success(c, http.StatusCreated, joinResponse{Email: entry.Email, Status: entry.Status})
	case errors.Is(err, waitlist.ErrAlreadyJoined):
		return api.Success(c, http.StatusOK, joinResponse{Email: entry.Email, Status: entry.Status, AlreadyJoined: true})
	case errors.Is(err, waitlist.ErrInvalidEmail):
		return api.Fail(c, http.StatusBadRequest, "invalid email address")
	default:
		c.Logger().Errorf("waitlist join: %v", err)
		return api.Fail(c, http.StatusServiceUnavailable, "waitlist is unavailable")
	}
}

type postResponse struct {
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Date       string   `json:"date"`
	Summary    string   `json:"summary"`
	Tags       []string `json:"tags"`
	Category   string   `json:"category,omitempty"`
	Author     string   `json:"author,omitempty"`
	CoverImage string   `json:"cover_image,omitempty"`
	URL        string   `json:"url"`
}

func (a *App) handlePostsAPI(c echo.Context) error {
	page := api.PageFromQuery(c)
	posts, err := a.Cache.ListPosts(blog.ListFilter{
		Tag:      c.QueryParam("tag"),
		Category: c.QueryParam("category"),
	})
	if err != nil {
		return err
	}
	out := make([]postResponse, 0, page.PerPage)
	for _, p := range api.Slice(posts, page) {
		r := postResponse{
			Slug:     p.Slug,
			Title:    p.Title,
			Date:     p.Date,
			Summary:  p.Summary,
			Tags:     p.Tags,
			Category: p.Category,
			URL:      views.BuildURL(a.Config.URL, "blog", p.Slug),
		}
		if r.Tags == nil {
			r.Tags = []string{}
		}
		if author, ok := a.Cache.Author(p.AuthorID); ok {
			r.Author = author.Name
		}
		if p.CoverImage != "" {
			r.CoverImage = strings.TrimSuffix(a.Config.URL, "/") + views.CoverURL(p.CoverImage)
		}
		out = append(out, r)
	}
	return api.Paged(c, out, page, len(posts))
}

type configResponse struct {
	Env      map[string]string `json:"env"`
	Sources  map[string]string `json:"sources"`
	Complete bool              `json:"complete"`
	Missing  []string          `json:"missing"`
}

// handleConfigAPI reports the public runtime configuration and the tier
// each value came from.
func (a *App) handleConfigAPI(c echo.Context) error {
	r := a.runtime
	missing := r.Missing()
	if missing == nil {
		missing = []string{}
	}
	return api.Success(c, http.StatusOK, configResponse{
		Env: r.Public(),
		Sources: map[string]string{
			"VITE_SUPABASE_URL":      r.URLSource.String(),
			"VITE_SUPABASE_ANON_KEY": r.TokenSource.String(),
		},
		Complete: r.Complete(),
		Missing:  missing,
	})
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts(blog.ListFilter{})
	if err != nil {
		return err
	}
	cats, err := a.Cache.ListCategories()
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts, cats)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(blog.ListFilter{})
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleFavicon(c echo.Context) error {
	path := filepath.Join(a.staticDir, "favicon.svg")
	if _, err := os.Stat(path); err != nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.File(path)
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\nAllow: /\nDisallow: /admin/\nDisallow: /api/\nDisallow: /blog/search/\n\n")
	b.WriteString("Sitemap: " + strings.TrimSuffix(a.Config.URL, "/") + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		msg = http.StatusText(code)
	}

	switch {
	case isJSONRoute(c.Request().URL.Path):
		_ = api.Fail(c, code, msg)
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, views.NotFound(a.viewConfig()))
	case code >= 500:
		_ = RenderStatus(c, code, views.ServerError(a.viewConfig()))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
