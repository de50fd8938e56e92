package zerovacancy

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/zerovacancy/zerovacancy-sub004/api"
	"github.com/zerovacancy/zerovacancy-sub004/blog"
	"github.com/zerovacancy/zerovacancy-sub004/engagement"
	"github.com/zerovacancy/zerovacancy-sub004/views"
	"github.com/zerovacancy/zerovacancy-sub004/waitlist"
)

const adminEntriesPerPage = 25

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, views.AdminLogin(false, CsrfToken(c)))
	}
	ctx := c.Request().Context()
	data := views.AdminData{
		CSRF:         CsrfToken(c),
		Message:      c.QueryParam("msg"),
		StatusFilter: waitlist.Status(c.QueryParam("status")),
		Days:         engagement.ParseDays(c.QueryParam("days")),
	}
	if !data.StatusFilter.Valid() {
		data.StatusFilter = ""
	}

	number, _ := strconv.Atoi(c.QueryParam("page"))
	page := api.NewPage(number, adminEntriesPerPage)
	entries, total, err := a.Waitlist.List(ctx, waitlist.ListOptions{
		Status: data.StatusFilter,
		Offset: page.Offset(),
		Limit:  page.PerPage,
	})
	if err != nil {
		c.Logger().Errorf("admin waitlist: %v", err)
		data.WaitlistErr = "The waitlist could not be loaded: " + err.Error()
	}
	data.Entries = entries
	data.Pagination = api.Paginate(page, total)

	if a.Engagement != nil {
		if data.Summary, err = a.Engagement.Summary(c, data.Days); err != nil {
			c.Logger().Errorf("admin engagement: %v", err)
		}
	}

	if data.Posts, err = a.Blog.ListAllPosts(); err != nil {
		return err
	}
	if data.Categories, err = a.Blog.ListCategories(); err != nil {
		return err
	}
	if data.Authors, err = a.Blog.ListAuthors(); err != nil {
		return err
	}
	if slug := c.QueryParam("edit"); slug != "" {
		if data.Edit, err = a.Blog.GetPostAny(slug); err != nil && !errors.Is(err, blog.ErrNotFound) {
			return err
		}
	}
	return Render(c, views.AdminDashboard(data))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	if a.checkPassword(c.FormValue("password")) {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	c.Logger().Warnf("admin login failed from %s", ip)
	return RenderStatus(c, http.StatusUnauthorized, views.AdminLogin(true, CsrfToken(c)))
}

// checkPassword prefers the bcrypt hash and falls back to a constant-time
// comparison with the plain password.
func (a *App) checkPassword(pass string) bool {
	if a.Config.AdminPasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.Config.AdminPasswordHash), []byte(pass)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

// redirectAdmin sends the browser back to the dashboard with a flash
// message, optionally reopening a post in the editor.
func redirectAdmin(c echo.Context, msg, edit string) error {
	q := url.Values{}
	if msg != "" {
		q.Set("msg", msg)
	}
	target := "/admin/"
	if edit != "" {
		q.Set("edit", edit)
	}
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	if edit != "" {
		target += "#post-form"
	}
	return c.Redirect(http.StatusSeeOther, target)
}

func (a *App) handleAdminWaitlistStatus(c echo.Context) error {
	status := waitlist.Status(c.FormValue("status"))
	err := a.Waitlist.SetStatus(c.Request().Context(), c.Param("id"), status)
	switch {
	case err == nil:
		return redirectAdmin(c, "Status updated.", "")
	case errors.Is(err, waitlist.ErrInvalidStatus):
		return redirectAdmin(c, "Unknown status "+strconv.Quote(string(status))+".", "")
	case errors.Is(err, waitlist.ErrNotFound):
		return echo.ErrNotFound
	default:
		return err
	}
}

func (a *App) handleAdminSave(c echo.Context) error {
	ctx := c.Request().Context()
	original := strings.TrimSpace(c.FormValue("original_slug"))
	title := strings.TrimSpace(c.FormValue("title"))
	slug := blog.Slugify(c.FormValue("slug"))
	if slug == "" {
		slug = blog.Slugify(title)
	}
	if slug == "" {
		return redirectAdmin(c, "Slug is required. Add a title or slug.", original)
	}
	date := strings.TrimSpace(c.FormValue("date"))
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return redirectAdmin(c, "Invalid date format. Use YYYY-MM-DD.", original)
	}

	post := blog.Post{
		Slug:      slug,
		Title:     title,
		Date:      date,
		Tags:      blog.SplitTags(c.FormValue("tags")),
		Summary:   strings.TrimSpace(c.FormValue("summary")),
		Content:   c.FormValue("content"),
		Category:  c.FormValue("category"),
		AuthorID:  c.FormValue("author_id"),
		Published: c.FormValue("published") != "",
	}
	if original != "" {
		// The editor has no cover field; keep the existing one.
		if prev, err := a.Blog.GetPostAny(original); err == nil {
			post.CoverImage = prev.CoverImage
		}
	}
	if original != slug {
		if _, err := a.Blog.GetPostAny(slug); err == nil {
			return redirectAdmin(c, "A post with slug "+strconv.Quote(slug)+" already exists.", original)
		}
	}

	if err := a.Blog.SavePost(post); err != nil {
		return err
	}
	if original != "" && original != slug {
		if err := a.Blog.DeletePost(original); err != nil {
			return err
		}
		if err := a.Search.Remove(ctx, original); err != nil {
			c.Logger().Errorf("search remove %s: %v", original, err)
		}
	}
	if err := a.Search.Index(ctx, post); err != nil {
		c.Logger().Errorf("search index %s: %v", slug, err)
	}
	a.Cache.Invalidate()
	return redirectAdmin(c, "Post saved.", slug)
}

func (a *App) handleAdminDelete(c echo.Context) error {
	slug := c.Param("slug")
	if err := a.Blog.DeletePost(slug); err != nil {
		return err
	}
	if err := a.Search.Remove(c.Request().Context(), slug); err != nil {
		c.Logger().Errorf("search remove %s: %v", slug, err)
	}
	a.Cache.Invalidate()
	return redirectAdmin(c, "Post deleted.", "")
}

func (a *App) handleAdminCategory(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("name"))
	slug := blog.Slugify(name)
	if slug == "" {
		return redirectAdmin(c, "Category name is required.", "")
	}
	if err := a.Blog.SaveCategory(blog.Category{
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(c.FormValue("description")),
	}); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return redirectAdmin(c, "Category saved.", "")
}

func (a *App) handleAdminAuthor(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("name"))
	id := blog.Slugify(name)
	if id == "" {
		return redirectAdmin(c, "Author name is required.", "")
	}
	avatar := strings.TrimSpace(c.FormValue("avatar_url"))
	if avatar != "" {
		u, err := url.Parse(avatar)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return redirectAdmin(c, "Avatar URL must be an http(s) address.", "")
		}
	}
	if err := a.Blog.SaveAuthor(blog.Author{
		ID:        id,
		Name:      name,
		Role:      strings.TrimSpace(c.FormValue("role")),
		AvatarURL: avatar,
	}); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return redirectAdmin(c, "Author saved.", "")
}

func (a *App) handleAdminWaitlistAPI(c echo.Context) error {
	status := waitlist.Status(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return api.Fail(c, http.StatusBadRequest, "invalid status")
	}
	page := api.PageFromQuery(c)
	entries, total, err := a.Waitlist.List(c.Request().Context(), waitlist.ListOptions{
		Status: status,
		Offset: page.Offset(),
		Limit:  page.PerPage,
	})
	if err != nil {
		c.Logger().Errorf("admin waitlist api: %v", err)
		return api.Fail(c, http.StatusServiceUnavailable, "waitlist is unavailable")
	}
	if entries == nil {
		entries = []waitlist.Entry{}
	}
	return api.Paged(c, entries, page, total)
}

func (a *App) handleAdminEngagementAPI(c echo.Context) error {
	if a.Engagement == nil {
		return api.Fail(c, http.StatusNotFound, "engagement tracking is disabled")
	}
	return a.Engagement.GetSummary(c)
}
