package zerovacancy

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/zerovacancy/zerovacancy-sub004/blog"
)

const uploadsSubdir = "uploads"

// handleCoverUpload replaces a post's cover image. The previous file is
// removed once the post points at the new one.
func (a *App) handleCoverUpload(c echo.Context) error {
	slug := c.Param("slug")
	post, err := a.Blog.GetPostAny(slug)
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}

	file, err := c.FormFile("cover")
	if err != nil {
		return c.String(http.StatusBadRequest, "No image file provided")
	}
	if file.Size > blog.MaxCoverSize {
		return c.String(http.StatusBadRequest, "File too large (max 10MB)")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	cover, err := blog.ProcessCover(src, slug)
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid image: "+err.Error())
	}
	dir := filepath.Join(a.staticDir, uploadsSubdir)
	name, err := blog.SaveCover(dir, cover)
	if err != nil {
		return err
	}

	previous := post.CoverImage
	post.CoverImage = name
	if err := a.Blog.SavePost(post); err != nil {
		_ = os.Remove(filepath.Join(dir, name))
		return err
	}
	if previous != "" && previous != name {
		_ = os.Remove(filepath.Join(dir, filepath.Base(previous)))
	}
	a.Cache.Invalidate()
	return redirectAdmin(c, "Cover updated.", slug)
}
