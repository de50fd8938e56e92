package zerovacancy

import (
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zerovacancy/zerovacancy-sub004/blog"
	"github.com/zerovacancy/zerovacancy-sub004/views"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        string   `xml:"guid"`
}

func rfc1123(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return t.Format(time.RFC1123Z)
}

func (a *App) renderRSS(c echo.Context, posts []blog.Post) error {
	base := a.Config.URL
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		postURL := views.BuildURL(base, "blog", p.Slug)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.Summary,
			Categories:  p.Tags,
			PubDate:     rfc1123(p.Date),
			GUID:        postURL,
		})
	}
	ch := rssChannel{
		Title:       a.Config.Name + " Blog",
		Link:        views.BuildURL(base, "blog"),
		Description: a.Config.Description,
		Items:       items,
	}
	if len(posts) > 0 {
		ch.LastBuildDate = rfc1123(posts[0].Date)
	}
	return writeXML(c, "application/rss+xml; charset=utf-8", rssXML{Version: "2.0", Channel: ch})
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) renderSitemap(c echo.Context, posts []blog.Post, cats []blog.Category) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: strings.TrimSuffix(base, "/") + "/"},
		{Loc: views.BuildURL(base, "pricing")},
		{Loc: views.BuildURL(base, "blog")},
	}
	for _, cat := range cats {
		if cat.Count > 0 {
			urls = append(urls, sitemapURL{Loc: views.BuildURL(base, "blog") + "?category=" + url.QueryEscape(cat.Slug)})
		}
	}
	for _, p := range posts {
		urls = append(urls, sitemapURL{
			Loc:     views.BuildURL(base, "blog", p.Slug),
			LastMod: p.Date,
		})
	}
	return writeXML(c, "application/xml; charset=utf-8", sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	})
}

func writeXML(c echo.Context, contentType string, v any) error {
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(v)
}
