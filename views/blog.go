package views

import (
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/zerovacancy/zerovacancy-sub004/blog"
)

func tagClass(active bool) string {
	if active {
		return "tag tag-active"
	}
	return "tag"
}

// BlogIndex lists published posts with tag and category filters.
func BlogIndex(cfg SiteConfig, data BlogIndexData) templ.Component {
	category := ""
	title := "Blog"
	desc := "Guides for property managers, landlords and creators."
	if data.ActiveCategory != nil {
		category = data.ActiveCategory.Slug
		title = data.ActiveCategory.Name
		if data.ActiveCategory.Description != "" {
			desc = data.ActiveCategory.Description
		}
	}
	meta := PageMeta{Title: title, Description: desc, URL: BuildURL(cfg.URL, "blog")}
	return Layout(cfg, meta, component(func(p *page) {
		p.raw(`<section class="blog-index">
<h1>`)
		p.text(title)
		p.raw(`</h1>
<form class="search" method="get" action="/blog/search/"><input type="search" name="q" placeholder="Search posts" aria-label="Search posts"><button type="submit">Search</button></form>
`)
		if len(data.Categories) > 0 {
			p.raw(`<nav class="categories"><a class="`, tagClass(category == ""), `" href="`)
			p.url(blogQuery(data.ActiveTag, "", 1))
			p.raw(`">All</a>`)
			for _, c := range data.Categories {
				p.raw(`<a class="`, tagClass(c.Slug == category), `" href="`)
				p.url(blogQuery(data.ActiveTag, c.Slug, 1))
				p.raw(`">`)
				p.text(c.Name)
				p.raw(` <span>`, strconv.Itoa(c.Count), `</span></a>`)
			}
			p.raw(`</nav>
`)
		}
		if len(data.Tags) > 0 {
			p.raw(`<nav class="tags">`)
			for _, t := range data.Tags {
				target := t
				if t == data.ActiveTag {
					target = ""
				}
				p.raw(`<a class="`, tagClass(t == data.ActiveTag), `" href="`)
				p.url(blogQuery(target, category, 1))
				p.raw(`">#`)
				p.text(t)
				p.raw(`</a>`)
			}
			p.raw(`</nav>
`)
		}
		if len(data.Posts) == 0 {
			p.raw(`<p class="empty">No posts yet.</p>
`)
		} else {
			p.postCards(data.Posts)
		}
		if pg := data.Pagination; pg != nil && pg.TotalPages > 1 {
			p.raw(`<nav class="pager">`)
			if pg.HasPrev {
				p.raw(`<a rel="prev" href="`)
				p.url(blogQuery(data.ActiveTag, category, pg.Page-1))
				p.raw(`">Newer</a>`)
			}
			p.raw(`<span>Page `, strconv.Itoa(pg.Page), ` of `, strconv.Itoa(pg.TotalPages), `</span>`)
			if pg.HasNext {
				p.raw(`<a rel="next" href="`)
				p.url(blogQuery(data.ActiveTag, category, pg.Page+1))
				p.raw(`">Older</a>`)
			}
			p.raw(`</nav>
`)
		}
		p.raw(`</section>`)
	}))
}

// BlogPost renders a single post. The body is plain text shown as
// paragraphs.
func BlogPost(cfg SiteConfig, data PostData) templ.Component {
	post := data.Post
	meta := PageMeta{
		Title:       post.Title,
		Description: post.Summary,
		URL:         BuildURL(cfg.URL, "blog", post.Slug),
		OGType:      "article",
	}
	if post.CoverImage != "" {
		meta.Image = strings.TrimSuffix(cfg.URL, "/") + CoverURL(post.CoverImage)
	}
	return Layout(cfg, meta, component(func(p *page) {
		p.raw(`<article class="post">
<header>
`)
		if data.Category != nil {
			p.raw(`<a class="category" href="`)
			p.url(blogQuery("", data.Category.Slug, 1))
			p.raw(`">`)
			p.text(data.Category.Name)
			p.raw(`</a>
`)
		}
		p.raw(`<h1>`)
		p.text(post.Title)
		p.raw(`</h1>
<p class="byline"><time datetime="`)
		p.text(post.Date)
		p.raw(`">`)
		p.text(FormatDate(post.Date))
		p.raw(`</time>`)
		if a := data.Author; a != nil {
			p.raw(` &middot; `)
			if a.AvatarURL != "" {
				p.raw(`<img class="avatar" src="`)
				p.url(a.AvatarURL)
				p.raw(`" alt="" width="32" height="32">`)
			}
			p.text(a.Name)
			if a.Role != "" {
				p.raw(`, <span class="role">`)
				p.text(a.Role)
				p.raw(`</span>`)
			}
		}
		p.raw(`</p>
</header>
`)
		if post.CoverImage != "" {
			p.raw(`<img class="cover" src="`)
			p.url(CoverURL(post.CoverImage))
			p.raw(`" alt="">
`)
		}
		p.raw(`<div class="post-body">
`)
		p.paragraphs(post.Content)
		p.raw(`</div>
`)
		if len(post.Tags) > 0 {
			p.raw(`<p class="tags">`)
			for _, t := range post.Tags {
				p.raw(`<a class="tag" href="`)
				p.url(blogQuery(t, "", 1))
				p.raw(`">#`)
				p.text(t)
				p.raw(`</a> `)
			}
			p.raw(`</p>
`)
		}
		p.raw(`<script type="application/ld+json">`, BlogPostingJsonLD(cfg, post, data.Author), `</script>
</article>
`)
		if len(data.Related) > 0 {
			p.raw(`<aside class="related"><h2>Related posts</h2>
`)
			p.postCards(data.Related)
			p.raw(`</aside>
`)
		}
	}))
}

// Search shows results for a blog search.
func Search(cfg SiteConfig, data SearchData) templ.Component {
	meta := PageMeta{Title: "Search", NoIndex: true}
	return Layout(cfg, meta, component(func(p *page) {
		p.raw(`<section class="search-results">
<h1>Search</h1>
<form class="search" method="get" action="/blog/search/"><input type="search" name="q" aria-label="Search posts" value="`)
		p.text(data.Query)
		p.raw(`"><button type="submit">Search</button></form>
`)
		switch {
		case data.Error != "":
			p.raw(`<p class="form-error">`)
			p.text(data.Error)
			p.raw(`</p>
`)
		case data.Query == "":
		case len(data.Posts) == 0:
			p.raw(`<p class="empty">No posts match &ldquo;`)
			p.text(data.Query)
			p.raw(`&rdquo;.</p>
`)
		default:
			p.postCards(data.Posts)
		}
		p.raw(`</section>`)
	}))
}

// categoryName resolves slug against cats for display.
func categoryName(cats []blog.Category, slug string) string {
	for _, c := range cats {
		if c.Slug == slug {
			return c.Name
		}
	}
	return slug
}
