package views

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/a-h/templ"
)

// Layout wraps body in the site shell: head metadata, the runtime
// configuration scripts, navigation and footer.
func Layout(cfg SiteConfig, meta PageMeta, body templ.Component) templ.Component {
	return component(func(p *page) {
		title := cfg.Name
		if meta.Title != "" {
			title = meta.Title + " | " + cfg.Name
		}
		desc := meta.Description
		if desc == "" {
			desc = cfg.Description
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}

		p.raw(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1, viewport-fit=cover">
<title>`)
		p.text(title)
		p.raw(`</title>
<meta name="description" content="`)
		p.text(desc)
		p.raw(`">
`)
		if meta.NoIndex {
			p.raw(`<meta name="robots" content="noindex, nofollow">
`)
		}
		if meta.URL != "" {
			p.raw(`<link rel="canonical" href="`)
			p.url(meta.URL)
			p.raw(`">
<meta property="og:url" content="`)
			p.url(meta.URL)
			p.raw(`">
`)
		}
		p.raw(`<meta property="og:title" content="`)
		p.text(title)
		p.raw(`">
<meta property="og:description" content="`)
		p.text(desc)
		p.raw(`">
<meta property="og:type" content="`)
		p.text(ogType)
		p.raw(`">
`)
		if meta.Image != "" {
			p.raw(`<meta property="og:image" content="`)
			p.url(meta.Image)
			p.raw(`">
`)
		}
		p.raw(`<link rel="alternate" type="application/rss+xml" title="`)
		p.text(cfg.Name)
		p.raw(`" href="/feed.xml">
<link rel="stylesheet" href="/public/site.css">
`)
		if len(cfg.FallbackEnv) > 0 {
			// json.Marshal escapes <, > and &, so the payload cannot end the script.
			b, err := json.Marshal(cfg.FallbackEnv)
			if err == nil {
				p.raw(`<script>window.__ENV_FALLBACK__=`, string(b), `;</script>
`)
			}
		}
		p.raw(`<script src="/assets/env.js" defer></script>
<script src="/assets/viewport.js" defer></script>
`)
		if cfg.Engagement && !meta.NoIndex {
			p.raw(`<script src="/assets/engagement.js" defer></script>
`)
		}
		p.raw(`<script type="application/ld+json">`, WebsiteJsonLD(cfg), `</script>
</head>
<body>
<header class="site-header">
<a class="brand" href="/">`)
		p.text(cfg.Name)
		p.raw(`</a>
<nav>
<a href="/pricing/">Pricing</a>
<a href="/blog/">Blog</a>
<a class="cta" href="/#waitlist">Join the waitlist</a>
</nav>
</header>
<main class="full-height">
`)
		p.render(body)
		p.raw(`
</main>
<footer class="site-footer">
<p>&copy; `, strconv.Itoa(time.Now().Year()), ` `)
		p.text(cfg.Name)
		p.raw(` &middot; <a href="/feed.xml">RSS</a></p>
</footer>
</body>
</html>
`)
	})
}

// NotFound is the 404 page.
func NotFound(cfg SiteConfig) templ.Component {
	return Layout(cfg, PageMeta{Title: "Page not found", NoIndex: true}, component(func(p *page) {
		p.raw(`<section class="error-page">
<h1>Page not found</h1>
<p>The page you were looking for does not exist or has moved.</p>
<p><a href="/">Back to the home page</a> or <a href="/blog/">read the blog</a>.</p>
</section>`)
	}))
}

// ServerError is the 500 page.
func ServerError(cfg SiteConfig) templ.Component {
	return Layout(cfg, PageMeta{Title: "Something went wrong", NoIndex: true}, component(func(p *page) {
		p.raw(`<section class="error-page">
<h1>Something went wrong</h1>
<p>We hit an unexpected error. Please try again in a moment.</p>
<p><a href="/">Back to the home page</a></p>
</section>`)
	}))
}
