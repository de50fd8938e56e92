package views

import (
	"github.com/zerovacancy/zerovacancy-sub004/api"
	"github.com/zerovacancy/zerovacancy-sub004/blog"
	"github.com/zerovacancy/zerovacancy-sub004/engagement"
	"github.com/zerovacancy/zerovacancy-sub004/waitlist"
)

// SiteConfig holds site-wide settings populated from environment variables.
// Every handler passes this to templates so nothing is hardcoded.
type SiteConfig struct {
	Name        string // SITE_NAME
	URL         string // SITE_URL
	Description string // SITE_DESCRIPTION
	Author      string // SITE_AUTHOR

	// FallbackEnv is baked into every page as window.__ENV_FALLBACK__,
	// the lowest configuration tier the browser consults.
	FallbackEnv map[string]string
	// Engagement adds the engagement beacon script to public pages.
	Engagement bool
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // absolute og:image URL
	NoIndex     bool
}

// WaitlistForm repopulates the sign-up form after a failed submission.
type WaitlistForm struct {
	CSRF    string
	Email   string
	Name    string
	Company string
	Role    string
	Source  string
	Error   string
}

// HomeData is rendered by Home.
type HomeData struct {
	Posts []blog.Post
	Form  WaitlistForm
}

// Plan is one pricing tier.
type Plan struct {
	Name      string
	Price     string
	Period    string
	Blurb     string
	Features  []string
	Highlight bool
}

// PricingData is rendered by Pricing.
type PricingData struct {
	Plans []Plan
	Form  WaitlistForm
}

// WaitlistResult is shown after a form sign-up.
type WaitlistResult struct {
	OK      bool
	Title   string
	Message string
}

// BlogIndexData is rendered by BlogIndex.
type BlogIndexData struct {
	Posts          []blog.Post
	Tags           []string
	Categories     []blog.Category
	ActiveTag      string
	ActiveCategory *blog.Category
	Pagination     *api.Pagination
}

// PostData is rendered by BlogPost.
type PostData struct {
	Post     blog.Post
	Author   *blog.Author
	Category *blog.Category
	Related  []blog.Post
}

// SearchData is rendered by Search.
type SearchData struct {
	Query string
	Posts []blog.Post
	Error string
}

// AdminData is rendered by AdminDashboard.
type AdminData struct {
	CSRF    string
	Message string

	Entries      []waitlist.Entry
	Pagination   *api.Pagination
	StatusFilter waitlist.Status
	WaitlistErr  string

	Summary *engagement.Summary
	Days    int

	Posts      []blog.Post
	Categories []blog.Category
	Authors    []blog.Author
	Edit       blog.Post
}
