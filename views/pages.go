package views

import (
	"github.com/a-h/templ"

	"github.com/zerovacancy/zerovacancy-sub004/blog"
)

func (p *page) waitlistForm(f WaitlistForm, source string) {
	p.raw(`<section id="waitlist" class="waitlist">
<h2>Join the waitlist</h2>
<p>Be first in line when we open to property teams in your city.</p>
`)
	if f.Error != "" {
		p.raw(`<p class="form-error" role="alert">`)
		p.text(f.Error)
		p.raw(`</p>
`)
	}
	p.raw(`<form method="post" action="/waitlist/" class="waitlist-form">
`)
	p.csrf(f.CSRF)
	if f.Source != "" {
		source = f.Source
	}
	p.raw(`<input type="hidden" name="source" value="`)
	p.text(source)
	p.raw(`">
<label>Email <input type="email" name="email" required maxlength="254" autocomplete="email" value="`)
	p.text(f.Email)
	p.raw(`"></label>
<label>Name <input type="text" name="name" maxlength="120" autocomplete="name" value="`)
	p.text(f.Name)
	p.raw(`"></label>
<label>Company <input type="text" name="company" maxlength="120" autocomplete="organization" value="`)
	p.text(f.Company)
	p.raw(`"></label>
<label>I am a <select name="role">
`)
	for _, r := range []string{"Property manager", "Landlord", "Content creator", "Other"} {
		p.raw(`<option`)
		if r == f.Role {
			p.raw(` selected`)
		}
		p.raw(`>`)
		p.text(r)
		p.raw(`</option>
`)
	}
	p.raw(`</select></label>
<button type="submit">Request early access</button>
</form>
</section>
`)
}

func (p *page) postCards(posts []blog.Post) {
	p.raw(`<ul class="post-list">
`)
	for _, post := range posts {
		p.raw(`<li class="post-card">`)
		if post.CoverImage != "" {
			p.raw(`<img src="`)
			p.url(CoverURL(post.CoverImage))
			p.raw(`" alt="" loading="lazy">`)
		}
		p.raw(`<a href="`)
		p.url(post.Link())
		p.raw(`"><h3>`)
		p.text(post.Title)
		p.raw(`</h3></a><time datetime="`)
		p.text(post.Date)
		p.raw(`">`)
		p.text(FormatDate(post.Date))
		p.raw(`</time><p>`)
		p.text(post.Summary)
		p.raw(`</p></li>
`)
	}
	p.raw(`</ul>
`)
}

// Home is the landing page.
func Home(cfg SiteConfig, data HomeData) templ.Component {
	meta := PageMeta{URL: BuildURL(cfg.URL), Description: cfg.Description}
	return Layout(cfg, meta, component(func(p *page) {
		p.raw(`<section class="hero">
<h1>Fill vacancies faster with content that sells the space</h1>
<p class="lead">`)
		p.text(cfg.Description)
		p.raw(`</p>
<a class="cta" href="#waitlist">Get early access</a>
<a class="secondary" href="/pricing/">See pricing</a>
</section>
<section class="features">
<div><h3>Vetted local creators</h3><p>Book photographers and videographers who know rental listings.</p></div>
<div><h3>Listing-ready in days</h3><p>Photos, tours and floor plans delivered in the formats every portal accepts.</p></div>
<div><h3>One dashboard</h3><p>Track shoots, approvals and deliveries across every property you manage.</p></div>
</section>
`)
		p.waitlistForm(data.Form, "home")
		if len(data.Posts) > 0 {
			p.raw(`<section class="recent-posts">
<h2>From the blog</h2>
`)
			p.postCards(data.Posts)
			p.raw(`<a href="/blog/">All posts</a>
</section>
`)
		}
	}))
}

// Pricing lists the plans.
func Pricing(cfg SiteConfig, data PricingData) templ.Component {
	meta := PageMeta{Title: "Pricing", URL: BuildURL(cfg.URL, "pricing"), Description: "Plans for property teams of every size."}
	return Layout(cfg, meta, component(func(p *page) {
		p.raw(`<section class="pricing">
<h1>Simple pricing</h1>
<div class="plans">
`)
		for _, plan := range data.Plans {
			p.raw(`<article class="plan`)
			if plan.Highlight {
				p.raw(` plan-highlight`)
			}
			p.raw(`"><h2>`)
			p.text(plan.Name)
			p.raw(`</h2><p class="price"><strong>`)
			p.text(plan.Price)
			p.raw(`</strong>`)
			if plan.Period != "" {
				p.raw(` <span>/ `)
				p.text(plan.Period)
				p.raw(`</span>`)
			}
			p.raw(`</p><p>`)
			p.text(plan.Blurb)
			p.raw(`</p><ul>`)
			for _, f := range plan.Features {
				p.raw(`<li>`)
				p.text(f)
				p.raw(`</li>`)
			}
			p.raw(`</ul><a class="cta" href="#waitlist">Join the waitlist</a></article>
`)
		}
		p.raw(`</div>
</section>
`)
		p.waitlistForm(data.Form, "pricing")
	}))
}

// WaitlistThanks confirms a form sign-up.
func WaitlistThanks(cfg SiteConfig, r WaitlistResult) templ.Component {
	return Layout(cfg, PageMeta{Title: r.Title, NoIndex: true}, component(func(p *page) {
		p.raw(`<section class="waitlist-result`)
		if !r.OK {
			p.raw(` waitlist-result-error`)
		}
		p.raw(`"><h1>`)
		p.text(r.Title)
		p.raw(`</h1><p>`)
		p.text(r.Message)
		p.raw(`</p><p><a href="/">Back to the home page</a></p></section>`)
	}))
}
