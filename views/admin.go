package views

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/zerovacancy/zerovacancy-sub004/blog"
	"github.com/zerovacancy/zerovacancy-sub004/waitlist"
)

func adminLayout(title string, body templ.Component) templ.Component {
	return component(func(p *page) {
		p.raw(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex, nofollow">
<title>`)
		p.text(title)
		p.raw(`</title>
<link rel="stylesheet" href="/public/admin.css">
</head>
<body class="admin">
`)
		p.render(body)
		p.raw(`
</body>
</html>
`)
	})
}

// AdminLogin is the password form.
func AdminLogin(showError bool, csrfToken string) templ.Component {
	return adminLayout("Admin login", component(func(p *page) {
		p.raw(`<form class="login" method="post" action="/admin/login/">
<h1>Admin</h1>
`)
		if showError {
			p.raw(`<p class="form-error" role="alert">Invalid password.</p>
`)
		}
		p.csrf(csrfToken)
		p.raw(`<label>Password <input type="password" name="password" required autofocus autocomplete="current-password"></label>
<button type="submit">Sign in</button>
</form>`)
	}))
}

func adminQuery(status waitlist.Status, page, days int) string {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if days > 0 && days != 7 {
		q.Set("days", strconv.Itoa(days))
	}
	if len(q) == 0 {
		return "/admin/"
	}
	return "/admin/?" + q.Encode()
}

// AdminDashboard shows the waitlist, engagement and post management.
func AdminDashboard(data AdminData) templ.Component {
	return adminLayout("Dashboard", component(func(p *page) {
		p.raw(`<header class="admin-header"><h1>Dashboard</h1>
<form method="post" action="/admin/logout/">`)
		p.csrf(data.CSRF)
		p.raw(`<button type="submit">Log out</button></form></header>
`)
		if data.Message != "" {
			p.raw(`<p class="flash">`)
			p.text(data.Message)
			p.raw(`</p>
`)
		}
		p.adminWaitlist(data)
		p.adminEngagement(data)
		p.adminPosts(data)
		p.render(AdminPostForm(data.Edit, data.Categories, data.Authors, data.CSRF))
		p.adminTaxonomy(data)
	}))
}

func (p *page) adminWaitlist(data AdminData) {
	total := 0
	if data.Pagination != nil {
		total = data.Pagination.Total
	}
	p.raw(`<section id="waitlist"><h2>Waitlist <small>`, strconv.Itoa(total), `</small></h2>
<nav class="filters"><a href="`)
	p.url(adminQuery("", 1, data.Days))
	p.raw(`">All</a>`)
	for _, s := range waitlist.Statuses {
		p.raw(` <a href="`)
		p.url(adminQuery(s, 1, data.Days))
		p.raw(`"`)
		if s == data.StatusFilter {
			p.raw(` class="active"`)
		}
		p.raw(`>`)
		p.text(string(s))
		p.raw(`</a>`)
	}
	p.raw(`</nav>
`)
	if data.WaitlistErr != "" {
		p.raw(`<p class="form-error">`)
		p.text(data.WaitlistErr)
		p.raw(`</p>
`)
	}
	p.raw(`<table><thead><tr><th>Email</th><th>Name</th><th>Company</th><th>Role</th><th>Source</th><th>Joined</th><th>Status</th></tr></thead><tbody>
`)
	for _, e := range data.Entries {
		p.raw(`<tr><td>`)
		p.text(e.Email)
		p.raw(`</td><td>`)
		p.text(e.Name)
		p.raw(`</td><td>`)
		p.text(e.Company)
		p.raw(`</td><td>`)
		p.text(e.Role)
		p.raw(`</td><td>`)
		p.text(e.Source)
		p.raw(`</td><td>`)
		p.text(e.CreatedAt.Format("2006-01-02 15:04"))
		p.raw(`</td><td><form method="post" action="`)
		p.url("/admin/waitlist/" + url.PathEscape(e.ID) + "/status/")
		p.raw(`">`)
		p.csrf(data.CSRF)
		p.raw(`<select name="status">`)
		for _, s := range waitlist.Statuses {
			p.raw(`<option`)
			if s == e.Status {
				p.raw(` selected`)
			}
			p.raw(`>`)
			p.text(string(s))
			p.raw(`</option>`)
		}
		p.raw(`</select><button type="submit">Update</button></form></td></tr>
`)
	}
	p.raw(`</tbody></table>
`)
	if pg := data.Pagination; pg != nil && pg.TotalPages > 1 {
		p.raw(`<nav class="pager">`)
		if pg.HasPrev {
			p.raw(`<a href="`)
			p.url(adminQuery(data.StatusFilter, pg.Page-1, data.Days))
			p.raw(`">Previous</a>`)
		}
		p.raw(`<span>Page `, strconv.Itoa(pg.Page), ` of `, strconv.Itoa(pg.TotalPages), `</span>`)
		if pg.HasNext {
			p.raw(`<a href="`)
			p.url(adminQuery(data.StatusFilter, pg.Page+1, data.Days))
			p.raw(`">Next</a>`)
		}
		p.raw(`</nav>
`)
	}
	p.raw(`</section>
`)
}

func (p *page) adminEngagement(data AdminData) {
	sum := data.Summary
	if sum == nil {
		return
	}
	p.raw(`<section id="engagement"><h2>Engagement <small>last `, strconv.Itoa(data.Days), ` days</small></h2>
<dl class="stats">
<dt>Views</dt><dd>`, strconv.Itoa(sum.Views), `</dd>
<dt>Unique visitors</dt><dd>`, strconv.Itoa(sum.UniqueVisitors), `</dd>
<dt>Mobile share</dt><dd>`, fmt.Sprintf("%.1f%%", sum.MobileShare), `</dd>
<dt>Average scroll depth</dt><dd>`, fmt.Sprintf("%.1f%%", sum.AvgDepth), `</dd>
</dl>
<table><thead><tr><th>Page</th><th>Views</th><th>Avg depth</th></tr></thead><tbody>
`)
	for _, pg := range sum.TopPages {
		p.raw(`<tr><td>`)
		p.text(pg.Path)
		p.raw(`</td><td>`, strconv.Itoa(pg.Views), `</td><td>`, fmt.Sprintf("%.1f%%", pg.AvgDepth), `</td></tr>
`)
	}
	p.raw(`</tbody></table>
</section>
`)
}

func (p *page) adminPosts(data AdminData) {
	p.raw(`<section id="posts"><h2>Posts</h2>
<table><thead><tr><th>Title</th><th>Date</th><th>Category</th><th>Status</th><th></th></tr></thead><tbody>
`)
	for _, post := range data.Posts {
		p.raw(`<tr><td><a href="`)
		p.url("/admin/?edit=" + url.QueryEscape(post.Slug) + "#post-form")
		p.raw(`">`)
		p.text(post.Title)
		p.raw(`</a></td><td>`)
		p.text(post.Date)
		p.raw(`</td><td>`)
		p.text(categoryName(data.Categories, post.Category))
		p.raw(`</td><td>`)
		if post.Published {
			p.raw(`published`)
		} else {
			p.raw(`draft`)
		}
		p.raw(`</td><td><form method="post" action="`)
		p.url("/admin/post/" + url.PathEscape(post.Slug) + "/delete/")
		p.raw(`">`)
		p.csrf(data.CSRF)
		p.raw(`<button type="submit">Delete</button></form></td></tr>
`)
	}
	p.raw(`</tbody></table>
</section>
`)
}

// AdminPostForm edits post, or creates one when post.Slug is empty.
func AdminPostForm(post blog.Post, cats []blog.Category, authors []blog.Author, csrfToken string) templ.Component {
	return component(func(p *page) {
		heading := "New post"
		if post.Slug != "" {
			heading = "Edit post"
		}
		p.raw(`<section id="post-form"><h2>`, heading, `</h2>
<form method="post" action="/admin/post/save/">
`)
		p.csrf(csrfToken)
		p.raw(`<input type="hidden" name="original_slug" value="`)
		p.text(post.Slug)
		p.raw(`">
<label>Title <input type="text" name="title" required value="`)
		p.text(post.Title)
		p.raw(`"></label>
<label>Slug <input type="text" name="slug" value="`)
		p.text(post.Slug)
		p.raw(`"></label>
<label>Date <input type="date" name="date" value="`)
		p.text(post.Date)
		p.raw(`"></label>
<label>Tags <input type="text" name="tags" value="`)
		p.text(JoinTags(post.Tags))
		p.raw(`"></label>
<label>Category <select name="category"><option value="">None</option>`)
		for _, c := range cats {
			p.raw(`<option value="`)
			p.text(c.Slug)
			p.raw(`"`)
			if c.Slug == post.Category {
				p.raw(` selected`)
			}
			p.raw(`>`)
			p.text(c.Name)
			p.raw(`</option>`)
		}
		p.raw(`</select></label>
<label>Author <select name="author_id"><option value="">None</option>`)
		for _, a := range authors {
			p.raw(`<option value="`)
			p.text(a.ID)
			p.raw(`"`)
			if a.ID == post.AuthorID {
				p.raw(` selected`)
			}
			p.raw(`>`)
			p.text(a.Name)
			p.raw(`</option>`)
		}
		p.raw(`</select></label>
<label>Summary <textarea name="summary" rows="2">`)
		p.text(post.Summary)
		p.raw(`</textarea></label>
<label>Content <textarea name="content" rows="16">`)
		p.text(post.Content)
		p.raw(`</textarea></label>
<label><input type="checkbox" name="published" value="1"`)
		if post.Published {
			p.raw(` checked`)
		}
		p.raw(`> Published</label>
<button type="submit">Save</button>
</form>
`)
		if post.Slug != "" {
			if post.CoverImage != "" {
				p.raw(`<img class="cover-preview" src="`)
				p.url(CoverURL(post.CoverImage))
				p.raw(`" alt="">
`)
			}
			p.raw(`<form method="post" enctype="multipart/form-data" action="`)
			p.url("/admin/post/" + url.PathEscape(post.Slug) + "/cover/")
			p.raw(`">`)
			p.csrf(csrfToken)
			p.raw(`<label>Cover image <input type="file" name="cover" accept="image/jpeg,image/png,image/gif" required></label>
<button type="submit">Upload cover</button>
</form>
`)
		}
		p.raw(`</section>
`)
	})
}

func (p *page) adminTaxonomy(data AdminData) {
	p.raw(`<section id="taxonomy"><h2>Categories</h2><ul>`)
	for _, c := range data.Categories {
		p.raw(`<li>`)
		p.text(c.Name)
		p.raw(` (`, strconv.Itoa(c.Count), `)</li>`)
	}
	p.raw(`</ul>
<form method="post" action="/admin/categories/">`)
	p.csrf(data.CSRF)
	p.raw(`<input type="text" name="name" placeholder="Name" required><input type="text" name="description" placeholder="Description"><button type="submit">Add category</button></form>
<h2>Authors</h2><ul>`)
	for _, a := range data.Authors {
		p.raw(`<li>`)
		p.text(a.Name)
		if a.Role != "" {
			p.raw(`, `)
			p.text(a.Role)
		}
		p.raw(`</li>`)
	}
	p.raw(`</ul>
<form method="post" action="/admin/authors/">`)
	p.csrf(data.CSRF)
	p.raw(`<input type="text" name="name" placeholder="Name" required><input type="text" name="role" placeholder="Role"><input type="url" name="avatar_url" placeholder="Avatar URL"><button type="submit">Add author</button></form>
</section>
`)
}
