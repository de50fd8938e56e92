package views

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// page accumulates the first write error so templates read top to bottom.
type page struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newPage(ctx context.Context, w io.Writer) *page {
	return &page{ctx: ctx, w: w}
}

// raw writes trusted markup.
func (p *page) raw(parts ...string) {
	for _, s := range parts {
		if p.err != nil {
			return
		}
		_, p.err = io.WriteString(p.w, s)
	}
}

// text writes s HTML-escaped. It is also safe inside quoted attributes.
func (p *page) text(s string) {
	p.raw(templ.EscapeString(s))
}

// url writes a sanitized, escaped URL for href and src attributes.
func (p *page) url(s string) {
	p.text(string(templ.URL(s)))
}

func (p *page) render(c templ.Component) {
	if p.err != nil || c == nil {
		return
	}
	p.err = c.Render(p.ctx, p.w)
}

func (p *page) csrf(token string) {
	p.raw(`<input type="hidden" name="_csrf" value="`)
	p.text(token)
	p.raw(`">`)
}

// component adapts a writer function into a templ.Component.
func component(fn func(p *page)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := newPage(ctx, w)
		fn(p)
		return p.err
	})
}

// paragraphs renders plain text as escaped paragraphs split on blank
// lines, with single newlines kept as line breaks.
func (p *page) paragraphs(body string) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	for _, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		p.raw("<p>")
		for i, line := range strings.Split(para, "\n") {
			if i > 0 {
				p.raw("<br>")
			}
			p.text(line)
		}
		p.raw("</p>\n")
	}
}

// FormatDate turns YYYY-MM-DD into "Jan 2, 2006", leaving other input as is.
func FormatDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Jan 2, 2006")
}
