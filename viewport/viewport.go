// Package viewport holds the viewport helpers shared by the server and the
// embedded browser scripts: the --vh custom property that works around
// mobile browser chrome, scroll progress, and mobile device detection.
package viewport

import (
	"math"
	"strconv"
	"sync"
)

// Event names a Window dispatches.
const (
	EventResize            = "resize"
	EventOrientationChange = "orientationchange"
	EventScroll            = "scroll"
)

// HeightProperty is the CSS custom property holding 1% of the inner height.
const HeightProperty = "--vh"

// Window is the slice of a browser window the helpers need.
// AddEventListener returns a function that removes the listener.
type Window interface {
	InnerHeight() float64
	ScrollTop() float64
	DocumentHeight() float64
	SetProperty(name, value string)
	AddEventListener(event string, fn func()) (remove func())
}

// HeightVar returns the --vh value for an inner height in pixels.
func HeightVar(innerHeight float64) string {
	if innerHeight < 0 || math.IsNaN(innerHeight) {
		innerHeight = 0
	}
	return strconv.FormatFloat(innerHeight/100, 'f', -1, 64) + "px"
}

// ScrollProgress returns how far through the scrollable range the page is,
// in percent. A page with no scrollable range reports 0.
func ScrollProgress(scrollTop, documentHeight, viewportHeight float64) float64 {
	scrollable := documentHeight - viewportHeight
	if scrollable <= 0 || math.IsNaN(scrollable) || math.IsNaN(scrollTop) {
		return 0
	}
	p := scrollTop / scrollable * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Normalizer keeps --vh in sync with the window height on resize and
// orientation change.
type Normalizer struct {
	mu       sync.Mutex
	attached bool
	removers []func()
}

// Attach applies --vh immediately and registers the listeners. Calling it
// while already attached does nothing.
func (n *Normalizer) Attach(w Window) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.attached {
		return
	}
	apply := func() {
		w.SetProperty(HeightProperty, HeightVar(w.InnerHeight()))
	}
	apply()
	n.removers = []func(){
		w.AddEventListener(EventResize, apply),
		w.AddEventListener(EventOrientationChange, apply),
	}
	n.attached = true
}

// Detach removes the listeners. Calling it while detached does nothing.
func (n *Normalizer) Detach() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.attached {
		return
	}
	for _, remove := range n.removers {
		remove()
	}
	n.removers = nil
	n.attached = false
}

// ScrollTracker reports scroll progress to a callback on every scroll event.
type ScrollTracker struct {
	OnProgress func(percent float64)

	mu     sync.Mutex
	remove func()
	max    float64
}

// Attach registers the scroll listener and reports the current position.
func (t *ScrollTracker) Attach(w Window) {
	t.mu.Lock()
	if t.remove != nil {
		t.mu.Unlock()
		return
	}
	t.remove = w.AddEventListener(EventScroll, func() { t.report(w) })
	t.mu.Unlock()
	t.report(w)
}

func (t *ScrollTracker) report(w Window) {
	p := ScrollProgress(w.ScrollTop(), w.DocumentHeight(), w.InnerHeight())
	t.mu.Lock()
	if p > t.max {
		t.max = p
	}
	t.mu.Unlock()
	if t.OnProgress != nil {
		t.OnProgress(p)
	}
}

// Max returns the deepest progress seen since the tracker was created.
func (t *ScrollTracker) Max() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.max
}

// Detach removes the scroll listener.
func (t *ScrollTracker) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remove == nil {
		return
	}
	t.remove()
	t.remove = nil
}
