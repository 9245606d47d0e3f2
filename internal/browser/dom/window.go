// internal/browser/dom/window.go
package dom

import (
	"context"

	"github.com/xkilldash9x/inview/internal/browser/layout"
	"github.com/xkilldash9x/inview/pkg/inview"
	"golang.org/x/net/html"
)

// Window is a top level browsing context or the content window of an iframe.
type Window struct {
	host      *Host
	doc       *Document
	userAgent string
	scroll    layout.Point

	// frame and parent are set for iframe content windows.
	frame  *html.Node
	parent *Document
}

var _ inview.Window = (*Window)(nil)

func (w *Window) NodeType() inview.NodeType { return inview.WindowNode }

func (w *Window) SameNode(_ context.Context, other inview.Node) (bool, error) {
	o, ok := other.(*Window)
	return ok && o == w, nil
}

func (w *Window) Document(context.Context) (inview.Document, error) {
	return w.doc, nil
}

// Doc returns the window's document with its concrete type.
func (w *Window) Doc() *Document { return w.doc }

func (w *Window) UserAgent(context.Context) (string, error) {
	return w.userAgent, nil
}

// SetUserAgent changes the user agent the window reports.
func (w *Window) SetUserAgent(ua string) {
	w.host.mu.Lock()
	defer w.host.mu.Unlock()
	w.userAgent = ua
}

// ScrollTo scrolls the viewport. Offsets are clamped to the scrollable range
// when layout runs.
func (w *Window) ScrollTo(x, y float64) {
	w.host.mu.Lock()
	defer w.host.mu.Unlock()
	w.scroll = layout.Point{X: x, Y: y}
	w.host.invalidate()
}

// ScrollOffset returns the clamped scroll position of the viewport.
func (w *Window) ScrollOffset() (x, y float64) {
	w.host.mu.Lock()
	defer w.host.mu.Unlock()
	t := w.doc.layout()
	if t == nil {
		return 0, 0
	}
	return t.Viewport.Scroll.X, t.Viewport.Scroll.Y
}

// size is the outer viewport size, scrollbars included. Callers hold the host lock.
func (w *Window) size() (width, height float64) {
	if w.frame == nil {
		return w.host.opts.ViewportWidth, w.host.opts.ViewportHeight
	}
	if w.parent == nil {
		return 0, 0
	}
	t := w.parent.layout()
	if t == nil {
		return 0, 0
	}
	b := t.Box(w.frame)
	if b == nil {
		return 0, 0
	}
	return b.ClientWidth(), b.ClientHeight()
}
