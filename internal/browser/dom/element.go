// internal/browser/dom/element.go
package dom

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xkilldash9x/inview/internal/browser/layout"
	"github.com/xkilldash9x/inview/internal/browser/parser"
	"github.com/xkilldash9x/inview/internal/browser/style"
	"github.com/xkilldash9x/inview/pkg/inview"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrHierarchy is returned for insertions that would create a cycle or move a
// node between documents.
var ErrHierarchy = errors.New("hierarchy request error")

// Element is a handle to an element of a static document. Handles are cheap;
// two handles to the same node are SameNode.
type Element struct {
	doc  *Document
	node *html.Node
}

var _ inview.Element = (*Element)(nil)

func (e *Element) NodeType() inview.NodeType { return inview.ElementNode }

func (e *Element) SameNode(_ context.Context, other inview.Node) (bool, error) {
	o, ok := other.(*Element)
	return ok && o.node == e.node, nil
}

func (e *Element) TagName() string { return strings.ToLower(e.node.Data) }

// HTMLNode exposes the underlying parse tree node.
func (e *Element) HTMLNode() *html.Node { return e.node }

func (e *Element) OwnerDocument(context.Context) (inview.Document, error) {
	return e.doc, nil
}

// ContentWindow returns the browsing context of an iframe that is part of a
// document shown in a window. Detached iframes have none.
func (e *Element) ContentWindow(context.Context) (inview.Window, error) {
	if e.node.DataAtom != atom.Iframe {
		return nil, nil
	}
	e.doc.host.mu.Lock()
	defer e.doc.host.mu.Unlock()
	if e.doc.win == nil || !e.doc.attached(e.node) {
		return nil, nil
	}
	return e.doc.host.frameWindow(e.doc, e.node), nil
}

func (e *Element) Contains(_ context.Context, other inview.Element) (bool, error) {
	o, ok := other.(*Element)
	if !ok || o.doc != e.doc {
		return false, nil
	}
	e.doc.host.mu.Lock()
	defer e.doc.host.mu.Unlock()
	return isAncestor(e.node, o.node), nil
}

// isAncestor reports whether a is a strict ancestor of n.
func isAncestor(a, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

// -- Geometry --

// box returns the element's layout box, nil when it is detached or not rendered.
// Callers hold the host lock.
func (e *Element) box() (*layout.Tree, *layout.LayoutBox) {
	if !e.doc.attached(e.node) {
		return nil, nil
	}
	t := e.doc.layout()
	if t == nil {
		return nil, nil
	}
	return t, t.Box(e.node)
}

// BoundingClientRect returns the border box relative to the viewport. Elements
// without a box report an empty rectangle at the origin.
func (e *Element) BoundingClientRect(context.Context) (inview.Rect, error) {
	e.doc.host.mu.Lock()
	defer e.doc.host.mu.Unlock()
	t, b := e.box()
	if b == nil {
		return inview.Rect{}, nil
	}
	r := t.ClientRect(b)
	return inview.Rect{Top: r.Y, Right: r.X + r.Width, Bottom: r.Y + r.Height, Left: r.X}, nil
}

// Metrics reports client, scroll and offset sizes. The root element and the
// body follow the document's compat mode: the one that stands for the viewport
// reports viewport sizes.
func (e *Element) Metrics(context.Context) (inview.BoxMetrics, error) {
	e.doc.host.mu.Lock()
	defer e.doc.host.mu.Unlock()
	t, b := e.box()
	if b == nil {
		return inview.BoxMetrics{}, nil
	}

	bb := b.BorderBox()
	m := inview.BoxMetrics{
		ClientWidth:  b.ClientWidth(),
		ClientHeight: b.ClientHeight(),
		ScrollWidth:  b.ScrollWidth,
		ScrollHeight: b.ScrollHeight,
		OffsetWidth:  bb.Width,
		OffsetHeight: bb.Height,
	}
	vp := t.Viewport
	legacy := e.doc.host.opts.BodyScrollReportsDocument

	switch e.node {
	case e.doc.documentElement():
		if !e.doc.quirks {
			m.ClientWidth, m.ClientHeight = vp.Width, vp.Height
		}
		if legacy {
			m.ScrollWidth, m.ScrollHeight = m.ClientWidth, m.ClientHeight
		} else {
			m.ScrollWidth, m.ScrollHeight = vp.ScrollWidth, vp.ScrollHeight
		}
	case e.doc.body():
		if e.doc.quirks {
			m.ClientWidth, m.ClientHeight = vp.Width, vp.Height
		}
		switch {
		case legacy && specifiedOverflowClips(b):
			m.ScrollWidth, m.ScrollHeight = vp.Width, vp.Height
		case legacy, e.doc.quirks:
			m.ScrollWidth, m.ScrollHeight = vp.ScrollWidth, vp.ScrollHeight
		}
	}
	return m, nil
}

// specifiedOverflowClips looks at the body's own overflow, before it moved to the viewport.
func specifiedOverflowClips(b *layout.LayoutBox) bool {
	x, y := b.StyledNode.Overflow()
	return x != "visible" || y != "visible"
}

// ScrollTo scrolls a scroll container. The offset is clamped during layout.
func (e *Element) ScrollTo(x, y float64) {
	e.doc.host.mu.Lock()
	defer e.doc.host.mu.Unlock()
	e.doc.scroll[e.node] = layout.Point{X: x, Y: y}
	e.doc.host.invalidate()
}

// ScrollOffset returns the clamped scroll position of the element.
func (e *Element) ScrollOffset() (x, y float64) {
	e.doc.host.mu.Lock()
	defer e.doc.host.mu.Unlock()
	if _, b := e.box(); b != nil {
		return b.Scroll.X, b.Scroll.Y
	}
	return 0, 0
}

// -- Computed Style --

// ComputedStyle resolves the requested properties. Box edges and sizes of a
// rendered element are used values in px; everything else is the cascaded
// value. Detached elements report empty strings.
func (e *Element) ComputedStyle(_ context.Context, props ...string) (map[string]string, error) {
	e.doc.host.mu.Lock()
	defer e.doc.host.mu.Unlock()

	out := make(map[string]string, len(props))
	_, b := e.box()
	sn := e.doc.styled[e.node]
	if sn == nil || !e.doc.attached(e.node) {
		for _, p := range props {
			out[p] = ""
		}
		return out, nil
	}

	for _, p := range props {
		p = strings.ToLower(strings.TrimSpace(p))
		if v, ok := usedValue(b, p); ok {
			out[p] = v
			continue
		}
		switch p {
		case "overflow":
			x, y := sn.Overflow()
			if x == y {
				out[p] = x
			} else {
				out[p] = x + " " + y
			}
		default:
			out[p] = sn.Lookup(p, "")
		}
	}
	return out, nil
}

// usedValue reads box geometry properties off the layout.
func usedValue(b *layout.LayoutBox, prop string) (string, bool) {
	if b == nil {
		return "", false
	}
	var e layout.Edges
	var side string
	switch {
	case strings.HasPrefix(prop, "margin-"):
		e, side = b.Margin, strings.TrimPrefix(prop, "margin-")
	case strings.HasPrefix(prop, "padding-"):
		e, side = b.Padding, strings.TrimPrefix(prop, "padding-")
	case strings.HasPrefix(prop, "border-") && strings.HasSuffix(prop, "-width"):
		e, side = b.Border, strings.TrimSuffix(strings.TrimPrefix(prop, "border-"), "-width")
	case prop == "width":
		return style.FormatPx(b.Content.Width), true
	case prop == "height":
		return style.FormatPx(b.Content.Height), true
	default:
		return "", false
	}
	switch side {
	case "top":
		return style.FormatPx(e.Top), true
	case "right":
		return style.FormatPx(e.Right), true
	case "bottom":
		return style.FormatPx(e.Bottom), true
	case "left":
		return style.FormatPx(e.Left), true
	}
	return "", false
}

// -- Mutation --

// SetStyle merges properties into the element's style attribute. An empty
// value removes the property.
func (e *Element) SetStyle(_ context.Context, props map[string]string) error {
	e.doc.host.mu.Lock()
	defer e.doc.host.mu.Unlock()

	current, _ := attr(e.node, "style")
	decls, err := parser.ParseDeclarations(current)
	if err != nil {
		decls = nil
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		prop := parser.Property(strings.ToLower(strings.TrimSpace(k)))
		kept := decls[:0]
		for _, d := range decls {
			if d.Property != prop {
				kept = append(kept, d)
			}
		}
		decls = kept
		if v := strings.TrimSpace(props[k]); v != "" {
			decls = append(decls, parser.Declaration{Property: prop, Value: parser.Value(v)})
		}
	}
	setAttr(e.node, "style", parser.FormatDeclarations(decls))
	e.doc.host.invalidate()
	return nil
}

// AppendChild moves child to the end of the element's children.
func (e *Element) AppendChild(_ context.Context, child inview.Element) error {
	c, ok := child.(*Element)
	if !ok {
		return fmt.Errorf("%w: foreign element", ErrHierarchy)
	}
	if c.doc != e.doc {
		return fmt.Errorf("%w: element belongs to another document", ErrHierarchy)
	}
	e.doc.host.mu.Lock()
	defer e.doc.host.mu.Unlock()
	if c.node == e.node || isAncestor(c.node, e.node) {
		return fmt.Errorf("%w: <%s> cannot contain its ancestor <%s>", ErrHierarchy, e.TagName(), c.TagName())
	}
	if c.node.Parent != nil {
		e.doc.detach(c.node)
	}
	e.node.AppendChild(c.node)
	e.doc.host.invalidate()
	return nil
}

// Remove detaches the element. Iframes inside it lose their browsing context.
func (e *Element) Remove(context.Context) error {
	e.doc.host.mu.Lock()
	defer e.doc.host.mu.Unlock()
	if e.node.Parent == nil {
		return nil
	}
	e.doc.detach(e.node)
	e.doc.host.invalidate()
	return nil
}

// detach unlinks n and discards the frames and scroll state of its subtree.
func (d *Document) detach(n *html.Node) {
	n.Parent.RemoveChild(n)
	var walk func(x *html.Node)
	walk = func(x *html.Node) {
		if win, ok := d.frames[x]; ok {
			win.doc.win = nil
			win.parent = nil
			delete(d.frames, x)
		}
		delete(d.scroll, x)
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
}
