// internal/browser/cdp/nodes.go
package cdp

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/runtime"

	"github.com/xkilldash9x/inview/pkg/inview"
)

const (
	tagNamesJS = `function() { return Array.from(this, e => e.tagName.toLowerCase()); }`

	sameNodeJS = `function(o) { return this === o; }`

	windowDocumentJS  = `function() { return this.document; }`
	windowUserAgentJS = `function() { return this.navigator.userAgent; }`

	documentViewJS      = `function() { return this.defaultView; }`
	documentCompatJS    = `function() { return this.compatMode; }`
	documentRootJS      = `function() { const e = this.documentElement; return e ? [e] : []; }`
	documentBodyJS      = `function() { const e = this.body; return e ? [e] : []; }`
	documentCreateJS    = `function(tag) { return [this.createElement(tag)]; }`
	documentSelectAllJS = `function(sel) { return Array.from(this.querySelectorAll(sel)); }`

	elementOwnerJS    = `function() { return this.ownerDocument; }`
	elementFrameJS    = `function() { return this.contentWindow; }`
	elementContainsJS = `function(o) { return this !== o && this.contains(o); }`
	elementStyleJS    = `function(props) {
	const view = this.ownerDocument.defaultView || window;
	const cs = view.getComputedStyle(this);
	const out = {};
	for (const p of props) out[p] = cs.getPropertyValue(p);
	return out;
}`
	elementRectJS = `function() {
	const r = this.getBoundingClientRect();
	return {top: r.top, right: r.right, bottom: r.bottom, left: r.left};
}`
	elementMetricsJS = `function() {
	return {
		clientWidth: this.clientWidth, clientHeight: this.clientHeight,
		scrollWidth: this.scrollWidth, scrollHeight: this.scrollHeight,
		offsetWidth: this.offsetWidth || 0, offsetHeight: this.offsetHeight || 0
	};
}`
	elementSetStyleJS = `function(props) {
	for (const k of Object.keys(props)) {
		const v = props[k].trim();
		if (v === '') this.style.removeProperty(k); else this.style.setProperty(k, v);
	}
}`
	elementAppendJS = `function(c) { this.appendChild(c); }`
	elementRemoveJS = `function() { this.remove(); }`
)

// remote is a handle on one object in the page.
type remote struct {
	host *Host
	id   runtime.RemoteObjectID
}

// ObjectID returns the remote object id behind the handle.
func (r remote) ObjectID() runtime.RemoteObjectID { return r.id }

func (r remote) sameNode(ctx context.Context, other inview.Node) (bool, error) {
	var id runtime.RemoteObjectID
	switch o := other.(type) {
	case *Window:
		id = o.id
	case *Document:
		id = o.id
	case *Element:
		id = o.id
	default:
		return false, nil
	}
	if id == r.id {
		return true, nil
	}
	var same bool
	if err := r.host.callWith(ctx, r.id, id, sameNodeJS, &same); err != nil {
		return false, err
	}
	return same, nil
}

// Window is a browsing context in the page.
type Window struct{ remote }

var _ inview.Window = (*Window)(nil)

func (w *Window) NodeType() inview.NodeType { return inview.WindowNode }

func (w *Window) SameNode(ctx context.Context, other inview.Node) (bool, error) {
	return w.sameNode(ctx, other)
}

// Document fails with the browser's SecurityError for cross-origin frames.
func (w *Window) Document(ctx context.Context) (inview.Document, error) {
	id, err := w.host.callObject(ctx, w.id, windowDocumentJS)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("window has no document")
	}
	return &Document{remote{host: w.host, id: id}}, nil
}

func (w *Window) UserAgent(ctx context.Context) (string, error) {
	var ua string
	err := w.host.call(ctx, w.id, windowUserAgentJS, &ua)
	return ua, err
}

// Document is a DOM document in the page.
type Document struct{ remote }

var _ inview.Document = (*Document)(nil)

func (d *Document) NodeType() inview.NodeType { return inview.DocumentNode }

func (d *Document) SameNode(ctx context.Context, other inview.Node) (bool, error) {
	return d.sameNode(ctx, other)
}

func (d *Document) DefaultView(ctx context.Context) (inview.Window, error) {
	id, err := d.host.callObject(ctx, d.id, documentViewJS)
	if err != nil || id == "" {
		return nil, err
	}
	return &Window{remote{host: d.host, id: id}}, nil
}

func (d *Document) DocumentElement(ctx context.Context) (inview.Element, error) {
	return d.single(ctx, documentRootJS)
}

func (d *Document) Body(ctx context.Context) (inview.Element, error) {
	return d.single(ctx, documentBodyJS)
}

func (d *Document) single(ctx context.Context, fn string, args ...interface{}) (inview.Element, error) {
	els, err := d.host.callElements(ctx, d.id, fn, args...)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

func (d *Document) CompatMode(ctx context.Context) (string, error) {
	var mode string
	err := d.host.call(ctx, d.id, documentCompatJS, &mode)
	return mode, err
}

func (d *Document) CreateElement(ctx context.Context, tag string) (inview.Element, error) {
	return d.single(ctx, documentCreateJS, tag)
}

func (d *Document) QuerySelectorAll(ctx context.Context, selector string) ([]inview.Element, error) {
	return d.host.callElements(ctx, d.id, documentSelectAllJS, selector)
}

// Element is a DOM element in the page.
type Element struct {
	remote
	tag string
}

var _ inview.Element = (*Element)(nil)

func (e *Element) NodeType() inview.NodeType { return inview.ElementNode }

func (e *Element) SameNode(ctx context.Context, other inview.Node) (bool, error) {
	return e.sameNode(ctx, other)
}

func (e *Element) TagName() string { return e.tag }

func (e *Element) OwnerDocument(ctx context.Context) (inview.Document, error) {
	id, err := e.host.callObject(ctx, e.id, elementOwnerJS)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("<%s> has no owner document", e.tag)
	}
	return &Document{remote{host: e.host, id: id}}, nil
}

func (e *Element) ContentWindow(ctx context.Context) (inview.Window, error) {
	if e.tag != "iframe" && e.tag != "frame" {
		return nil, nil
	}
	id, err := e.host.callObject(ctx, e.id, elementFrameJS)
	if err != nil || id == "" {
		return nil, err
	}
	return &Window{remote{host: e.host, id: id}}, nil
}

func (e *Element) Contains(ctx context.Context, other inview.Element) (bool, error) {
	o, ok := other.(*Element)
	if !ok {
		return false, nil
	}
	var contains bool
	if err := e.host.callWith(ctx, e.id, o.id, elementContainsJS, &contains); err != nil {
		return false, err
	}
	return contains, nil
}

func (e *Element) ComputedStyle(ctx context.Context, props ...string) (map[string]string, error) {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = strings.ToLower(p)
	}
	out := make(map[string]string, len(names))
	if err := e.host.call(ctx, e.id, elementStyleJS, &out, names); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Element) BoundingClientRect(ctx context.Context) (inview.Rect, error) {
	var r inview.Rect
	err := e.host.call(ctx, e.id, elementRectJS, &r)
	return r, err
}

func (e *Element) Metrics(ctx context.Context) (inview.BoxMetrics, error) {
	var m inview.BoxMetrics
	err := e.host.call(ctx, e.id, elementMetricsJS, &m)
	return m, err
}

// SetStyle sets inline style properties. An empty value removes the property.
func (e *Element) SetStyle(ctx context.Context, props map[string]string) error {
	return e.host.call(ctx, e.id, elementSetStyleJS, nil, props)
}

func (e *Element) AppendChild(ctx context.Context, child inview.Element) error {
	c, ok := child.(*Element)
	if !ok {
		return fmt.Errorf("cannot append a foreign element to <%s>", e.tag)
	}
	return e.host.callWith(ctx, e.id, c.id, elementAppendJS, nil)
}

func (e *Element) Remove(ctx context.Context) error {
	return e.host.call(ctx, e.id, elementRemoveJS, nil)
}
