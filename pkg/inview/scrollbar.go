// pkg/inview/scrollbar.go
package inview

import (
	"context"
	"fmt"
)

// ScrollbarState reports scrollbar presence per axis. Only the axes named by
// Axis are evaluated; the other field stays false.
type ScrollbarState struct {
	Axis       Axis `json:"axis"`
	Horizontal bool `json:"horizontal"`
	Vertical   bool `json:"vertical"`
}

// Present reports whether a scrollbar shows on any of the queried axes.
func (s *ScrollbarState) Present() bool {
	return s != nil && (s.Horizontal || s.Vertical)
}

// ScrollbarSizes holds the space, in pixels, scrollbars take up on each axis.
type ScrollbarSizes struct {
	Axis       Axis    `json:"axis"`
	Horizontal float64 `json:"horizontal"`
	Vertical   float64 `json:"vertical"`
}

// scrollTargetKind classifies what a scrollbar query is really about.
type scrollTargetKind int

const (
	targetWindow scrollTargetKind = iota
	targetBody
	targetElement
)

type scrollTarget struct {
	kind scrollTargetKind
	doc  Document
	el   Element
}

// classifyScrollTarget maps windows, documents, the root element and iframe
// elements to a window query, and tells the body apart from other elements.
func classifyScrollTarget(ctx context.Context, n Node) (scrollTarget, error) {
	if n == nil {
		return scrollTarget{}, newInvalidArgument("target", "nil", "must be a window, document or element")
	}
	switch n.NodeType() {
	case WindowNode:
		w, ok := n.(Window)
		if !ok {
			break
		}
		doc, err := w.Document(ctx)
		if err != nil {
			return scrollTarget{}, fmt.Errorf("reading window document: %w", err)
		}
		return scrollTarget{kind: targetWindow, doc: doc}, nil
	case DocumentNode:
		doc, ok := n.(Document)
		if !ok {
			break
		}
		return scrollTarget{kind: targetWindow, doc: doc}, nil
	case ElementNode:
		el, ok := n.(Element)
		if !ok {
			break
		}
		return classifyElementTarget(ctx, el)
	}
	return scrollTarget{}, newInvalidArgument("target", n.NodeType().String(), "must be a window, document or element")
}

func classifyElementTarget(ctx context.Context, el Element) (scrollTarget, error) {
	if el.TagName() == "iframe" {
		win, err := el.ContentWindow(ctx)
		if err != nil {
			return scrollTarget{}, fmt.Errorf("reading iframe content window: %w", err)
		}
		if win == nil {
			return scrollTarget{}, newInvalidArgument("target", "iframe", "iframe has no content window")
		}
		doc, err := win.Document(ctx)
		if err != nil {
			return scrollTarget{}, fmt.Errorf("reading iframe document: %w", err)
		}
		return scrollTarget{kind: targetWindow, doc: doc}, nil
	}

	doc, err := el.OwnerDocument(ctx)
	if err != nil {
		return scrollTarget{}, fmt.Errorf("reading owner document: %w", err)
	}
	switch el.TagName() {
	case "html":
		root, err := doc.DocumentElement(ctx)
		if err != nil {
			return scrollTarget{}, err
		}
		if same, err := sameNode(ctx, el, root); err != nil || same {
			return scrollTarget{kind: targetWindow, doc: doc}, err
		}
	case "body":
		body, err := doc.Body(ctx)
		if err != nil {
			return scrollTarget{}, err
		}
		if same, err := sameNode(ctx, el, body); err != nil || same {
			return scrollTarget{kind: targetBody, doc: doc, el: el}, err
		}
	}
	return scrollTarget{kind: targetElement, doc: doc, el: el}, nil
}

func sameNode(ctx context.Context, a, b Node) (bool, error) {
	if a == nil || b == nil {
		return false, nil
	}
	return a.SameNode(ctx, b)
}

// HasScrollbar reports whether the first target shows a scrollbar on the
// requested axes. The zero Axis means Both. It returns nil for an empty target set.
func (e *Engine) HasScrollbar(ctx context.Context, targets []Node, axis Axis) (*ScrollbarState, error) {
	axis, err := axis.normalize("axis")
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}
	t, err := classifyScrollTarget(ctx, targets[0])
	if err != nil {
		return nil, err
	}

	var h, v bool
	switch t.kind {
	case targetWindow:
		h, v, err = e.windowScrollbars(ctx, t.doc, axis)
	case targetBody:
		h, v, err = bodyScrollbars(ctx, t.el, axis)
	default:
		h, v, err = e.elementScrollbars(ctx, t.doc, t.el)
	}
	if err != nil {
		return nil, err
	}
	return &ScrollbarState{Axis: axis, Horizontal: h && axis.horizontal(), Vertical: v && axis.vertical()}, nil
}

// ScrollbarSize reports the space taken by the first target's scrollbars: the
// browser scrollbar width on axes that show one, 0 elsewhere.
func (e *Engine) ScrollbarSize(ctx context.Context, targets []Node, axis Axis) (*ScrollbarSizes, error) {
	axis, err := axis.normalize("axis")
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}
	doc, err := documentOf(ctx, targets[0])
	if err != nil {
		return nil, err
	}
	width, err := e.scrollbarWidthIn(ctx, doc)
	if err != nil {
		return nil, err
	}
	sizes := &ScrollbarSizes{Axis: axis}
	if width == 0 {
		return sizes, nil
	}
	state, err := e.HasScrollbar(ctx, targets, axis)
	if err != nil {
		return nil, err
	}
	if state.Horizontal {
		sizes.Horizontal = width
	}
	if state.Vertical {
		sizes.Vertical = width
	}
	return sizes, nil
}

// -- Ordinary elements --

// elementScrollbars applies the overflow rules to the element, then checks
// whether a scrollbar on one axis squeezes the other axis into scrolling too.
func (e *Engine) elementScrollbars(ctx context.Context, doc Document, el Element) (h, v bool, err error) {
	of, _, err := overflowOf(ctx, el)
	if err != nil {
		return false, false, err
	}
	m, err := el.Metrics(ctx)
	if err != nil {
		return false, false, fmt.Errorf("reading metrics of <%s>: %w", el.TagName(), err)
	}
	innerW, innerH, err := innerSize(ctx, el, m)
	if err != nil {
		return false, false, err
	}

	h = m.ScrollWidth > 0 && (of.X == overflowScroll || of.X == overflowAuto && innerW < m.ScrollWidth)
	v = m.ScrollHeight > 0 && (of.Y == overflowScroll || of.Y == overflowAuto && innerH < m.ScrollHeight)
	if h == v {
		return h, v, nil
	}

	width, err := e.scrollbarWidthIn(ctx, doc)
	if err != nil {
		return false, false, err
	}
	if h && of.Y == overflowAuto {
		v = m.ScrollHeight > 0 && innerH-width < m.ScrollHeight
	}
	if v && of.X == overflowAuto {
		h = m.ScrollWidth > 0 && innerW-width < m.ScrollWidth
	}
	return h, v, nil
}

// innerSize is the padding box including any scrollbar gutter.
func innerSize(ctx context.Context, el Element, m BoxMetrics) (w, h float64, err error) {
	b, err := edgesOf(ctx, el, borderProps)
	if err != nil {
		return 0, 0, err
	}
	return m.OffsetWidth - b.Left - b.Right, m.OffsetHeight - b.Top - b.Bottom, nil
}

// -- The body as its own target --

// bodyScrollbars looks at the body's own overflow only. With overflow: auto an
// overlay scrollbar cannot be told apart from a classic one.
func bodyScrollbars(ctx context.Context, body Element, axis Axis) (h, v bool, err error) {
	of, _, err := overflowOf(ctx, body)
	if err != nil {
		return false, false, err
	}
	m, err := body.Metrics(ctx)
	if err != nil {
		return false, false, fmt.Errorf("reading body metrics: %w", err)
	}
	if axis.horizontal() {
		h = of.X == overflowScroll || of.X == overflowAuto && m.ScrollWidth > m.ClientWidth
	}
	if axis.vertical() {
		v = of.Y == overflowScroll || of.Y == overflowAuto && m.ScrollHeight > m.ClientHeight
	}
	return h, v, nil
}

// -- Window scrollbars --

// viewportOverflow is the effective overflow of the viewport and the body after
// the browser has moved the body's overflow to the viewport where the root
// element leaves it visible.
type viewportOverflow struct {
	window     overflowRecord
	body       overflowRecord
	positioned bool
}

func (e *Engine) resolveViewportOverflow(ctx context.Context, doc Document, root, body Element) (viewportOverflow, error) {
	var vo viewportOverflow
	var err error

	vo.window, _, err = overflowOf(ctx, root)
	if err != nil {
		return vo, err
	}
	vo.body = overflowRecord{X: overflowVisible, Y: overflowVisible}
	if body != nil {
		var props map[string]string
		vo.body, props, err = overflowOf(ctx, body)
		if err != nil {
			return vo, err
		}
		vo.positioned = props["position"] == "relative" || props["position"] == "absolute"
	}

	if vo.window.X == overflowVisible {
		vo.window.X, vo.body.X = vo.body.X, overflowVisible
	}
	if vo.window.Y == overflowVisible {
		vo.window.Y, vo.body.Y = vo.body.Y, overflowVisible
	}
	if vo.window.X == overflowVisible {
		vo.window.X = overflowAuto
	}
	if vo.window.Y == overflowVisible {
		vo.window.Y = overflowAuto
	}

	if vo.window.X == overflowHidden || vo.window.Y == overflowHidden {
		win, err := doc.DefaultView(ctx)
		if err != nil {
			return vo, err
		}
		if win != nil {
			ios, err := e.isIOS(ctx, win)
			if err != nil {
				return vo, err
			}
			if ios {
				if vo.window.X == overflowHidden {
					vo.window.X = overflowAuto
				}
				if vo.window.Y == overflowHidden {
					vo.window.Y = overflowAuto
				}
			}
		}
	}
	return vo, nil
}

func (e *Engine) windowScrollbars(ctx context.Context, doc Document, axis Axis) (h, v bool, err error) {
	root, err := doc.DocumentElement(ctx)
	if err != nil {
		return false, false, err
	}
	if root == nil {
		return false, false, newInvalidArgument("target", "document", "document has no root element")
	}
	body, err := doc.Body(ctx)
	if err != nil {
		return false, false, err
	}
	vo, err := e.resolveViewportOverflow(ctx, doc, root, body)
	if err != nil {
		return false, false, err
	}

	w := &windowGeometry{engine: e, doc: doc, root: root, body: body, overflow: vo}
	if axis.horizontal() {
		if h, err = w.scrollbar(ctx, true); err != nil {
			return false, false, err
		}
	}
	if axis.vertical() {
		if v, err = w.scrollbar(ctx, false); err != nil {
			return false, false, err
		}
	}
	return h, v, nil
}

// windowGeometry lazily reads what the per-axis window tests share.
type windowGeometry struct {
	engine   *Engine
	doc      Document
	root     Element
	body     Element
	overflow viewportOverflow

	client *BoxMetrics
}

func (w *windowGeometry) scrollbar(ctx context.Context, horizontal bool) (bool, error) {
	switch w.overflow.window.axis(horizontal) {
	case overflowScroll:
		return true, nil
	case overflowAuto:
	default:
		return false, nil
	}

	if w.client == nil {
		m, err := viewportMetrics(ctx, w.doc, w.root, w.body)
		if err != nil {
			return false, err
		}
		w.client = &m
	}
	extent, err := w.documentExtent(ctx, horizontal)
	if err != nil {
		return false, err
	}
	if horizontal {
		return w.client.ClientWidth < extent, nil
	}
	return w.client.ClientHeight < extent, nil
}

// documentExtent is the size of the document along one axis. A positioned body
// that clips its content contains every descendant, so its box alone spans the
// document and the extent is computed from the box model. In all other cases the
// engine asks whichever element reports the document size.
func (w *windowGeometry) documentExtent(ctx context.Context, horizontal bool) (float64, error) {
	if w.body != nil && w.overflow.positioned && w.overflow.body.axis(horizontal).obscures() {
		return analyticExtent(ctx, w.root, w.body, horizontal)
	}

	source := w.root
	if w.body != nil {
		src, err := w.engine.documentSizeSource(ctx, w.doc)
		if err != nil {
			return 0, err
		}
		if src == sourceBody {
			source = w.body
		}
	}
	m, err := source.Metrics(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading document size: %w", err)
	}
	if horizontal {
		return m.ScrollWidth, nil
	}
	return m.ScrollHeight, nil
}

func analyticExtent(ctx context.Context, root, body Element, horizontal bool) (float64, error) {
	var rootProps, bodyProps []string
	if horizontal {
		rootProps = []string{
			"margin-left", "border-left-width", "padding-left",
			"padding-right", "border-right-width", "margin-right",
		}
		bodyProps = []string{"margin-left", "margin-right"}
	} else {
		rootProps = []string{
			"margin-top", "border-top-width", "padding-top",
			"padding-bottom", "border-bottom-width", "margin-bottom",
		}
		bodyProps = []string{"margin-top", "margin-bottom"}
	}
	rv, err := floatsOf(ctx, root, rootProps...)
	if err != nil {
		return 0, err
	}
	bv, err := floatsOf(ctx, body, bodyProps...)
	if err != nil {
		return 0, err
	}
	m, err := body.Metrics(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading body metrics: %w", err)
	}

	extent := m.OffsetHeight
	if horizontal {
		extent = m.OffsetWidth
	}
	for _, p := range rootProps {
		extent += rv[p]
	}
	for _, p := range bodyProps {
		extent += bv[p]
	}
	return extent, nil
}

// viewportMetrics reads the window's client size, from the body in quirks mode.
func viewportMetrics(ctx context.Context, doc Document, root, body Element) (BoxMetrics, error) {
	mode, err := doc.CompatMode(ctx)
	if err != nil {
		return BoxMetrics{}, fmt.Errorf("reading compat mode: %w", err)
	}
	el := root
	if mode == "BackCompat" && body != nil {
		el = body
	}
	m, err := el.Metrics(ctx)
	if err != nil {
		return BoxMetrics{}, fmt.Errorf("reading viewport size: %w", err)
	}
	return m, nil
}
