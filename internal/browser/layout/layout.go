// internal/browser/layout/layout.go
package layout

import (
	"math"
	"strconv"
	"strings"

	"github.com/xkilldash9x/inview/internal/browser/style"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// -- Core Structures: Box Model and Dimensions --

// Dimensions defines the geometry of a layout box.
type Dimensions struct {
	// Content area (x, y) relative to the canvas origin, before any scrolling.
	Content Rect

	Padding Edges
	Border  Edges
	Margin  Edges
}

// MarginBox returns the rectangle enclosing the margin area.
func (d Dimensions) MarginBox() Rect {
	return d.BorderBox().ExpandedBy(d.Margin)
}

// BorderBox returns the rectangle enclosing the border area.
func (d Dimensions) BorderBox() Rect {
	return d.PaddingBox().ExpandedBy(d.Border)
}

// PaddingBox returns the rectangle enclosing the padding area.
func (d Dimensions) PaddingBox() Rect {
	return d.Content.ExpandedBy(d.Padding)
}

type Rect struct {
	X, Y, Width, Height float64
}

// ExpandedBy returns a new rectangle expanded by the edge sizes.
func (r Rect) ExpandedBy(e Edges) Rect {
	return Rect{
		X:      r.X - e.Left,
		Y:      r.Y - e.Top,
		Width:  r.Width + e.Left + e.Right,
		Height: r.Height + e.Top + e.Bottom,
	}
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

type Edges struct {
	Top, Right, Bottom, Left float64
}

// Point is a scroll position.
type Point struct {
	X, Y float64
}

// -- Overflow --

type Overflow int

const (
	OverflowVisible Overflow = iota
	OverflowHidden
	OverflowScroll
	OverflowAuto
)

func parseOverflow(v string) Overflow {
	switch v {
	case "hidden", "clip":
		return OverflowHidden
	case "scroll":
		return OverflowScroll
	case "auto", "overlay":
		return OverflowAuto
	default:
		return OverflowVisible
	}
}

func (o Overflow) String() string {
	switch o {
	case OverflowHidden:
		return "hidden"
	case OverflowScroll:
		return "scroll"
	case OverflowAuto:
		return "auto"
	default:
		return "visible"
	}
}

// -- Layout Tree (Box Tree) --

// LayoutBox is a node in the Layout Tree. Every rendered element becomes a
// block-level box; runs of text become anonymous boxes.
type LayoutBox struct {
	Dimensions
	StyledNode      *style.StyledNode
	Parent          *LayoutBox
	Children        []*LayoutBox
	ContainingBlock *LayoutBox // nil for the root and boxes placed against the viewport
	Anonymous       bool
	Position        style.PositionType
	Fixed           bool

	OverflowX, OverflowY Overflow
	// ScrollbarX is a horizontal scrollbar (it takes height), ScrollbarY a vertical one.
	ScrollbarX, ScrollbarY    bool
	Scroll                    Point
	ScrollWidth, ScrollHeight float64

	text           string
	positioned     []*LayoutBox // absolutely positioned boxes using this box as containing block
	staticX        float64
	staticY        float64
	marginAutoLeft bool
	marginAutoRght bool
	sb             float64
}

// Node returns the DOM node of the box, nil for anonymous boxes.
func (b *LayoutBox) Node() *html.Node {
	if b.Anonymous || b.StyledNode == nil {
		return nil
	}
	return b.StyledNode.Node
}

func (b *LayoutBox) outOfFlow() bool {
	return b.Position == style.PositionAbsolute || b.Position == style.PositionFixed
}

// Clips reports whether the box hides overflowing content on either axis.
func (b *LayoutBox) Clips() bool {
	return b.OverflowX != OverflowVisible || b.OverflowY != OverflowVisible
}

func (b *LayoutBox) scrollbarWidths() (vertical, horizontal float64) {
	if b.ScrollbarY {
		vertical = b.sb
	}
	if b.ScrollbarX {
		horizontal = b.sb
	}
	return vertical, horizontal
}

// ClientWidth is the padding box width without a vertical scrollbar.
func (b *LayoutBox) ClientWidth() float64 {
	v, _ := b.scrollbarWidths()
	return math.Max(0, b.PaddingBox().Width-v)
}

// ClientHeight is the padding box height without a horizontal scrollbar.
func (b *LayoutBox) ClientHeight() float64 {
	_, h := b.scrollbarWidths()
	return math.Max(0, b.PaddingBox().Height-h)
}

func isReplaced(tag string) bool {
	switch tag {
	case "iframe", "img", "canvas", "video", "embed", "object", "svg":
		return true
	}
	return false
}

func (b *LayoutBox) tag() string {
	if n := b.Node(); n != nil && n.Type == html.ElementNode {
		return strings.ToLower(n.Data)
	}
	return ""
}

// -- Engine Core --

// Config describes the viewport a document is laid out in.
type Config struct {
	ViewportWidth  float64
	ViewportHeight float64
	ScrollbarWidth float64
	ViewportScroll Point
	// ScrollOffsets holds the requested scroll position of scroll containers.
	ScrollOffsets map[*html.Node]Point
}

// Viewport is the laid out state of the initial containing block.
type Viewport struct {
	// Width and Height are the client size, scrollbars excluded.
	Width, Height             float64
	OverflowX, OverflowY      Overflow
	ScrollbarX, ScrollbarY    bool
	ScrollWidth, ScrollHeight float64
	Scroll                    Point
	// Propagated is set when the body's overflow was moved to the viewport.
	Propagated bool
}

// Tree is the result of laying out one document.
type Tree struct {
	Root     *LayoutBox
	Body     *LayoutBox
	Viewport Viewport

	boxes      map[*html.Node]*LayoutBox
	positioned []*LayoutBox // boxes placed against the initial containing block
	order      []*LayoutBox // every box in document order
}

// Box returns the box generated by n, nil when n is not rendered.
func (t *Tree) Box(n *html.Node) *LayoutBox {
	return t.boxes[n]
}

type Engine struct {
	cfg    Config
	logger *zap.Logger
}

func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// BuildAndLayoutTree lays out the document whose root element is styled by
// styleRoot. It never returns nil.
func (e *Engine) BuildAndLayoutTree(styleRoot *style.StyledNode) *Tree {
	t := &Tree{boxes: make(map[*html.Node]*LayoutBox)}
	t.Viewport.Width, t.Viewport.Height = e.cfg.ViewportWidth, e.cfg.ViewportHeight
	if styleRoot == nil {
		return t
	}
	t.Root = e.buildLayoutTree(t, styleRoot, nil)
	if t.Root == nil {
		return t
	}
	e.assignContainingBlocks(t)
	e.resolveViewportOverflow(t)

	vp := &t.Viewport
	vp.ScrollbarY = vp.OverflowY == OverflowScroll
	vp.ScrollbarX = vp.OverflowX == OverflowScroll
	for pass := 0; pass < 3; pass++ {
		e.layoutDocument(t)
		needY := vp.OverflowY == OverflowAuto && !vp.ScrollbarY && vp.ScrollHeight > vp.Height
		needX := vp.OverflowX == OverflowAuto && !vp.ScrollbarX && vp.ScrollWidth > vp.Width
		if !needX && !needY {
			break
		}
		vp.ScrollbarY = vp.ScrollbarY || needY
		vp.ScrollbarX = vp.ScrollbarX || needX
	}

	e.finalizeScroll(t)
	e.logger.Debug("Document laid out.",
		zap.Int("boxes", len(t.order)),
		zap.Float64("scroll_width", vp.ScrollWidth),
		zap.Float64("scroll_height", vp.ScrollHeight))
	return t
}

func (e *Engine) buildLayoutTree(t *Tree, sn *style.StyledNode, parent *LayoutBox) *LayoutBox {
	switch sn.Node.Type {
	case html.TextNode:
		text := strings.Join(strings.Fields(sn.Node.Data), " ")
		if text == "" || parent == nil {
			return nil
		}
		b := &LayoutBox{StyledNode: sn, Parent: parent, Anonymous: true, text: text, sb: e.cfg.ScrollbarWidth}
		t.order = append(t.order, b)
		return b
	case html.ElementNode:
	default:
		return nil
	}
	if sn.Display() == style.DisplayNone {
		return nil
	}

	ox, oy := sn.Overflow()
	b := &LayoutBox{
		StyledNode: sn,
		Parent:     parent,
		Position:   sn.Position(),
		OverflowX:  parseOverflow(ox),
		OverflowY:  parseOverflow(oy),
		sb:         e.cfg.ScrollbarWidth,
	}
	b.Fixed = b.Position == style.PositionFixed
	t.boxes[sn.Node] = b
	t.order = append(t.order, b)
	if strings.EqualFold(sn.Node.Data, "body") && parent != nil && parent.Parent == nil {
		t.Body = b
	}

	if isReplaced(b.tag()) {
		return b
	}
	for _, child := range sn.Children {
		if cb := e.buildLayoutTree(t, child, b); cb != nil {
			b.Children = append(b.Children, cb)
		}
	}
	return b
}

// assignContainingBlocks links every box to the box its position and
// percentages refer to.
func (e *Engine) assignContainingBlocks(t *Tree) {
	for _, b := range t.order {
		switch {
		case b.Parent == nil:
			b.ContainingBlock = nil
		case b.Position == style.PositionFixed:
			b.ContainingBlock = nil
			t.positioned = append(t.positioned, b)
		case b.Position == style.PositionAbsolute:
			b.ContainingBlock = nil
			for a := b.Parent; a != nil; a = a.Parent {
				if a.Position != style.PositionStatic {
					b.ContainingBlock = a
					break
				}
			}
			if b.ContainingBlock == nil {
				t.positioned = append(t.positioned, b)
			} else {
				b.ContainingBlock.positioned = append(b.ContainingBlock.positioned, b)
			}
		default:
			b.ContainingBlock = b.Parent
		}
	}
}

// resolveViewportOverflow moves the root's overflow to the viewport, or the
// body's when the root leaves it visible. The viewport never shows overflow.
func (e *Engine) resolveViewportOverflow(t *Tree) {
	vp := &t.Viewport
	root := t.Root
	vp.OverflowX, vp.OverflowY = root.OverflowX, root.OverflowY
	if root.OverflowX == OverflowVisible && root.OverflowY == OverflowVisible && t.Body != nil {
		vp.OverflowX, vp.OverflowY = t.Body.OverflowX, t.Body.OverflowY
		t.Body.OverflowX, t.Body.OverflowY = OverflowVisible, OverflowVisible
		vp.Propagated = true
	}
	root.OverflowX, root.OverflowY = OverflowVisible, OverflowVisible
	if vp.OverflowX == OverflowVisible {
		vp.OverflowX = OverflowAuto
	}
	if vp.OverflowY == OverflowVisible {
		vp.OverflowY = OverflowAuto
	}
}

// layoutDocument lays out every box against the current viewport scrollbars.
func (e *Engine) layoutDocument(t *Tree) {
	vp := &t.Viewport
	vp.Width, vp.Height = e.cfg.ViewportWidth, e.cfg.ViewportHeight
	if vp.ScrollbarY {
		vp.Width = math.Max(0, vp.Width-e.cfg.ScrollbarWidth)
	}
	if vp.ScrollbarX {
		vp.Height = math.Max(0, vp.Height-e.cfg.ScrollbarWidth)
	}
	icb := Rect{Width: vp.Width, Height: vp.Height}

	e.layoutBox(t.Root, boxInput{cbWidth: icb.Width, cbHeight: icb.Height, width: -1, height: -1})
	for _, p := range t.positioned {
		e.layoutPositioned(p, icb)
	}

	right, bottom := t.extent(nil)
	mb := t.Root.MarginBox()
	vp.ScrollWidth = math.Max(vp.Width, math.Max(right, mb.Right()))
	vp.ScrollHeight = math.Max(vp.Height, math.Max(bottom, mb.Bottom()))
}

// -- Layout Algorithm (Flow and Positioning) --

// LayoutContext tracks the block flow of one container, collapsing adjoining
// vertical margins of siblings.
type LayoutContext struct {
	CurrentY          float64
	MaxNegativeMargin float64
	MaxPositiveMargin float64
}

func NewLayoutContext(startY float64) *LayoutContext {
	return &LayoutContext{CurrentY: startY}
}

func (lc *LayoutContext) AddToMarginTotals(margin float64) {
	if margin > 0 {
		lc.MaxPositiveMargin = math.Max(lc.MaxPositiveMargin, margin)
	} else if margin < lc.MaxNegativeMargin {
		lc.MaxNegativeMargin = margin
	}
}

func (lc *LayoutContext) CalculateCollapsedMargin() float64 {
	return lc.MaxPositiveMargin + lc.MaxNegativeMargin
}

func (lc *LayoutContext) ResetMargins() {
	lc.MaxNegativeMargin = 0
	lc.MaxPositiveMargin = 0
}

type boxInput struct {
	x, y     float64 // margin edge
	cbWidth  float64
	cbHeight float64 // < 0 when indefinite
	width    float64 // used content width when >= 0
	height   float64 // used content height when >= 0
}

// layoutBox lays out b and its subtree, then settles scrollbars of an
// overflow:auto box by laying the contents out again until they fit.
func (e *Engine) layoutBox(b *LayoutBox, in boxInput) {
	e.resolveEdges(b, in.cbWidth)
	d := &b.Dimensions
	if in.width >= 0 {
		d.Content.Width = in.width
	} else {
		d.Content.Width = e.blockWidth(b, in.cbWidth)
	}
	d.Content.X = in.x + d.Margin.Left + d.Border.Left + d.Padding.Left
	d.Content.Y = in.y + d.Margin.Top + d.Border.Top + d.Padding.Top

	height, definite := in.height, in.height >= 0
	if !definite {
		height, definite = e.specifiedHeight(b, in.cbHeight)
	}

	b.ScrollbarX = b.OverflowX == OverflowScroll
	b.ScrollbarY = b.OverflowY == OverflowScroll
	for pass := 0; pass < 3; pass++ {
		e.layoutContents(b, height, definite)
		if b.OverflowX != OverflowAuto && b.OverflowY != OverflowAuto {
			return
		}
		w, h := b.contentExtent()
		needY := b.OverflowY == OverflowAuto && !b.ScrollbarY && h > b.ClientHeight()
		needX := b.OverflowX == OverflowAuto && !b.ScrollbarX && w > b.ClientWidth()
		if !needX && !needY {
			return
		}
		b.ScrollbarY = b.ScrollbarY || needY
		b.ScrollbarX = b.ScrollbarX || needX
	}
}

func (e *Engine) layoutContents(b *LayoutBox, height float64, definite bool) {
	d := &b.Dimensions
	sbY, sbX := b.scrollbarWidths()

	flowHeight := 0.0
	if isReplaced(b.tag()) {
		if !definite {
			height, definite = attrLength(b, "height"), true
		}
	} else {
		cbHeight := -1.0
		if definite {
			cbHeight = math.Max(0, height-sbX)
		}
		flowHeight = e.layoutFlow(b, math.Max(0, d.Content.Width-sbY), cbHeight)
	}

	if definite {
		d.Content.Height = height
	} else {
		d.Content.Height = flowHeight + sbX
	}
	d.Content.Height = e.clampHeight(b, d.Content.Height)

	for _, p := range b.positioned {
		e.layoutPositioned(p, d.PaddingBox())
	}
}

// layoutFlow stacks the in-flow children of b and returns their total height.
func (e *Engine) layoutFlow(b *LayoutBox, avail, cbHeight float64) float64 {
	d := &b.Dimensions
	ctx := NewLayoutContext(d.Content.Y)

	for _, child := range b.Children {
		if child.outOfFlow() {
			child.staticX = d.Content.X
			child.staticY = ctx.CurrentY + ctx.CalculateCollapsedMargin()
			continue
		}

		if child.Anonymous {
			ctx.CurrentY += ctx.CalculateCollapsedMargin()
			ctx.ResetMargins()
			e.layoutText(child, d.Content.X, ctx.CurrentY, avail)
			ctx.CurrentY += child.Content.Height
			continue
		}

		e.resolveEdges(child, avail)
		ctx.AddToMarginTotals(child.Margin.Top)
		top := ctx.CurrentY + ctx.CalculateCollapsedMargin() - child.Margin.Top
		e.layoutBox(child, boxInput{x: d.Content.X, y: top, cbWidth: avail, cbHeight: cbHeight, width: -1, height: -1})

		ctx.CurrentY = child.BorderBox().Bottom()
		ctx.ResetMargins()
		ctx.AddToMarginTotals(child.Margin.Bottom)

		if child.Position == style.PositionRelative {
			dx, dy := e.relativeOffset(child, avail, cbHeight)
			shiftSubtree(child, dx, dy)
		}
	}

	ctx.CurrentY += ctx.CalculateCollapsedMargin()
	return math.Max(0, ctx.CurrentY-d.Content.Y)
}

func (e *Engine) layoutText(b *LayoutBox, x, y, avail float64) {
	width := style.MeasureText(b.StyledNode, b.text)
	lines := 1.0
	if avail > 0 && width > avail {
		lines = math.Ceil(width / avail)
		width = avail
	}
	b.Content = Rect{X: x, Y: y, Width: width, Height: lines * style.LineHeight(b.StyledNode)}
}

// layoutPositioned places an absolutely positioned or fixed box inside the
// padding box cb of its containing block.
func (e *Engine) layoutPositioned(b *LayoutBox, cb Rect) {
	sn := b.StyledNode
	e.resolveEdges(b, cb.Width)
	d := &b.Dimensions
	frameX := d.Border.Left + d.Border.Right + d.Padding.Left + d.Padding.Right
	frameY := d.Border.Top + d.Border.Bottom + d.Padding.Top + d.Padding.Bottom
	marginX := d.Margin.Left + d.Margin.Right
	marginY := d.Margin.Top + d.Margin.Bottom

	left, hasL := e.length(sn, "left", cb.Width)
	right, hasR := e.length(sn, "right", cb.Width)
	top, hasT := e.length(sn, "top", cb.Height)
	bottom, hasB := e.length(sn, "bottom", cb.Height)

	var width float64
	if w, ok := e.length(sn, "width", cb.Width); ok {
		width = w
		if sn.BoxSizing() == style.BorderBox {
			width -= frameX
		}
	} else if isReplaced(b.tag()) {
		width = attrLength(b, "width")
	} else if hasL && hasR {
		width = cb.Width - left - right - marginX - frameX
	} else {
		avail := cb.Width - marginX - frameX
		if hasL {
			avail -= left
		}
		if hasR {
			avail -= right
		}
		width = math.Min(e.intrinsicWidth(b), math.Max(0, avail))
	}
	width = math.Max(0, e.clampWidth(b, width, cb.Width))

	height := -1.0
	if h, ok := e.specifiedHeight(b, cb.Height); ok {
		height = h
	} else if hasT && hasB {
		height = math.Max(0, cb.Height-top-bottom-marginY-frameY)
	}

	x := b.staticX
	switch {
	case hasL:
		x = cb.X + left
	case hasR:
		x = cb.X + cb.Width - right - (width + frameX + marginX)
	}
	y := b.staticY
	if hasT {
		y = cb.Y + top
	}
	e.layoutBox(b, boxInput{x: x, y: y, cbWidth: cb.Width, cbHeight: cb.Height, width: width, height: height})

	if !hasT && hasB {
		target := cb.Y + cb.Height - bottom - b.MarginBox().Height
		shiftSubtree(b, 0, target-y)
	}
}

// shiftSubtree moves b and every box positioned through it. Fixed boxes stay
// with the viewport.
func shiftSubtree(b *LayoutBox, dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	b.Content.X += dx
	b.Content.Y += dy
	for _, c := range b.Children {
		if !c.Fixed {
			shiftSubtree(c, dx, dy)
		}
	}
}

func (e *Engine) relativeOffset(b *LayoutBox, cbWidth, cbHeight float64) (dx, dy float64) {
	sn := b.StyledNode
	if v, ok := e.length(sn, "left", cbWidth); ok {
		dx = v
	} else if v, ok := e.length(sn, "right", cbWidth); ok {
		dx = -v
	}
	if v, ok := e.length(sn, "top", cbHeight); ok {
		dy = v
	} else if v, ok := e.length(sn, "bottom", cbHeight); ok {
		dy = -v
	}
	return dx, dy
}

// -- Box Sizes --

func (e *Engine) resolveEdges(b *LayoutBox, cbWidth float64) {
	sn := b.StyledNode
	px := func(prop string) float64 {
		v, _ := e.length(sn, prop, cbWidth)
		return v
	}
	d := &b.Dimensions
	d.Padding = Edges{Top: px("padding-top"), Right: px("padding-right"), Bottom: px("padding-bottom"), Left: px("padding-left")}
	d.Border = Edges{Top: px("border-top-width"), Right: px("border-right-width"), Bottom: px("border-bottom-width"), Left: px("border-left-width")}
	d.Margin = Edges{Top: px("margin-top"), Right: px("margin-right"), Bottom: px("margin-bottom"), Left: px("margin-left")}
	b.marginAutoLeft = sn.Lookup("margin-left", "0px") == "auto"
	b.marginAutoRght = sn.Lookup("margin-right", "0px") == "auto"
}

// blockWidth resolves the content width of an in-flow box and its auto
// horizontal margins.
func (e *Engine) blockWidth(b *LayoutBox, cbWidth float64) float64 {
	sn := b.StyledNode
	d := &b.Dimensions
	frame := d.Border.Left + d.Border.Right + d.Padding.Left + d.Padding.Right

	w, explicit := e.length(sn, "width", cbWidth)
	switch {
	case explicit:
		if sn.BoxSizing() == style.BorderBox {
			w -= frame
		}
	case isReplaced(b.tag()):
		w, explicit = attrLength(b, "width"), true
	case sn.Display() == style.DisplayInline || sn.Display() == style.DisplayInlineBlock:
		w = math.Min(e.intrinsicWidth(b), cbWidth-d.Margin.Left-d.Margin.Right-frame)
		explicit = true
	default:
		w = cbWidth - d.Margin.Left - d.Margin.Right - frame
	}
	w = math.Max(0, e.clampWidth(b, w, cbWidth))

	if explicit && (b.marginAutoLeft || b.marginAutoRght) {
		remaining := cbWidth - w - frame
		switch {
		case b.marginAutoLeft && b.marginAutoRght:
			half := math.Max(0, remaining/2)
			d.Margin.Left, d.Margin.Right = half, half
		case b.marginAutoLeft:
			d.Margin.Left = math.Max(0, remaining-d.Margin.Right)
		default:
			d.Margin.Right = math.Max(0, remaining-d.Margin.Left)
		}
	}
	return w
}

func (e *Engine) clampWidth(b *LayoutBox, w, cbWidth float64) float64 {
	sn := b.StyledNode
	if max, ok := e.length(sn, "max-width", cbWidth); ok {
		w = math.Min(w, max)
	}
	if min, ok := e.length(sn, "min-width", cbWidth); ok {
		w = math.Max(w, min)
	}
	return w
}

// specifiedHeight returns the content height set by CSS, if it resolves.
func (e *Engine) specifiedHeight(b *LayoutBox, cbHeight float64) (float64, bool) {
	sn := b.StyledNode
	h, ok := e.length(sn, "height", cbHeight)
	if !ok {
		return 0, false
	}
	if sn.BoxSizing() == style.BorderBox {
		d := b.Dimensions
		h -= d.Border.Top + d.Border.Bottom + d.Padding.Top + d.Padding.Bottom
	}
	return math.Max(0, h), true
}

func (e *Engine) clampHeight(b *LayoutBox, h float64) float64 {
	sn := b.StyledNode
	if max, ok := e.length(sn, "max-height", -1); ok {
		h = math.Min(h, max)
	}
	if min, ok := e.length(sn, "min-height", -1); ok {
		h = math.Max(h, min)
	}
	return h
}

// intrinsicWidth is the max-content width of the box's content area.
func (e *Engine) intrinsicWidth(b *LayoutBox) float64 {
	w := 0.0
	for _, c := range b.Children {
		if c.outOfFlow() {
			continue
		}
		w = math.Max(w, e.marginBoxIntrinsicWidth(c))
	}
	return w
}

func (e *Engine) marginBoxIntrinsicWidth(b *LayoutBox) float64 {
	if b.Anonymous {
		return style.MeasureText(b.StyledNode, b.text)
	}
	sn := b.StyledNode
	px := func(prop string) float64 {
		v, _ := e.length(sn, prop, 0)
		return v
	}
	frame := px("border-left-width") + px("border-right-width") + px("padding-left") + px("padding-right")
	margins := px("margin-left") + px("margin-right")
	if w, ok := e.length(sn, "width", 0); ok && !strings.HasSuffix(sn.Lookup("width", "auto"), "%") {
		if sn.BoxSizing() == style.BorderBox {
			return w + margins
		}
		return w + frame + margins
	}
	if isReplaced(b.tag()) {
		return attrLength(b, "width") + frame + margins
	}
	return e.intrinsicWidth(b) + frame + margins
}

// length resolves a length property. Keywords (auto, none) and percentages
// of an indefinite size (ref < 0) report false.
func (e *Engine) length(sn *style.StyledNode, prop string, ref float64) (float64, bool) {
	v := strings.TrimSpace(sn.Lookup(prop, "auto"))
	switch v {
	case "", "auto", "none", "inherit", "initial":
		return 0, false
	}
	if strings.HasSuffix(v, "%") && ref < 0 {
		return 0, false
	}
	if v[0] != '-' && v[0] != '+' && v[0] != '.' && (v[0] < '0' || v[0] > '9') {
		return 0, false
	}
	return style.ParseLengthWithUnits(v, style.GetFontSize(sn), style.BaseFontSize, ref, e.cfg.ViewportWidth, e.cfg.ViewportHeight), true
}

// attrLength reads the width or height attribute of a replaced element.
func attrLength(b *LayoutBox, key string) float64 {
	if b.StyledNode == nil {
		return 0
	}
	v, ok := b.StyledNode.Attr(key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// -- Scrolling --

// contributes reports whether d's box adds to the scrollable overflow of
// owner (nil for the viewport). Boxes clipped by a scroll container between
// them and owner, and fixed boxes, do not.
func contributes(d, owner *LayoutBox) bool {
	if d.Fixed {
		return false
	}
	for c := d.ContainingBlock; c != owner; c = c.ContainingBlock {
		if c == nil || c.Fixed || c.Clips() {
			return false
		}
	}
	return true
}

// extent returns the right and bottom edges of everything overflowing into
// owner. The edges never fall short of owner's padding edge, or of the
// viewport origin when owner is nil.
func (t *Tree) extent(owner *LayoutBox) (right, bottom float64) {
	if owner != nil {
		pb := owner.PaddingBox()
		right, bottom = pb.X, pb.Y
	}
	var walk func(b *LayoutBox)
	walk = func(b *LayoutBox) {
		for _, c := range b.Children {
			if contributes(c, owner) {
				r := c.BorderBox()
				right = math.Max(right, r.Right())
				bottom = math.Max(bottom, r.Bottom())
			}
			walk(c)
		}
	}
	if owner == nil {
		if t.Root != nil {
			walk(t.Root)
		}
		return right, bottom
	}
	walk(owner)
	return right, bottom
}

// contentExtent is the size of b's scrollable overflow measured from its
// padding edge.
func (b *LayoutBox) contentExtent() (w, h float64) {
	pb := b.PaddingBox()
	// Seeded at the padding edge so a box placed at negative coordinates
	// does not count the distance back to the origin as overflow.
	right, bottom := pb.X, pb.Y
	var walk func(n *LayoutBox)
	walk = func(n *LayoutBox) {
		for _, c := range n.Children {
			if contributes(c, b) {
				r := c.BorderBox()
				right = math.Max(right, r.Right())
				bottom = math.Max(bottom, r.Bottom())
			}
			walk(c)
		}
	}
	walk(b)
	return right - pb.X, bottom - pb.Y
}

// finalizeScroll computes scroll sizes and clamps the requested scroll offsets.
func (e *Engine) finalizeScroll(t *Tree) {
	for _, b := range t.order {
		if b.Anonymous {
			continue
		}
		w, h := b.contentExtent()
		b.ScrollWidth = math.Max(b.ClientWidth(), w)
		b.ScrollHeight = math.Max(b.ClientHeight(), h)
		if off, ok := e.cfg.ScrollOffsets[b.Node()]; ok && b.Clips() {
			b.Scroll = clampScroll(off, b.ScrollWidth-b.ClientWidth(), b.ScrollHeight-b.ClientHeight())
		}
	}
	vp := &t.Viewport
	vp.Scroll = clampScroll(e.cfg.ViewportScroll, vp.ScrollWidth-vp.Width, vp.ScrollHeight-vp.Height)
}

func clampScroll(p Point, maxX, maxY float64) Point {
	return Point{
		X: math.Max(0, math.Min(p.X, math.Max(0, maxX))),
		Y: math.Max(0, math.Min(p.Y, math.Max(0, maxY))),
	}
}

// ClientRect returns the border box of b relative to the viewport, as
// getBoundingClientRect reports it.
func (t *Tree) ClientRect(b *LayoutBox) Rect {
	r := b.BorderBox()
	fixed := b.Fixed
	for c := b.ContainingBlock; c != nil; c = c.ContainingBlock {
		if c.Clips() {
			r.X -= c.Scroll.X
			r.Y -= c.Scroll.Y
		}
		fixed = fixed || c.Fixed
	}
	if !fixed {
		r.X -= t.Viewport.Scroll.X
		r.Y -= t.Viewport.Scroll.Y
	}
	return r
}
