// pkg/inview/host.go
package inview

import "context"

// The engine never touches a DOM directly. Everything it knows about windows,
// documents and elements is read through the interfaces below, which lets the same
// geometry code run against the static document engine and a live browser.

// NodeType classifies a host handle.
type NodeType int

const (
	// OtherNode covers text, comment and any node that is not a window, document or element.
	OtherNode NodeType = iota
	WindowNode
	DocumentNode
	ElementNode
)

func (t NodeType) String() string {
	switch t {
	case WindowNode:
		return "window"
	case DocumentNode:
		return "document"
	case ElementNode:
		return "element"
	default:
		return "other"
	}
}

// Node is any handle a host hands out.
type Node interface {
	NodeType() NodeType
	// SameNode reports whether both handles refer to the same host object.
	SameNode(ctx context.Context, other Node) (bool, error)
}

// Window is a browsing context with a viewport.
type Window interface {
	Node
	Document(ctx context.Context) (Document, error)
	UserAgent(ctx context.Context) (string, error)
}

// Document is the root of a DOM tree.
type Document interface {
	Node
	// DefaultView returns nil (and no error) for a document without a window.
	DefaultView(ctx context.Context) (Window, error)
	DocumentElement(ctx context.Context) (Element, error)
	Body(ctx context.Context) (Element, error)
	// CompatMode returns "CSS1Compat" for standards mode and "BackCompat" for quirks mode.
	CompatMode(ctx context.Context) (string, error)
	CreateElement(ctx context.Context, tag string) (Element, error)
	QuerySelectorAll(ctx context.Context, selector string) ([]Element, error)
}

// Element is a DOM element.
type Element interface {
	Node
	// TagName is lower case.
	TagName() string
	OwnerDocument(ctx context.Context) (Document, error)
	// ContentWindow returns the nested browsing context of an iframe, nil for other elements.
	ContentWindow(ctx context.Context) (Window, error)
	// Contains reports whether other is a strict descendant of the element.
	Contains(ctx context.Context, other Element) (bool, error)
	// ComputedStyle returns the resolved values of the requested properties,
	// keyed by their CSS (hyphenated) names.
	ComputedStyle(ctx context.Context, props ...string) (map[string]string, error)
	BoundingClientRect(ctx context.Context) (Rect, error)
	Metrics(ctx context.Context) (BoxMetrics, error)
	SetStyle(ctx context.Context, props map[string]string) error
	AppendChild(ctx context.Context, child Element) error
	Remove(ctx context.Context) error
}

// Rect is a viewport-relative rectangle, as returned by getBoundingClientRect.
type Rect struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Width of the rectangle.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height of the rectangle.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Inset returns the rectangle shrunk by the given edge sizes.
func (r Rect) Inset(top, right, bottom, left float64) Rect {
	return Rect{
		Top:    r.Top + top,
		Right:  r.Right - right,
		Bottom: r.Bottom - bottom,
		Left:   r.Left + left,
	}
}

// Within reports whether r lies inside outer (edges may touch).
func (r Rect) Within(outer Rect) bool {
	return r.Top >= outer.Top && r.Left >= outer.Left && r.Bottom <= outer.Bottom && r.Right <= outer.Right
}

// BoxMetrics groups the element size properties the engine reads in one round trip.
type BoxMetrics struct {
	ClientWidth  float64 `json:"clientWidth"`
	ClientHeight float64 `json:"clientHeight"`
	ScrollWidth  float64 `json:"scrollWidth"`
	ScrollHeight float64 `json:"scrollHeight"`
	OffsetWidth  float64 `json:"offsetWidth"`
	OffsetHeight float64 `json:"offsetHeight"`
}
