// pkg/inview/container.go
package inview

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ContainerRef names the viewport boundary of a visibility query. A nil
// *ContainerRef stands for the window owning the queried elements.
type ContainerRef struct {
	nodes    []Node
	selector string
	byQuery  bool
}

// In uses a window, document, iframe element or clipping element as container.
func In(n Node) *ContainerRef {
	if n == nil {
		return &ContainerRef{}
	}
	return &ContainerRef{nodes: []Node{n}}
}

// InSet uses the first node of a set as container.
func InSet(nodes []Node) *ContainerRef {
	return &ContainerRef{nodes: nodes}
}

// InSelector uses the first match of a selector, evaluated against the document
// of the queried elements.
func InSelector(selector string) *ContainerRef {
	return &ContainerRef{selector: selector, byQuery: true}
}

func (r *ContainerRef) String() string {
	switch {
	case r == nil:
		return "owner window"
	case r.byQuery:
		return fmt.Sprintf("selector %q", r.selector)
	case len(r.nodes) == 0:
		return "empty set"
	case r.nodes[0] == nil:
		return "nil"
	default:
		return r.nodes[0].NodeType().String()
	}
}

type containerKind int

const (
	containerWindow containerKind = iota
	containerElement
)

// container is a resolved viewport boundary: a window or a clipping element.
type container struct {
	kind containerKind
	win  Window
	el   Element
}

func (c *container) node() Node {
	if c.kind == containerWindow {
		return c.win
	}
	return c.el
}

// resolveContainer turns a reference into a window or element container.
// subject is the first queried node and anchors the defaults.
func (e *Engine) resolveContainer(ctx context.Context, ref *ContainerRef, subject Node) (*container, error) {
	var candidates []Node
	switch {
	case ref == nil:
		w, err := OwnerWindow(ctx, []Node{subject})
		if err != nil {
			return nil, err
		}
		if w == nil {
			return nil, newInvalidContainer("the element is not attached to a window")
		}
		candidates = []Node{w}
	case ref.byQuery:
		doc, err := documentOf(ctx, subject)
		if err != nil {
			return nil, err
		}
		found, err := doc.QuerySelectorAll(ctx, ref.selector)
		if err != nil {
			return nil, fmt.Errorf("resolving container selector %q: %w", ref.selector, err)
		}
		candidates = Nodes(found)
	default:
		candidates = ref.nodes
	}
	if len(candidates) == 0 || candidates[0] == nil {
		return nil, newInvalidContainer("%s matched nothing", ref)
	}

	c, err := canonicalContainer(ctx, candidates[0])
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Container resolved.",
		zap.Stringer("ref", ref),
		zap.Stringer("kind", c.node().NodeType()))
	return c, nil
}

// canonicalContainer collapses documents and iframes to windows and rejects
// elements that cannot hide any of their content.
func canonicalContainer(ctx context.Context, n Node) (*container, error) {
	switch n.NodeType() {
	case WindowNode:
		if w, ok := n.(Window); ok {
			return &container{kind: containerWindow, win: w}, nil
		}
	case DocumentNode:
		if doc, ok := n.(Document); ok {
			w, err := doc.DefaultView(ctx)
			if err != nil {
				return nil, fmt.Errorf("reading default view: %w", err)
			}
			if w == nil {
				return nil, newInvalidContainer("the document is not displayed in a window")
			}
			return &container{kind: containerWindow, win: w}, nil
		}
	case ElementNode:
		if el, ok := n.(Element); ok {
			return elementContainer(ctx, el)
		}
	}
	return nil, newInvalidArgument("container", n.NodeType().String(), "must be a window, document or element")
}

func elementContainer(ctx context.Context, el Element) (*container, error) {
	if el.TagName() == "iframe" {
		w, err := el.ContentWindow(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading iframe content window: %w", err)
		}
		if w == nil {
			return nil, newInvalidContainer("the iframe has no content window")
		}
		return &container{kind: containerWindow, win: w}, nil
	}

	of, _, err := overflowOf(ctx, el)
	if err != nil {
		return nil, err
	}
	if !of.X.obscures() && !of.Y.obscures() {
		return nil, newInvalidContainer(
			"<%s> is set to overflow: visible; a container must be a window or set to overflow scroll, auto or hidden",
			el.TagName())
	}
	return &container{kind: containerElement, el: el}, nil
}

// checkHierarchy verifies that n is an element inside the container.
func checkHierarchy(ctx context.Context, n Node, c *container) (Element, error) {
	if n == nil {
		return nil, newInvalidArgument("element", "nil", "is not an element")
	}
	el, ok := n.(Element)
	if !ok || n.NodeType() != ElementNode {
		return nil, newInvalidArgument("element", n.NodeType().String(), "is not an element")
	}

	if c.kind == containerWindow {
		owner, err := OwnerWindow(ctx, []Node{el})
		if err != nil {
			return nil, err
		}
		same, err := sameNode(ctx, owner, c.win)
		if err != nil {
			return nil, err
		}
		if !same {
			return nil, newInvalidContainer("the window does not contain the element")
		}
		return el, nil
	}

	same, err := el.SameNode(ctx, c.el)
	if err != nil {
		return nil, err
	}
	if same {
		return nil, newInvalidContainer("the container is the element itself")
	}
	inside, err := el.Contains(ctx, c.el)
	if err != nil {
		return nil, err
	}
	if inside {
		return nil, newInvalidContainer("the container is a descendant of the element")
	}
	contained, err := c.el.Contains(ctx, el)
	if err != nil {
		return nil, err
	}
	if !contained {
		return nil, newInvalidContainer("<%s> is not an ancestor of the element", c.el.TagName())
	}
	return el, nil
}
