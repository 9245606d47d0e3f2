// pkg/inview/inview.go
package inview

import (
	"context"

	"go.uber.org/zap"
)

// -- Visibility queries --

// IsInView reports whether the first node is in view inside the container.
// Empty input yields false.
func (e *Engine) IsInView(ctx context.Context, nodes []Node, ref *ContainerRef, opts *Options) (bool, error) {
	if len(nodes) == 0 {
		return false, nil
	}
	q, err := e.newQuery(ctx, nodes[0], ref, opts)
	if err != nil {
		return false, err
	}
	el, err := checkHierarchy(ctx, nodes[0], q.container)
	if err != nil {
		return false, err
	}
	return q.classify(ctx, el)
}

// InView returns the nodes that are in view inside the container, in their
// original order. Container resolution and the hierarchy check on the first
// node abort the call. Any other node that fails is left out and logged.
func (e *Engine) InView(ctx context.Context, nodes []Node, ref *ContainerRef, opts *Options) ([]Element, error) {
	if len(nodes) == 0 {
		return []Element{}, nil
	}
	q, err := e.newQuery(ctx, nodes[0], ref, opts)
	if err != nil {
		return nil, err
	}
	if _, err := checkHierarchy(ctx, nodes[0], q.container); err != nil {
		return nil, err
	}

	matches, err := q.match(ctx, nodes)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(nodes))
	for i, ok := range matches {
		if ok {
			out = append(out, nodes[i].(Element))
		}
	}
	return out, nil
}

// match classifies every node. Only a cancelled context stops the pass.
func (q *query) match(ctx context.Context, nodes []Node) ([]bool, error) {
	matches := make([]bool, len(nodes))
	for i, n := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if n == nil {
			q.engine.logger.Debug("Skipping nil node.", zap.Int("index", i))
			continue
		}
		el, ok := n.(Element)
		if !ok || n.NodeType() != ElementNode {
			q.engine.logger.Debug("Skipping non-element node.", zap.Int("index", i), zap.Stringer("type", n.NodeType()))
			continue
		}
		in, err := q.classify(ctx, el)
		if err != nil {
			q.engine.logger.Debug("Element excluded after failed visibility test.",
				zap.Int("index", i), zap.String("tag", el.TagName()), zap.Error(err))
			continue
		}
		matches[i] = in
	}
	return matches, nil
}

// IsInViewport is IsInView with the container bound to the owner window of the nodes.
func (e *Engine) IsInViewport(ctx context.Context, nodes []Node, opts *Options) (bool, error) {
	if len(nodes) == 0 {
		return false, nil
	}
	ref, err := ownerWindowRef(ctx, nodes)
	if err != nil {
		return false, err
	}
	return e.IsInView(ctx, nodes, ref, opts)
}

// InViewport is InView with the container bound to the owner window of the nodes.
func (e *Engine) InViewport(ctx context.Context, nodes []Node, opts *Options) ([]Element, error) {
	if len(nodes) == 0 {
		return []Element{}, nil
	}
	ref, err := ownerWindowRef(ctx, nodes)
	if err != nil {
		return nil, err
	}
	return e.InView(ctx, nodes, ref, opts)
}

// MatchInViewport is the selection filter behind the :inviewport pseudo-class.
// matches[i] tells whether elems[i] is in the viewport of its window. The query
// is configured once for the whole set and the hierarchy is checked on the first
// element only.
func (e *Engine) MatchInViewport(ctx context.Context, elems []Element, opts *Options) ([]bool, error) {
	if len(elems) == 0 {
		return []bool{}, nil
	}
	nodes := Nodes(elems)
	q, err := e.newQuery(ctx, nodes[0], nil, opts)
	if err != nil {
		return nil, err
	}
	if _, err := checkHierarchy(ctx, nodes[0], q.container); err != nil {
		return nil, err
	}
	return q.match(ctx, nodes)
}

func ownerWindowRef(ctx context.Context, nodes []Node) (*ContainerRef, error) {
	if nodes[0] == nil {
		return nil, newInvalidArgument("element", "nil", "is not an element")
	}
	w, err := OwnerWindow(ctx, nodes)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, newInvalidContainer("the element is not attached to a window")
	}
	return In(w), nil
}

// -- Package-level functions on the default engine --

// IsInView calls Engine.IsInView on the default engine.
func IsInView(ctx context.Context, nodes []Node, ref *ContainerRef, opts *Options) (bool, error) {
	return Default().IsInView(ctx, nodes, ref, opts)
}

// InView calls Engine.InView on the default engine.
func InView(ctx context.Context, nodes []Node, ref *ContainerRef, opts *Options) ([]Element, error) {
	return Default().InView(ctx, nodes, ref, opts)
}

// IsInViewport calls Engine.IsInViewport on the default engine.
func IsInViewport(ctx context.Context, nodes []Node, opts *Options) (bool, error) {
	return Default().IsInViewport(ctx, nodes, opts)
}

// InViewport calls Engine.InViewport on the default engine.
func InViewport(ctx context.Context, nodes []Node, opts *Options) ([]Element, error) {
	return Default().InViewport(ctx, nodes, opts)
}

// MatchInViewport calls Engine.MatchInViewport on the default engine.
func MatchInViewport(ctx context.Context, elems []Element, opts *Options) ([]bool, error) {
	return Default().MatchInViewport(ctx, elems, opts)
}

// Select calls Engine.Select on the default engine.
func Select(ctx context.Context, doc Document, selector string, opts *Options) ([]Element, error) {
	return Default().Select(ctx, doc, selector, opts)
}

// HasScrollbar calls Engine.HasScrollbar on the default engine.
func HasScrollbar(ctx context.Context, targets []Node, axis Axis) (*ScrollbarState, error) {
	return Default().HasScrollbar(ctx, targets, axis)
}

// ScrollbarWidth calls Engine.ScrollbarWidth on the default engine.
func ScrollbarWidth(ctx context.Context, win Window) (float64, error) {
	return Default().ScrollbarWidth(ctx, win)
}

// ScrollbarSize calls Engine.ScrollbarSize on the default engine.
func ScrollbarSize(ctx context.Context, targets []Node, axis Axis) (*ScrollbarSizes, error) {
	return Default().ScrollbarSize(ctx, targets, axis)
}
