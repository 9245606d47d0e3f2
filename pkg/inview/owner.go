// pkg/inview/owner.go
package inview

import (
	"context"
	"fmt"
)

// OwnerWindow returns the window owning the first node: a window is its own
// owner, a document and an element answer with their document's default view.
// An iframe element is owned by the window containing it, not by its content
// window. Empty input, and nodes without a window, yield nil.
func OwnerWindow(ctx context.Context, nodes []Node) (Window, error) {
	if len(nodes) == 0 || nodes[0] == nil {
		return nil, nil
	}
	n := nodes[0]
	if w, ok := n.(Window); ok && n.NodeType() == WindowNode {
		return w, nil
	}
	doc, err := documentOf(ctx, n)
	if err != nil || doc == nil {
		return nil, err
	}
	win, err := doc.DefaultView(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading default view: %w", err)
	}
	return win, nil
}

// documentOf returns the document a node belongs to. For a window that is the
// document it displays.
func documentOf(ctx context.Context, n Node) (Document, error) {
	if n == nil {
		return nil, newInvalidArgument("node", "nil", "must be a window, document or element")
	}
	switch n.NodeType() {
	case WindowNode:
		if w, ok := n.(Window); ok {
			return w.Document(ctx)
		}
	case DocumentNode:
		if d, ok := n.(Document); ok {
			return d, nil
		}
	case ElementNode:
		if el, ok := n.(Element); ok {
			doc, err := el.OwnerDocument(ctx)
			if err != nil {
				return nil, fmt.Errorf("reading owner document: %w", err)
			}
			return doc, nil
		}
	}
	return nil, newInvalidArgument("node", n.NodeType().String(), "must be a window, document or element")
}

// Nodes widens a typed slice of host handles to []Node.
func Nodes[T Node](items []T) []Node {
	out := make([]Node, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
