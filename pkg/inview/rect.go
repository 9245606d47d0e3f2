// pkg/inview/rect.go
package inview

import (
	"context"
	"fmt"
)

func boundingRect(ctx context.Context, el Element) (Rect, error) {
	r, err := el.BoundingClientRect(ctx)
	if err != nil {
		return Rect{}, fmt.Errorf("reading bounding rect of <%s>: %w", el.TagName(), err)
	}
	return r, nil
}

// contentRect is the bounding rect without border and padding.
func contentRect(ctx context.Context, el Element) (Rect, error) {
	r, err := boundingRect(ctx, el)
	if err != nil {
		return Rect{}, err
	}
	b, err := edgesOf(ctx, el, borderProps)
	if err != nil {
		return Rect{}, err
	}
	p, err := edgesOf(ctx, el, paddingProps)
	if err != nil {
		return Rect{}, err
	}
	return r.Inset(b.Top+p.Top, b.Right+p.Right, b.Bottom+p.Bottom, b.Left+p.Left), nil
}

// offset moves a viewport rect into the coordinate space of an element
// container. The origin is the container's padding edge: bounding rects include
// the border, which does not scroll.
type offset struct {
	X, Y float64
}

func (o offset) apply(r Rect) Rect {
	return Rect{Top: r.Top - o.Y, Right: r.Right - o.X, Bottom: r.Bottom - o.Y, Left: r.Left - o.X}
}

func containerOffset(ctx context.Context, el Element) (offset, error) {
	r, err := boundingRect(ctx, el)
	if err != nil {
		return offset{}, err
	}
	b, err := edgesOf(ctx, el, borderProps)
	if err != nil {
		return offset{}, err
	}
	return offset{X: r.Left + b.Left, Y: r.Top + b.Top}, nil
}

// elementRect returns the tested box of el in container coordinates.
func (q *query) elementRect(ctx context.Context, el Element) (Rect, error) {
	var r Rect
	var err error
	if q.borderBox {
		r, err = boundingRect(ctx, el)
	} else {
		r, err = contentRect(ctx, el)
	}
	if err != nil {
		return Rect{}, err
	}
	if q.container.kind == containerWindow {
		return r, nil
	}

	if !q.cache.haveOffset {
		o, err := containerOffset(ctx, q.container.el)
		if err != nil {
			return Rect{}, err
		}
		q.cache.offset, q.cache.haveOffset = o, true
	}
	return q.cache.offset.apply(r), nil
}
