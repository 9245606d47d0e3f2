// pkg/inview/classify.go
package inview

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// query is the configuration of one public call. It is built per call and owns
// a cache of container geometry shared by every element tested in that call.
type query struct {
	engine        *Engine
	container     *container
	useHorizontal bool
	useVertical   bool
	partially     bool
	excludeHidden bool
	borderBox     bool
	tolerance     Tolerance
	cache         geometryCache
}

// geometryCache keeps explicit flags so that zero sizes are cached as well.
type geometryCache struct {
	haveSize   bool
	width      float64
	height     float64
	hTolerance float64
	vTolerance float64

	haveOffset bool
	offset     offset

	// scrollbars of an element container, shared by both axes.
	scrollbars *ScrollbarSizes
}

func (e *Engine) newQuery(ctx context.Context, subject Node, ref *ContainerRef, opts *Options) (*query, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}
	if subject == nil {
		return nil, newInvalidArgument("element", "nil", "is not an element")
	}
	c, err := e.resolveContainer(ctx, ref, subject)
	if err != nil {
		return nil, err
	}
	dir, _ := opts.Direction.normalize("direction")
	return &query{
		engine:        e,
		container:     c,
		useHorizontal: dir.horizontal(),
		useVertical:   dir.vertical(),
		partially:     opts.Partially,
		excludeHidden: opts.ExcludeHidden,
		borderBox:     opts.Box != ContentBox,
		tolerance:     opts.Tolerance,
	}, nil
}

// classify decides whether el is in view. The hierarchy must have been checked.
func (q *query) classify(ctx context.Context, el Element) (bool, error) {
	same, err := el.SameNode(ctx, q.container.node())
	if err != nil {
		return false, err
	}
	if same {
		return false, newInvalidContainer("the container is the element itself")
	}

	if q.excludeHidden {
		m, err := el.Metrics(ctx)
		if err != nil {
			return false, fmt.Errorf("reading metrics of <%s>: %w", el.TagName(), err)
		}
		if m.OffsetWidth <= 0 || m.OffsetHeight <= 0 {
			return false, nil
		}
	}

	if err := q.fillSize(ctx); err != nil {
		return false, err
	}

	r, err := q.elementRect(ctx, el)
	if err != nil {
		return false, err
	}

	in := true
	if q.useVertical {
		in = q.axisInView(r.Top, r.Bottom, q.cache.height, q.cache.vTolerance)
	}
	if q.useHorizontal {
		in = in && q.axisInView(r.Left, r.Right, q.cache.width, q.cache.hTolerance)
	}
	return in, nil
}

// axisInView tests one axis against the viewport [0, size] widened by tol.
func (q *query) axisInView(near, far, size, tol float64) bool {
	if q.partially {
		return near < size+tol && far > -tol
	}
	return near >= -tol && near < size+tol && far > -tol && far <= size+tol
}

func (q *query) fillSize(ctx context.Context) error {
	if q.cache.haveSize {
		return nil
	}
	w, h, err := q.netSize(ctx)
	if err != nil {
		return err
	}
	q.cache.width, q.cache.height = w, h
	q.cache.hTolerance, q.cache.vTolerance = q.tolerance.pixels(w), q.tolerance.pixels(h)
	q.cache.haveSize = true
	return nil
}

// netSize is the visible inner size of the container, without its scrollbars.
// Window client sizes already exclude them.
func (q *query) netSize(ctx context.Context) (w, h float64, err error) {
	if q.container.kind == containerWindow {
		doc, err := q.container.win.Document(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("reading window document: %w", err)
		}
		root, err := doc.DocumentElement(ctx)
		if err != nil {
			return 0, 0, err
		}
		body, err := doc.Body(ctx)
		if err != nil {
			return 0, 0, err
		}
		m, err := viewportMetrics(ctx, doc, root, body)
		if err != nil {
			return 0, 0, err
		}
		return m.ClientWidth, m.ClientHeight, nil
	}

	el := q.container.el
	m, err := el.Metrics(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("reading container metrics: %w", err)
	}
	innerW, innerH, err := innerSize(ctx, el, m)
	if err != nil {
		return 0, 0, err
	}
	if q.cache.scrollbars == nil {
		sizes, err := q.engine.ScrollbarSize(ctx, []Node{el}, Both)
		if err != nil {
			return 0, 0, err
		}
		q.cache.scrollbars = sizes
		q.engine.logger.Debug("Container scrollbars measured.",
			zap.Float64("horizontal", sizes.Horizontal),
			zap.Float64("vertical", sizes.Vertical))
	}
	return innerW - q.cache.scrollbars.Vertical, innerH - q.cache.scrollbars.Horizontal, nil
}
