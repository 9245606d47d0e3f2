// pkg/inview/scrollbar_width.go
package inview

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ScrollbarWidth returns the width the browser allocates to a scrollbar, 0 for
// overlay scrollbars. It is measured once per engine with a probe appended to the
// body of win's document.
func (e *Engine) ScrollbarWidth(ctx context.Context, win Window) (float64, error) {
	if win == nil {
		return 0, newInvalidArgument("window", "<nil>", "a window is required")
	}
	doc, err := win.Document(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading window document: %w", err)
	}
	return e.scrollbarWidthIn(ctx, doc)
}

func (e *Engine) scrollbarWidthIn(ctx context.Context, doc Document) (float64, error) {
	e.widthMu.Lock()
	defer e.widthMu.Unlock()

	if e.scrollbarWidth != nil {
		return *e.scrollbarWidth, nil
	}
	w, err := measureScrollbarWidth(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("measuring scrollbar width: %w", err)
	}
	e.scrollbarWidth = &w
	e.logger.Debug("Scrollbar width measured.", zap.Float64("width", w))
	return w, nil
}

// measureScrollbarWidth compares the inner width of a child before and after it
// overflows its fixed-size, overflow:auto parent.
func measureScrollbarWidth(ctx context.Context, doc Document) (w float64, err error) {
	body, err := doc.Body(ctx)
	if err != nil {
		return 0, err
	}
	if body == nil {
		return 0, errNoBody
	}

	parent, err := doc.CreateElement(ctx, "div")
	if err != nil {
		return 0, err
	}
	child, err := doc.CreateElement(ctx, "div")
	if err != nil {
		return 0, err
	}
	reset := map[string]string{"margin": "0", "padding": "0", "border-style": "none"}
	if err = child.SetStyle(ctx, reset); err != nil {
		return 0, err
	}
	err = parent.SetStyle(ctx, map[string]string{
		"width": "100px", "height": "100px", "overflow": "auto",
		"position": "absolute", "top": "-500px", "left": "-500px",
		"margin": "0", "padding": "0", "border-style": "none",
	})
	if err != nil {
		return 0, err
	}
	if err = parent.AppendChild(ctx, child); err != nil {
		return 0, err
	}
	if err = body.AppendChild(ctx, parent); err != nil {
		return 0, err
	}
	defer func() {
		if rmErr := parent.Remove(ctx); rmErr != nil && err == nil {
			err = rmErr
		}
	}()

	before, err := child.Metrics(ctx)
	if err != nil {
		return 0, err
	}
	if err = child.SetStyle(ctx, map[string]string{"height": "150px"}); err != nil {
		return 0, err
	}
	after, err := child.Metrics(ctx)
	if err != nil {
		return 0, err
	}
	return before.ClientWidth - after.ClientWidth, nil
}
