// pkg/inview/docsize.go
package inview

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// docSizeSource names the element whose scroll size equals the document extent.
// Engines disagree: some report the document size on body.scrollWidth, others
// only the content size of the body.
type docSizeSource int

const (
	sourceDocumentElement docSizeSource = iota
	sourceBody
)

func (s docSizeSource) String() string {
	if s == sourceBody {
		return "body"
	}
	return "documentElement"
}

// probeOffset pushes the probe far beyond any sensible viewport.
const probeOffset = "2000px"

var errNoBody = errors.New("document has no body")

// documentSizeSource detects, once per engine, which element reports the true
// document size. The test runs inside an offscreen iframe appended to doc's body
// so the host document is left untouched.
func (e *Engine) documentSizeSource(ctx context.Context, doc Document) (docSizeSource, error) {
	e.docSizeMu.Lock()
	defer e.docSizeMu.Unlock()

	if e.docSize != nil {
		return *e.docSize, nil
	}
	src, err := detectDocumentSizeSource(ctx, doc)
	if err != nil {
		return sourceDocumentElement, fmt.Errorf("detecting document size source: %w", err)
	}
	e.docSize = &src
	e.logger.Debug("Document size source detected.", zap.Stringer("source", src))
	return src, nil
}

func detectDocumentSizeSource(ctx context.Context, doc Document) (src docSizeSource, err error) {
	body, err := doc.Body(ctx)
	if err != nil {
		return src, err
	}
	if body == nil {
		return src, errNoBody
	}

	frame, err := doc.CreateElement(ctx, "iframe")
	if err != nil {
		return src, err
	}
	err = frame.SetStyle(ctx, map[string]string{
		"position": "absolute", "top": "-500px", "left": "-500px",
		"width": "100px", "height": "100px",
		"margin": "0", "padding": "0", "border-style": "none",
	})
	if err != nil {
		return src, err
	}
	if err = body.AppendChild(ctx, frame); err != nil {
		return src, err
	}
	defer func() {
		if rmErr := frame.Remove(ctx); rmErr != nil && err == nil {
			err = rmErr
		}
	}()

	win, err := frame.ContentWindow(ctx)
	if err != nil {
		return src, err
	}
	if win == nil {
		return src, errors.New("probe iframe has no content window")
	}
	frameDoc, err := win.Document(ctx)
	if err != nil {
		return src, err
	}
	frameBody, err := frameDoc.Body(ctx)
	if err != nil {
		return src, err
	}
	if frameBody == nil {
		return src, errNoBody
	}
	if err = frameBody.SetStyle(ctx, map[string]string{"overflow": "hidden", "margin": "0"}); err != nil {
		return src, err
	}
	before, err := frameBody.Metrics(ctx)
	if err != nil {
		return src, err
	}

	probe, err := frameDoc.CreateElement(ctx, "div")
	if err != nil {
		return src, err
	}
	err = probe.SetStyle(ctx, map[string]string{
		"width": "1px", "height": "1px",
		"margin-left": probeOffset, "margin-top": probeOffset,
	})
	if err != nil {
		return src, err
	}
	if err = frameBody.AppendChild(ctx, probe); err != nil {
		return src, err
	}
	after, err := frameBody.Metrics(ctx)
	if err != nil {
		return src, err
	}

	// body.scrollWidth follows the body content: the document size lives on the root.
	if after.ScrollWidth != before.ScrollWidth || after.ScrollHeight != before.ScrollHeight {
		return sourceDocumentElement, nil
	}
	return sourceBody, nil
}
