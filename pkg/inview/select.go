// pkg/inview/select.go
package inview

import (
	"context"
	"regexp"
	"strings"
)

var (
	inViewportSuffixRe = regexp.MustCompile(`(?i):inviewport(\(\))?\s*$`)
	inViewportAnyRe    = regexp.MustCompile(`(?i):inviewport\b`)
)

// splitInViewport strips a trailing :inviewport pseudo-class from a selector.
func splitInViewport(selector string) (base string, filter bool, err error) {
	selector = strings.TrimSpace(selector)
	loc := inViewportSuffixRe.FindStringIndex(selector)
	if loc != nil {
		selector, filter = strings.TrimSpace(selector[:loc[0]]), true
	}
	if inViewportAnyRe.MatchString(selector) {
		return "", false, newInvalidArgument("selector", selector, ":inviewport is only supported at the end of a selector")
	}
	if filter && (selector == "" || strings.HasSuffix(selector, ">") || strings.HasSuffix(selector, "+") || strings.HasSuffix(selector, "~")) {
		selector += " *"
		selector = strings.TrimSpace(selector)
	}
	return selector, filter, nil
}

// Select runs a selector against doc. A trailing :inviewport narrows the
// selection to the elements inside the viewport of doc's window, as one batch.
func (e *Engine) Select(ctx context.Context, doc Document, selector string, opts *Options) ([]Element, error) {
	base, filter, err := splitInViewport(selector)
	if err != nil {
		return nil, err
	}
	found, err := doc.QuerySelectorAll(ctx, base)
	if err != nil {
		return nil, err
	}
	if !filter {
		return found, nil
	}
	matches, err := e.MatchInViewport(ctx, found, opts)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(found))
	for i, ok := range matches {
		if ok {
			out = append(out, found[i])
		}
	}
	return out, nil
}
