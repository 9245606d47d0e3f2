// pkg/inview/css.go
package inview

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// -- Computed style accessors --

var (
	borderProps   = []string{"border-top-width", "border-right-width", "border-bottom-width", "border-left-width"}
	paddingProps  = []string{"padding-top", "padding-right", "padding-bottom", "padding-left"}
	marginProps   = []string{"margin-top", "margin-right", "margin-bottom", "margin-left"}
	overflowProps = []string{"overflow", "overflow-x", "overflow-y", "position"}
)

// styleOf reads computed style values, lower cased and trimmed.
func styleOf(ctx context.Context, el Element, props ...string) (map[string]string, error) {
	raw, err := el.ComputedStyle(ctx, props...)
	if err != nil {
		return nil, fmt.Errorf("reading computed style of <%s>: %w", el.TagName(), err)
	}
	out := make(map[string]string, len(props))
	for _, p := range props {
		out[p] = strings.ToLower(strings.TrimSpace(raw[p]))
	}
	return out, nil
}

// floatsOf reads computed style values as numbers, dropping units.
func floatsOf(ctx context.Context, el Element, props ...string) (map[string]float64, error) {
	raw, err := styleOf(ctx, el, props...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(props))
	for _, p := range props {
		out[p] = leadingFloat(raw[p])
	}
	return out, nil
}

var numberPrefixRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// leadingFloat parses the numeric prefix of a CSS value ("12.5px" -> 12.5).
// Values without a numeric prefix count as 0.
func leadingFloat(s string) float64 {
	m := numberPrefixRe.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// edges holds the four widths of a border or padding.
type edges struct {
	Top, Right, Bottom, Left float64
}

func edgesOf(ctx context.Context, el Element, props []string) (edges, error) {
	v, err := floatsOf(ctx, el, props...)
	if err != nil {
		return edges{}, err
	}
	return edges{Top: v[props[0]], Right: v[props[1]], Bottom: v[props[2]], Left: v[props[3]]}, nil
}

// -- Overflow resolution --

// overflowMode is the effective overflow of one axis.
type overflowMode string

const (
	overflowVisible overflowMode = "visible"
	overflowAuto    overflowMode = "auto"
	overflowScroll  overflowMode = "scroll"
	overflowHidden  overflowMode = "hidden"
)

// obscures reports whether the mode clips content.
func (m overflowMode) obscures() bool { return m != overflowVisible }

func toOverflowMode(s string) (overflowMode, bool) {
	switch s {
	case "visible":
		return overflowVisible, true
	case "auto", "overlay":
		return overflowAuto, true
	case "scroll":
		return overflowScroll, true
	case "hidden", "clip":
		return overflowHidden, true
	}
	return "", false
}

// overflowRecord is the resolved overflow of both axes.
type overflowRecord struct {
	X, Y overflowMode
}

func (r overflowRecord) axis(horizontal bool) overflowMode {
	if horizontal {
		return r.X
	}
	return r.Y
}

// resolveOverflow applies the per-axis rule: an explicit overflow-x/-y wins,
// then the general overflow value (which may carry one value per axis), then visible.
func resolveOverflow(props map[string]string) overflowRecord {
	var general [2]string
	if fields := strings.Fields(props["overflow"]); len(fields) > 0 {
		general[0], general[1] = fields[0], fields[0]
		if len(fields) > 1 {
			general[1] = fields[1]
		}
	}
	pick := func(explicit, fallback string) overflowMode {
		if m, ok := toOverflowMode(explicit); ok {
			return m
		}
		if m, ok := toOverflowMode(fallback); ok {
			return m
		}
		return overflowVisible
	}
	return overflowRecord{
		X: pick(props["overflow-x"], general[0]),
		Y: pick(props["overflow-y"], general[1]),
	}
}

func overflowOf(ctx context.Context, el Element) (overflowRecord, map[string]string, error) {
	props, err := styleOf(ctx, el, overflowProps...)
	if err != nil {
		return overflowRecord{}, nil, err
	}
	return resolveOverflow(props), props, nil
}
