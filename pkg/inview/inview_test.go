// pkg/inview/inview_test.go
package inview_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/inview/internal/browser/dom"
	"github.com/xkilldash9x/inview/pkg/inview"
)

// -- Fixtures --

type page struct {
	win *dom.Window
	doc *dom.Document
}

func (p *page) el(selector string) *dom.Element {
	return p.doc.MustFind(selector)
}

func (p *page) nodes(selectors ...string) []inview.Node {
	out := make([]inview.Node, 0, len(selectors))
	for _, s := range selectors {
		out = append(out, p.el(s))
	}
	return out
}

// loadPage renders markup in an 800x600 window with 15px scrollbars.
func loadPage(t *testing.T, markup string, tweak ...func(*dom.Options)) *page {
	t.Helper()
	opts := dom.Options{ViewportWidth: 800, ViewportHeight: 600, ScrollbarWidth: 15}
	for _, f := range tweak {
		f(&opts)
	}
	win, err := dom.NewHost(opts).LoadString(markup)
	require.NoError(t, err)
	return &page{win: win, doc: win.Doc()}
}

// absPage places absolutely positioned divs on an otherwise empty standards page.
func absPage(t *testing.T, css string, ids ...string) *page {
	t.Helper()
	body := ""
	for _, id := range ids {
		body += fmt.Sprintf(`<div id=%q></div>`, id)
	}
	return loadPage(t, `<!DOCTYPE html><html><head><style>
		body { margin: 0; }
		div { position: absolute; }
		`+css+`
	</style></head><body>`+body+`</body></html>`)
}

func requireContainerError(t *testing.T, err error) {
	t.Helper()
	var target *inview.InvalidContainerError
	require.Error(t, err)
	assert.True(t, errors.As(err, &target), "expected InvalidContainerError, got %T: %v", err, err)
}

func requireArgumentError(t *testing.T, err error) {
	t.Helper()
	var target *inview.InvalidArgumentError
	require.Error(t, err)
	assert.True(t, errors.As(err, &target), "expected InvalidArgumentError, got %T: %v", err, err)
}

// -- Scenarios --

func TestIsInView_ElementInsideWindow(t *testing.T) {
	ctx := context.Background()
	p := absPage(t, `#a { left: 10px; top: 10px; width: 50px; height: 50px; }`, "a")

	in, err := inview.New(nil).IsInView(ctx, p.nodes("#a"), nil, nil)
	require.NoError(t, err)
	assert.True(t, in)
}

func TestIsInView_ElementAboveContainer(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, `<!DOCTYPE html><html><head><style>
		body { margin: 0; }
		#c { position: relative; overflow: hidden; width: 300px; height: 200px; margin-top: 100px; }
		#c div { position: absolute; left: 10px; width: 50px; height: 50px; }
		#above { top: -60px; }
		#straddle { top: -30px; }
	</style></head><body><div id="c"><div id="above"></div><div id="straddle"></div></div></body></html>`)
	e := inview.New(nil)
	container := inview.In(p.el("#c"))

	in, err := e.IsInView(ctx, p.nodes("#above"), container, &inview.Options{Partially: false})
	require.NoError(t, err)
	assert.False(t, in)

	in, err = e.IsInView(ctx, p.nodes("#above"), container, &inview.Options{Partially: true})
	require.NoError(t, err)
	assert.False(t, in, "fully above the container")

	in, err = e.IsInView(ctx, p.nodes("#straddle"), container, &inview.Options{Partially: false})
	require.NoError(t, err)
	assert.False(t, in)

	in, err = e.IsInView(ctx, p.nodes("#straddle"), container, &inview.Options{Partially: true})
	require.NoError(t, err)
	assert.True(t, in, "overlaps the first row of the container")
}

func TestHasScrollbar_ContentOnePixelTaller(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, `<!DOCTYPE html><html><head><style>
		body { margin: 0; }
		#c { width: 200px; height: 100px; overflow-y: scroll; }
		#content { height: 101px; }
	</style></head><body><div id="c"><div id="content"></div></div></body></html>`)
	e := inview.New(nil)

	v, err := e.HasScrollbar(ctx, p.nodes("#c"), inview.Vertical)
	require.NoError(t, err)
	assert.True(t, v.Vertical)
	assert.True(t, v.Present())

	h, err := e.HasScrollbar(ctx, p.nodes("#c"), inview.Horizontal)
	require.NoError(t, err)
	assert.False(t, h.Horizontal)
	assert.False(t, h.Present())
}

func TestIsInView_VisibleContainerRejected(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, `<!DOCTYPE html><html><body><div id="c"><p id="e">x</p></div></body></html>`)

	_, err := inview.New(nil).IsInView(ctx, p.nodes("#e"), inview.In(p.el("#c")), nil)
	requireContainerError(t, err)
}

func TestInView_EmptySet(t *testing.T) {
	ctx := context.Background()
	p := absPage(t, "")
	e := inview.New(nil)

	out, err := e.InView(ctx, nil, inview.In(p.win), nil)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	out, err = e.InViewport(ctx, []inview.Node{}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	in, err := e.IsInView(ctx, nil, nil, nil)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestIsInView_ElementAsOwnContainer(t *testing.T) {
	ctx := context.Background()
	p := absPage(t, `#c { overflow: hidden; width: 100px; height: 100px; }`, "c")

	_, err := inview.New(nil).IsInView(ctx, p.nodes("#c"), inview.In(p.el("#c")), nil)
	requireContainerError(t, err)
}

// -- Properties --

// grid lays out boxes around and across the viewport edges.
func grid(t *testing.T) (*page, []string) {
	t.Helper()
	var css string
	var ids []string
	for i, top := range []int{-80, -25, 0, 275, 560, 590, 700} {
		for j, left := range []int{-80, -25, 0, 375, 760, 790, 900} {
			id := fmt.Sprintf("g%d_%d", i, j)
			ids = append(ids, id)
			css += fmt.Sprintf("#%s { top: %dpx; left: %dpx; width: 50px; height: 50px; border: 4px solid; padding: 3px; }\n", id, top, left)
		}
	}
	return absPage(t, css, ids...), ids
}

func selectorsFor(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "#" + id
	}
	return out
}

func TestProperty_Idempotent(t *testing.T) {
	ctx := context.Background()
	p, ids := grid(t)
	e := inview.New(nil)

	for _, sel := range selectorsFor(ids) {
		first, err := e.IsInView(ctx, p.nodes(sel), nil, &inview.Options{Partially: true})
		require.NoError(t, err)
		second, err := e.IsInView(ctx, p.nodes(sel), nil, &inview.Options{Partially: true})
		require.NoError(t, err)
		assert.Equal(t, first, second, sel)
	}
}

func TestProperty_SetMatchesSingles(t *testing.T) {
	ctx := context.Background()
	p, ids := grid(t)
	e := inview.New(nil)
	nodes := p.nodes(selectorsFor(ids)...)

	for _, opts := range []*inview.Options{nil, {Partially: true}, {Direction: inview.Vertical, Tolerance: inview.Px(10)}} {
		got, err := e.InView(ctx, nodes, nil, opts)
		require.NoError(t, err)

		var want []inview.Element
		for _, n := range nodes {
			in, err := e.IsInView(ctx, []inview.Node{n}, nil, opts)
			require.NoError(t, err)
			if in {
				want = append(want, n.(inview.Element))
			}
		}
		require.Len(t, got, len(want))
		for i := range want {
			same, err := got[i].SameNode(ctx, want[i])
			require.NoError(t, err)
			assert.True(t, same, "element %d differs", i)
		}
	}
}

func TestProperty_ToleranceMonotonic(t *testing.T) {
	ctx := context.Background()
	p, ids := grid(t)
	e := inview.New(nil)
	tolerances := []float64{-20, -5, 0, 5, 20, 40, 100}

	for _, partially := range []bool{false, true} {
		for _, sel := range selectorsFor(ids) {
			seen := false
			for _, tol := range tolerances {
				in, err := e.IsInView(ctx, p.nodes(sel), nil, &inview.Options{Partially: partially, Tolerance: inview.Px(tol)})
				require.NoError(t, err)
				if seen {
					assert.True(t, in, "%s lost visibility at tolerance %v (partially=%v)", sel, tol, partially)
				}
				seen = seen || in
			}
		}
	}
}

func TestProperty_PartialContainsFull(t *testing.T) {
	ctx := context.Background()
	p, ids := grid(t)
	e := inview.New(nil)

	for _, tol := range []inview.Tolerance{inview.Px(0), inview.Px(12), inview.Pct(5), inview.Px(-10)} {
		for _, sel := range selectorsFor(ids) {
			full, err := e.IsInView(ctx, p.nodes(sel), nil, &inview.Options{Tolerance: tol})
			require.NoError(t, err)
			partial, err := e.IsInView(ctx, p.nodes(sel), nil, &inview.Options{Partially: true, Tolerance: tol})
			require.NoError(t, err)
			if full {
				assert.True(t, partial, "%s with tolerance %s", sel, tol)
			}
		}
	}
}

func TestProperty_ContentBoxWithinBorderBox(t *testing.T) {
	ctx := context.Background()
	p, ids := grid(t)
	e := inview.New(nil)

	for _, sel := range selectorsFor(ids) {
		border, err := e.IsInView(ctx, p.nodes(sel), nil, &inview.Options{Box: inview.BorderBox})
		require.NoError(t, err)
		content, err := e.IsInView(ctx, p.nodes(sel), nil, &inview.Options{Box: inview.ContentBox})
		require.NoError(t, err)
		if border {
			assert.True(t, content, "%s: the content box lies inside the border box", sel)
		}
	}

	edge := absPage(t, `#e { top: -5px; left: 10px; width: 50px; height: 50px; border: 10px solid; }`, "e")
	border, err := e.IsInView(ctx, edge.nodes("#e"), nil, &inview.Options{Box: inview.BorderBox})
	require.NoError(t, err)
	content, err := e.IsInView(ctx, edge.nodes("#e"), nil, &inview.Options{Box: inview.ContentBox})
	require.NoError(t, err)
	assert.False(t, border)
	assert.True(t, content)
}

func TestScrollbarWidth_Memoized(t *testing.T) {
	ctx := context.Background()
	e := inview.New(nil)
	classic := loadPage(t, `<!DOCTYPE html><html><body></body></html>`)

	w, err := e.ScrollbarWidth(ctx, classic.win)
	require.NoError(t, err)
	assert.Equal(t, 15.0, w)

	again, err := e.ScrollbarWidth(ctx, classic.win)
	require.NoError(t, err)
	assert.Equal(t, w, again)

	overlay := loadPage(t, `<!DOCTYPE html><html><body></body></html>`, func(o *dom.Options) { o.ScrollbarWidth = 0 })
	memo, err := e.ScrollbarWidth(ctx, overlay.win)
	require.NoError(t, err)
	assert.Equal(t, 15.0, memo, "measured once per engine")

	e.Reset()
	fresh, err := e.ScrollbarWidth(ctx, overlay.win)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fresh)

	left, err := classic.doc.Find("body > *")
	require.NoError(t, err)
	assert.Empty(t, left, "the measuring element is removed again")
}

func TestScrollbarWidth_RequiresWindow(t *testing.T) {
	_, err := inview.New(nil).ScrollbarWidth(context.Background(), nil)
	requireArgumentError(t, err)
}

// -- Options --

func TestOptions_Direction(t *testing.T) {
	ctx := context.Background()
	p := absPage(t, `#wide { top: 10px; left: 790px; width: 50px; height: 50px; }`, "wide")
	e := inview.New(nil)

	in, err := e.IsInView(ctx, p.nodes("#wide"), nil, nil)
	require.NoError(t, err)
	assert.False(t, in)

	in, err = e.IsInView(ctx, p.nodes("#wide"), nil, &inview.Options{Direction: inview.Vertical})
	require.NoError(t, err)
	assert.True(t, in)

	in, err = e.IsInView(ctx, p.nodes("#wide"), nil, &inview.Options{Direction: inview.Horizontal})
	require.NoError(t, err)
	assert.False(t, in)

	_, err = e.IsInView(ctx, p.nodes("#wide"), nil, &inview.Options{Direction: "diagonal"})
	requireArgumentError(t, err)
}

func TestOptions_ExcludeHidden(t *testing.T) {
	ctx := context.Background()
	p := absPage(t, `#flat { top: 10px; left: 10px; width: 0; height: 10px; }`, "flat")
	e := inview.New(nil)

	in, err := e.IsInView(ctx, p.nodes("#flat"), nil, nil)
	require.NoError(t, err)
	assert.True(t, in)

	in, err = e.IsInView(ctx, p.nodes("#flat"), nil, &inview.Options{ExcludeHidden: true})
	require.NoError(t, err)
	assert.False(t, in)
}

func TestOptions_PercentTolerance(t *testing.T) {
	ctx := context.Background()
	p := absPage(t, `#up { top: -30px; left: 10px; width: 50px; height: 50px; }`, "up")
	e := inview.New(nil)

	tol, err := inview.ParseTolerance("5%")
	require.NoError(t, err)
	in, err := e.IsInView(ctx, p.nodes("#up"), nil, &inview.Options{Tolerance: tol})
	require.NoError(t, err)
	assert.True(t, in, "5% of 600px widens the viewport by 30px")

	in, err = e.IsInView(ctx, p.nodes("#up"), nil, &inview.Options{Tolerance: inview.Pct(4)})
	require.NoError(t, err)
	assert.False(t, in)
}

func TestOptions_InvalidBox(t *testing.T) {
	ctx := context.Background()
	p := absPage(t, `#a { width: 5px; height: 5px; }`, "a")
	_, err := inview.New(nil).IsInView(ctx, p.nodes("#a"), nil, &inview.Options{Box: "margin-box"})
	requireArgumentError(t, err)
}

// -- Containers --

const scrollerPage = `<!DOCTYPE html><html><head><style>
	body { margin: 0; }
	#s { height: 100px; overflow: auto; border: 5px solid; }
	#pad { height: 300px; }
	#target { height: 20px; }
	#outside { height: 10px; }
</style></head><body>
	<div id="s"><div id="pad"></div><div id="target"></div></div>
	<div id="outside"></div>
</body></html>`

func TestContainer_ScrolledElement(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, scrollerPage)
	e := inview.New(nil)

	in, err := e.IsInView(ctx, p.nodes("#target"), inview.In(p.el("#s")), nil)
	require.NoError(t, err)
	assert.False(t, in)

	p.el("#s").ScrollTo(0, 220)
	in, err = e.IsInView(ctx, p.nodes("#target"), inview.In(p.el("#s")), nil)
	require.NoError(t, err)
	assert.True(t, in, "the target sits at the bottom edge of the padding box")

	p.el("#s").ScrollTo(0, 210)
	in, err = e.IsInView(ctx, p.nodes("#target"), inview.In(p.el("#s")), nil)
	require.NoError(t, err)
	assert.False(t, in)
	in, err = e.IsInView(ctx, p.nodes("#target"), inview.In(p.el("#s")), &inview.Options{Partially: true})
	require.NoError(t, err)
	assert.True(t, in)
}

func TestContainer_BySelector(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, scrollerPage)
	e := inview.New(nil)

	in, err := e.IsInView(ctx, p.nodes("#pad"), inview.InSelector("#s"), &inview.Options{Partially: true})
	require.NoError(t, err)
	assert.True(t, in)

	_, err = e.IsInView(ctx, p.nodes("#pad"), inview.InSelector("#missing"), nil)
	requireContainerError(t, err)

	_, err = e.IsInView(ctx, p.nodes("#pad"), inview.InSet(nil), nil)
	requireContainerError(t, err)
}

func TestContainer_Hierarchy(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, `<!DOCTYPE html><html><head><style>
		#outer, #inner { overflow: hidden; height: 50px; }
	</style></head><body>
		<div id="outer"><div id="inner"><p id="leaf">x</p></div></div>
		<div id="sibling" style="overflow:hidden;height:10px"></div>
	</body></html>`)
	e := inview.New(nil)

	_, err := e.IsInView(ctx, p.nodes("#outer"), inview.In(p.el("#inner")), nil)
	requireContainerError(t, err)

	_, err = e.IsInView(ctx, p.nodes("#leaf"), inview.In(p.el("#sibling")), nil)
	requireContainerError(t, err)

	_, err = e.IsInView(ctx, p.nodes("#leaf"), inview.In(p.el("#outer")), nil)
	assert.NoError(t, err)

	_, err = e.IsInView(ctx, []inview.Node{p.doc}, nil, nil)
	requireArgumentError(t, err)

	other := absPage(t, "")
	_, err = e.IsInView(ctx, p.nodes("#leaf"), inview.In(other.win), nil)
	requireContainerError(t, err)
}

func TestContainer_DocumentMeansItsWindow(t *testing.T) {
	ctx := context.Background()
	p := absPage(t, `#a { left: 10px; top: 10px; width: 50px; height: 50px; }`, "a")

	in, err := inview.New(nil).IsInView(ctx, p.nodes("#a"), inview.In(p.doc), nil)
	require.NoError(t, err)
	assert.True(t, in)
}

func TestContainer_Iframe(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, `<!DOCTYPE html><html><head><style>body { margin: 0; }</style></head><body>
		<iframe id="f" srcdoc="<!DOCTYPE html><html><body style='margin:0'><div id='near' style='height:100px'></div><div id='far' style='height:10px;margin-top:500px'></div></body></html>"></iframe>
	</body></html>`)
	e := inview.New(nil)

	w, err := p.el("#f").ContentWindow(ctx)
	require.NoError(t, err)
	inner, err := w.Document(ctx)
	require.NoError(t, err)
	near, err := inner.QuerySelectorAll(ctx, "#near")
	require.NoError(t, err)
	far, err := inner.QuerySelectorAll(ctx, "#far")
	require.NoError(t, err)

	in, err := e.IsInView(ctx, inview.Nodes(near), inview.In(p.el("#f")), nil)
	require.NoError(t, err)
	assert.True(t, in)

	in, err = e.IsInViewport(ctx, inview.Nodes(far), nil)
	require.NoError(t, err)
	assert.False(t, in, "the frame viewport is 150px high")

	_, err = e.IsInView(ctx, inview.Nodes(near), nil, nil)
	require.NoError(t, err)

	_, err = e.IsInView(ctx, inview.Nodes(near), inview.In(p.win), nil)
	requireContainerError(t, err)
}

func TestInView_LaterFailuresAreExcluded(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, scrollerPage)
	e := inview.New(nil)

	got, err := e.InView(ctx, p.nodes("#pad", "#s", "#target"), inview.In(p.el("#s")), &inview.Options{Partially: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	same, err := got[0].SameNode(ctx, p.el("#pad"))
	require.NoError(t, err)
	assert.True(t, same)

	_, err = e.InView(ctx, p.nodes("#outside", "#pad"), inview.In(p.el("#s")), nil)
	requireContainerError(t, err)
}

func TestInView_NilNodes(t *testing.T) {
	ctx := context.Background()
	p := absPage(t, `#a { left: 10px; top: 10px; width: 50px; height: 50px; }`, "a")
	e := inview.New(nil)

	got, err := e.InView(ctx, []inview.Node{p.el("#a"), nil}, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	matches, err := e.MatchInViewport(ctx, []inview.Element{p.el("#a"), nil}, nil)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, matches)

	_, err = e.IsInView(ctx, []inview.Node{nil, p.el("#a")}, nil, nil)
	requireArgumentError(t, err)

	_, err = e.IsInView(ctx, []inview.Node{nil}, inview.In(p.win), nil)
	requireArgumentError(t, err)

	_, err = e.InView(ctx, []inview.Node{nil}, inview.InSelector("body"), nil)
	requireArgumentError(t, err)

	_, err = e.IsInViewport(ctx, []inview.Node{nil}, nil)
	requireArgumentError(t, err)

	_, err = e.HasScrollbar(ctx, []inview.Node{nil}, inview.Both)
	requireArgumentError(t, err)
}

// -- Scrollbars --

func TestIsInView_ScrollbarNarrowsClientArea(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, `<!DOCTYPE html><html><head><style>
		body { margin: 0; }
		#s { width: 100px; height: 100px; overflow: scroll; }
		#c { width: 95px; height: 10px; }
	</style></head><body><div id="s"><div id="c"></div></div></body></html>`)
	e := inview.New(nil)

	w, err := e.ScrollbarWidth(ctx, p.win)
	require.NoError(t, err)
	assert.Equal(t, 15.0, w)

	in, err := e.IsInView(ctx, p.nodes("#c"), inview.In(p.el("#s")), &inview.Options{Direction: inview.Horizontal})
	require.NoError(t, err)
	assert.False(t, in, "95px does not fit the 85px client width")

	in, err = e.IsInView(ctx, p.nodes("#c"), inview.In(p.el("#s")), &inview.Options{Direction: inview.Horizontal, Partially: true})
	require.NoError(t, err)
	assert.True(t, in)

	in, err = e.IsInView(ctx, p.nodes("#c"), inview.In(p.el("#s")), &inview.Options{Direction: inview.Vertical})
	require.NoError(t, err)
	assert.True(t, in)
}

func TestHasScrollbar_Window(t *testing.T) {
	ctx := context.Background()
	tall := `<!DOCTYPE html><html><head><style>body { margin: 0; } #t { height: 2000px; }</style></head><body><div id="t"></div></body></html>`
	short := `<!DOCTYPE html><html><head><style>body { margin: 0; }</style></head><body><div style="height:10px"></div></body></html>`

	for _, legacy := range []bool{false, true} {
		t.Run(fmt.Sprintf("legacy=%v", legacy), func(t *testing.T) {
			setLegacy := func(o *dom.Options) { o.BodyScrollReportsDocument = legacy }
			e := inview.New(nil)

			p := loadPage(t, tall, setLegacy)
			s, err := e.HasScrollbar(ctx, []inview.Node{p.win}, inview.Both)
			require.NoError(t, err)
			assert.True(t, s.Vertical)
			assert.False(t, s.Horizontal)

			p = loadPage(t, short, setLegacy)
			s, err = e.HasScrollbar(ctx, []inview.Node{p.doc}, inview.Both)
			require.NoError(t, err)
			assert.False(t, s.Present())

			root, err := p.doc.DocumentElement(ctx)
			require.NoError(t, err)
			s, err = e.HasScrollbar(ctx, []inview.Node{root}, inview.Vertical)
			require.NoError(t, err)
			assert.False(t, s.Vertical)
		})
	}
}

func TestHasScrollbar_IOSOverridesHiddenViewport(t *testing.T) {
	ctx := context.Background()
	markup := `<!DOCTYPE html><html><head><style>html { overflow: hidden; } body { margin: 0; }</style></head>
		<body><div style="height:2000px"></div></body></html>`

	desktop := loadPage(t, markup)
	s, err := inview.New(nil).HasScrollbar(ctx, []inview.Node{desktop.win}, inview.Vertical)
	require.NoError(t, err)
	assert.False(t, s.Vertical)

	ios := loadPage(t, markup, func(o *dom.Options) {
		o.UserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15"
	})
	s, err = inview.New(nil).HasScrollbar(ctx, []inview.Node{ios.win}, inview.Vertical)
	require.NoError(t, err)
	assert.True(t, s.Vertical)
}

func TestHasScrollbar_PositionedClippingBody(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, `<!DOCTYPE html><html><head><style>
		html { overflow: auto; }
		body { position: relative; overflow: hidden; margin: 10px; height: 2000px; }
	</style></head><body><div style="width:5000px;height:10px"></div></body></html>`)

	s, err := inview.New(nil).HasScrollbar(ctx, []inview.Node{p.win}, inview.Both)
	require.NoError(t, err)
	assert.True(t, s.Vertical)
	assert.False(t, s.Horizontal, "the body clips its wide child")
}

func TestHasScrollbar_Body(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, `<!DOCTYPE html><html><head><style>
		html { overflow: hidden; }
		body { overflow: scroll; height: 100px; }
	</style></head><body></body></html>`)
	body, err := p.doc.Body(ctx)
	require.NoError(t, err)

	s, err := inview.New(nil).HasScrollbar(ctx, []inview.Node{body}, inview.Both)
	require.NoError(t, err)
	assert.True(t, s.Horizontal)
	assert.True(t, s.Vertical)
}

func TestHasScrollbar_Arguments(t *testing.T) {
	ctx := context.Background()
	p := absPage(t, "")
	e := inview.New(nil)

	s, err := e.HasScrollbar(ctx, nil, inview.Both)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = e.HasScrollbar(ctx, nil, "sideways")
	requireArgumentError(t, err)

	s, err = e.HasScrollbar(ctx, []inview.Node{p.win}, "")
	require.NoError(t, err)
	assert.Equal(t, inview.Both, s.Axis)
}

func TestScrollbarSize(t *testing.T) {
	ctx := context.Background()
	markup := `<!DOCTYPE html><html><head><style>
		#s { width: 100px; height: 100px; overflow: scroll; }
		#h { width: 100px; height: 100px; overflow: hidden; }
	</style></head><body><div id="s"></div><div id="h"></div></body></html>`

	p := loadPage(t, markup)
	e := inview.New(nil)
	sizes, err := e.ScrollbarSize(ctx, p.nodes("#s"), inview.Both)
	require.NoError(t, err)
	assert.Equal(t, &inview.ScrollbarSizes{Axis: inview.Both, Horizontal: 15, Vertical: 15}, sizes)

	sizes, err = e.ScrollbarSize(ctx, p.nodes("#s"), inview.Vertical)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sizes.Horizontal)
	assert.Equal(t, 15.0, sizes.Vertical)

	sizes, err = e.ScrollbarSize(ctx, p.nodes("#h"), inview.Both)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sizes.Horizontal+sizes.Vertical)

	overlay := loadPage(t, markup, func(o *dom.Options) { o.ScrollbarWidth = 0 })
	sizes, err = inview.New(nil).ScrollbarSize(ctx, overlay.nodes("#s"), inview.Both)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sizes.Horizontal+sizes.Vertical, "overlay scrollbars take no space")
}

// -- Owner window and selection --

func TestOwnerWindow(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, `<!DOCTYPE html><html><body><iframe id="f"></iframe></body></html>`)

	w, err := inview.OwnerWindow(ctx, p.nodes("#f"))
	require.NoError(t, err)
	same, err := w.SameNode(ctx, p.win)
	require.NoError(t, err)
	assert.True(t, same, "an iframe belongs to the window containing it")

	w, err = inview.OwnerWindow(ctx, []inview.Node{p.doc})
	require.NoError(t, err)
	same, _ = w.SameNode(ctx, p.win)
	assert.True(t, same)

	w, err = inview.OwnerWindow(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestSelect_InViewportPseudo(t *testing.T) {
	ctx := context.Background()
	p := loadPage(t, `<!DOCTYPE html><html><head><style>
		body { margin: 0; }
		.item { position: absolute; left: 10px; width: 50px; height: 50px; }
		#one { top: 10px; } #two { top: 100px; } #three { top: 2000px; }
	</style></head><body>
		<div class="item" id="one"></div><div class="item" id="two"></div><div class="item" id="three"></div>
	</body></html>`)
	e := inview.New(nil)

	all, err := e.Select(ctx, p.doc, "div.item", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	visible, err := e.Select(ctx, p.doc, "div.item:InViewport()", nil)
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	visible, err = e.Select(ctx, p.doc, "body > :inviewport", nil)
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	_, err = e.Select(ctx, p.doc, "div:inviewport > p", nil)
	requireArgumentError(t, err)

	matches, err := e.MatchInViewport(ctx, []inview.Element{p.el("#three"), p.el("#one")}, nil)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, matches)
}
