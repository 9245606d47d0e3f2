// internal/browser/dom/document.go
package dom

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/xkilldash9x/inview/internal/browser/layout"
	"github.com/xkilldash9x/inview/internal/browser/parser"
	"github.com/xkilldash9x/inview/internal/browser/style"
	"github.com/xkilldash9x/inview/pkg/inview"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	compatStandards = "CSS1Compat"
	compatQuirks    = "BackCompat"
)

// Document is a parsed HTML document with its cascade and layout.
type Document struct {
	host    *Host
	win     *Window // nil once the owning iframe is removed
	root    *html.Node
	quirks  bool
	baseDir string

	scroll map[*html.Node]layout.Point
	frames map[*html.Node]*Window
	links  map[string]linkedSheet

	gen    int
	tree   *layout.Tree
	styled map[*html.Node]*style.StyledNode
}

type linkedSheet struct {
	sheet parser.StyleSheet
	err   error
}

var _ inview.Document = (*Document)(nil)

func (d *Document) NodeType() inview.NodeType { return inview.DocumentNode }

func (d *Document) SameNode(_ context.Context, other inview.Node) (bool, error) {
	o, ok := other.(*Document)
	return ok && o == d, nil
}

func (d *Document) DefaultView(context.Context) (inview.Window, error) {
	d.host.mu.Lock()
	defer d.host.mu.Unlock()
	if d.win == nil {
		return nil, nil
	}
	return d.win, nil
}

func (d *Document) DocumentElement(context.Context) (inview.Element, error) {
	d.host.mu.Lock()
	defer d.host.mu.Unlock()
	if n := d.documentElement(); n != nil {
		return d.element(n), nil
	}
	return nil, nil
}

func (d *Document) Body(context.Context) (inview.Element, error) {
	d.host.mu.Lock()
	defer d.host.mu.Unlock()
	if n := d.body(); n != nil {
		return d.element(n), nil
	}
	return nil, nil
}

func (d *Document) CompatMode(context.Context) (string, error) {
	return d.compatMode(), nil
}

func (d *Document) compatMode() string {
	if d.quirks {
		return compatQuirks
	}
	return compatStandards
}

// CreateElement returns a detached element owned by the document.
func (d *Document) CreateElement(_ context.Context, tag string) (inview.Element, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" || strings.ContainsAny(tag, " <>/\"'=") {
		return nil, fmt.Errorf("invalid tag name %q", tag)
	}
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	return &Element{doc: d, node: n}, nil
}

// QuerySelectorAll matches a CSS selector, or an XPath expression when the
// selector starts with "/" or "(".
func (d *Document) QuerySelectorAll(_ context.Context, selector string) ([]inview.Element, error) {
	d.host.mu.Lock()
	defer d.host.mu.Unlock()

	nodes, err := d.query(selector)
	if err != nil {
		return nil, err
	}
	out := make([]inview.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, d.element(n))
	}
	return out, nil
}

// Find is QuerySelectorAll returning concrete elements.
func (d *Document) Find(selector string) ([]*Element, error) {
	d.host.mu.Lock()
	defer d.host.mu.Unlock()

	nodes, err := d.query(selector)
	if err != nil {
		return nil, err
	}
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, d.element(n))
	}
	return out, nil
}

// MustFind returns the first match of selector and panics when there is none.
// It is meant for fixtures.
func (d *Document) MustFind(selector string) *Element {
	els, err := d.Find(selector)
	if err != nil {
		panic(err)
	}
	if len(els) == 0 {
		panic(fmt.Sprintf("dom: no element matches %q", selector))
	}
	return els[0]
}

func (d *Document) query(selector string) ([]*html.Node, error) {
	selector = strings.TrimSpace(selector)
	if strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(") {
		found, err := htmlquery.QueryAll(d.root, selector)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", selector, err)
		}
		nodes := found[:0]
		for _, n := range found {
			if n.Type == html.ElementNode {
				nodes = append(nodes, n)
			}
		}
		return nodes, nil
	}
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return cascadia.QueryAll(d.root, group), nil
}

func (d *Document) element(n *html.Node) *Element {
	return &Element{doc: d, node: n}
}

func (d *Document) documentElement() *html.Node {
	for n := d.root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			return n
		}
	}
	return nil
}

func (d *Document) body() *html.Node {
	root := d.documentElement()
	if root == nil {
		return nil
	}
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Body || n.DataAtom == atom.Frameset) {
			return n
		}
	}
	return nil
}

// attached reports whether n is part of the document tree.
func (d *Document) attached(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// -- Style and Layout --

// layout returns the document's layout tree, recomputing it when the host was
// mutated since the last run. Callers hold the host lock.
func (d *Document) layout() *layout.Tree {
	if d.gen == d.host.gen && d.tree != nil {
		return d.tree
	}
	d.gen = d.host.gen
	d.tree, d.styled = nil, nil

	rootEl := d.documentElement()
	if rootEl == nil {
		return nil
	}

	var w, h float64
	var viewportScroll layout.Point
	if d.win != nil {
		w, h = d.win.size()
		viewportScroll = d.win.scroll
	}
	opts := d.host.opts

	styleEngine := style.NewEngine(d.host.logger)
	styleEngine.SetViewport(w, h)
	for _, sheet := range d.authorSheets() {
		styleEngine.AddAuthorSheet(sheet)
	}
	styleTree := styleEngine.BuildTree(rootEl)

	d.styled = make(map[*html.Node]*style.StyledNode)
	var index func(sn *style.StyledNode)
	index = func(sn *style.StyledNode) {
		d.styled[sn.Node] = sn
		for _, c := range sn.Children {
			index(c)
		}
	}
	index(styleTree)

	engine := layout.NewEngine(layout.Config{
		ViewportWidth:  w,
		ViewportHeight: h,
		ScrollbarWidth: opts.ScrollbarWidth,
		ViewportScroll: viewportScroll,
		ScrollOffsets:  d.scroll,
	}, d.host.logger)
	d.tree = engine.BuildAndLayoutTree(styleTree)
	return d.tree
}

// authorSheets collects <style> elements and local <link rel=stylesheet>
// sheets in document order.
func (d *Document) authorSheets() []parser.StyleSheet {
	var sheets []parser.StyleSheet
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Style:
				sheet, err := parser.ParseStyleSheet(htmlquery.InnerText(n))
				if err != nil {
					d.host.logger.Warn("Skipping unparsable style element.", zap.Error(err))
				} else {
					sheets = append(sheets, sheet)
				}
			case atom.Link:
				if sheet, ok := d.linkedSheet(n); ok {
					sheets = append(sheets, sheet)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return sheets
}

func (d *Document) linkedSheet(n *html.Node) (parser.StyleSheet, bool) {
	rel, _ := attr(n, "rel")
	if !containsToken(rel, "stylesheet") {
		return parser.StyleSheet{}, false
	}
	href, _ := attr(n, "href")
	p := localPath(href)
	if p == "" {
		return parser.StyleSheet{}, false
	}
	p = resolvePath(d.baseDir, p)
	cached, ok := d.links[p]
	if !ok {
		data, err := os.ReadFile(p)
		if err == nil {
			cached.sheet, cached.err = parser.ParseStyleSheet(string(data))
		} else {
			cached.err = err
		}
		if cached.err != nil {
			d.host.logger.Warn("Skipping linked stylesheet.", zap.String("path", p), zap.Error(cached.err))
		}
		d.links[p] = cached
	}
	return cached.sheet, cached.err == nil
}

func containsToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}
