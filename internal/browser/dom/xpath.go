// internal/browser/dom/xpath.go
package dom

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ElementPath builds an XPath that selects n and nothing else in its document.
// The walk stops at the nearest ancestor with an id, which keeps paths short
// and stable across unrelated edits. Detached nodes get a path relative to
// their detached root.
func ElementPath(n *html.Node) string {
	var steps []string
	anchored := false
	for ; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if id := htmlquery.SelectAttr(n, "id"); id != "" && uniqueID(n, id) {
			steps = append(steps, fmt.Sprintf("//*[@id=%s]", quoteXPath(id)))
			anchored = true
			break
		}
		tag := strings.ToLower(n.Data)
		steps = append(steps, fmt.Sprintf("%s[%d]", tag, siblingIndex(n, tag)))
	}
	if len(steps) == 0 {
		return "/"
	}

	var b strings.Builder
	if !anchored {
		b.WriteString("/")
	}
	for i := len(steps) - 1; i >= 0; i-- {
		b.WriteString(steps[i])
		if i > 0 {
			b.WriteString("/")
		}
	}
	return b.String()
}

// Path returns the element's XPath, as used in reports.
func (e *Element) Path() string {
	e.doc.host.mu.Lock()
	defer e.doc.host.mu.Unlock()
	return ElementPath(e.node)
}

// siblingIndex is the 1-based position of n among same-tag siblings.
func siblingIndex(n *html.Node, tag string) int {
	i := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && strings.EqualFold(s.Data, tag) {
			i++
		}
	}
	return i
}

// uniqueID reports whether no other element in n's tree carries the same id.
func uniqueID(n *html.Node, id string) bool {
	top := n
	for top.Parent != nil {
		top = top.Parent
	}
	count := 0
	var walk func(x *html.Node)
	walk = func(x *html.Node) {
		if count > 1 {
			return
		}
		if x.Type == html.ElementNode && htmlquery.SelectAttr(x, "id") == id {
			count++
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(top)
	return count == 1
}

// quoteXPath quotes a string literal, falling back to concat() when it holds
// both quote characters.
func quoteXPath(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ",") + ")"
}
