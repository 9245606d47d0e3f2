// internal/browser/parser/css.go
package parser

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	douceur "github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

// Property represents a CSS property (e.g., "display").
type Property string

// Value represents a CSS value (e.g., "none").
type Value string

// Declaration is a key-value pair (e.g., display: none).
type Declaration struct {
	Property  Property
	Value     Value
	Important bool
}

// Specificity is the (a, b, c) specificity of a selector.
type Specificity [3]int

// Less orders specificities the way the cascade does.
func (s Specificity) Less(other Specificity) bool {
	for i := range s {
		if s[i] != other[i] {
			return s[i] < other[i]
		}
	}
	return false
}

// Selector is one compiled complex selector of a rule's selector list.
type Selector struct {
	Text string
	sel  cascadia.Sel
}

// Match reports whether the element node matches the selector.
func (s Selector) Match(n *html.Node) bool {
	return s.sel != nil && n != nil && n.Type == html.ElementNode && s.sel.Match(n)
}

// Specificity of the selector.
func (s Selector) Specificity() Specificity {
	if s.sel == nil {
		return Specificity{}
	}
	return Specificity(s.sel.Specificity())
}

// RuleSet represents a set of declarations applied by one or more selectors.
type RuleSet struct {
	Selectors    []Selector
	Declarations []Declaration
}

// MatchingSelector returns the most specific selector of the rule matching n.
func (r RuleSet) MatchingSelector(n *html.Node) (Selector, bool) {
	var best Selector
	found := false
	for _, s := range r.Selectors {
		if !s.Match(n) {
			continue
		}
		if !found || best.Specificity().Less(s.Specificity()) {
			best, found = s, true
		}
	}
	return best, found
}

// StyleSheet is the top-level structure representing the parsed CSSOM.
type StyleSheet struct {
	Rules []RuleSet
	// Skipped lists selectors that could not be compiled, and at-rules.
	Skipped []string
}

// ParseStyleSheet parses a stylesheet. Qualified rules whose selectors do not
// compile are dropped, as browsers do; at-rules are ignored except for the
// contents of @media blocks, which always apply.
func ParseStyleSheet(text string) (StyleSheet, error) {
	sheet, err := douceur.Parse(text)
	if err != nil {
		return StyleSheet{}, fmt.Errorf("parsing stylesheet: %w", err)
	}
	var out StyleSheet
	out.addRules(sheet.Rules)
	return out, nil
}

// MustParseStyleSheet is ParseStyleSheet for built-in sheets.
func MustParseStyleSheet(text string) StyleSheet {
	sheet, err := ParseStyleSheet(text)
	if err != nil {
		panic(err)
	}
	return sheet
}

func (s *StyleSheet) addRules(rules []*css.Rule) {
	for _, rule := range rules {
		if rule.Kind == css.AtRule {
			if strings.EqualFold(strings.TrimPrefix(rule.Name, "@"), "media") {
				s.addRules(rule.Rules)
				continue
			}
			s.Skipped = append(s.Skipped, rule.Name)
			continue
		}

		rs := RuleSet{Declarations: convertDeclarations(rule.Declarations)}
		for _, text := range rule.Selectors {
			sel, err := cascadia.Parse(text)
			if err != nil {
				s.Skipped = append(s.Skipped, text)
				continue
			}
			rs.Selectors = append(rs.Selectors, Selector{Text: text, sel: sel})
		}
		if len(rs.Selectors) > 0 && len(rs.Declarations) > 0 {
			s.Rules = append(s.Rules, rs)
		}
	}
}

// ParseDeclarations parses the body of a style attribute.
func ParseDeclarations(text string) ([]Declaration, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	// douceur drops a final declaration that is not terminated.
	if !strings.HasSuffix(text, ";") {
		text += ";"
	}
	decls, err := douceur.ParseDeclarations(text)
	if err != nil {
		return nil, fmt.Errorf("parsing declarations: %w", err)
	}
	return convertDeclarations(decls), nil
}

func convertDeclarations(decls []*css.Declaration) []Declaration {
	out := make([]Declaration, 0, len(decls))
	for _, d := range decls {
		prop := strings.ToLower(strings.TrimSpace(d.Property))
		val := strings.TrimSpace(d.Value)
		if prop == "" || val == "" {
			continue
		}
		out = append(out, Declaration{Property: Property(prop), Value: Value(val), Important: d.Important})
	}
	return out
}

// FormatDeclarations serializes declarations back to style attribute syntax.
func FormatDeclarations(decls []Declaration) string {
	var b strings.Builder
	for i, d := range decls {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(d.Property))
		b.WriteString(": ")
		b.WriteString(string(d.Value))
		if d.Important {
			b.WriteString(" !important")
		}
		b.WriteByte(';')
	}
	return b.String()
}
