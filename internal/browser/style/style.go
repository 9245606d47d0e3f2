// internal/browser/style/style.go
package style

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/xkilldash9x/inview/internal/browser/parser"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// -- Constants and Configuration --

const (
	BaseFontSize      = 16.0 // Default root font size.
	DefaultLineHeight = 1.2  // Default multiplier for 'line-height: normal'.
)

// DefaultUserAgentCSS covers the elements the layout engine understands.
const DefaultUserAgentCSS = `
html, body, div, p, h1, h2, h3, h4, h5, h6, ul, ol, li, form, header, footer,
section, article, nav, main, aside, figure, blockquote, pre, table, tr, td, th, dl, dt, dd {
    display: block;
}
head, script, style, title, meta, link, template, noscript { display: none; }
body { margin: 8px; }
h1 { font-size: 2em; margin: 0.67em 0; }
h2 { font-size: 1.5em; margin: 0.83em 0; }
p, ul, ol, pre, blockquote, dl, figure { margin: 1em 0; }
ul, ol { padding-left: 40px; }
iframe { display: inline-block; width: 300px; height: 150px; border: 2px inset; }
img, input, button, textarea, select, canvas, video { display: inline-block; }
input, button, textarea, select { box-sizing: border-box; border: 1px solid; padding: 1px 2px; }
input { width: 170px; height: 21px; }
`

// initialValues are reported for properties no rule sets.
var initialValues = map[parser.Property]parser.Value{
	"display":             "inline",
	"position":            "static",
	"box-sizing":          "content-box",
	"overflow-x":          "visible",
	"overflow-y":          "visible",
	"visibility":          "visible",
	"width":               "auto",
	"height":              "auto",
	"min-width":           "0px",
	"min-height":          "0px",
	"max-width":           "none",
	"max-height":          "none",
	"top":                 "auto",
	"right":               "auto",
	"bottom":              "auto",
	"left":                "auto",
	"margin-top":          "0px",
	"margin-right":        "0px",
	"margin-bottom":       "0px",
	"margin-left":         "0px",
	"padding-top":         "0px",
	"padding-right":       "0px",
	"padding-bottom":      "0px",
	"padding-left":        "0px",
	"border-top-style":    "none",
	"border-right-style":  "none",
	"border-bottom-style": "none",
	"border-left-style":   "none",
	"border-top-width":    "medium",
	"border-right-width":  "medium",
	"border-bottom-width": "medium",
	"border-left-width":   "medium",
}

var sides = [4]string{"top", "right", "bottom", "left"}

// -- Style Engine --

// Engine runs the cascade for one document: user agent rules, the document's
// own stylesheets, then style attributes.
type Engine struct {
	userAgentSheets []parser.StyleSheet
	authorSheets    []parser.StyleSheet
	viewportWidth   float64
	viewportHeight  float64
	logger          *zap.Logger
}

var userAgentSheet = parser.MustParseStyleSheet(DefaultUserAgentCSS)

// NewEngine creates a styling engine seeded with the user agent sheet.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		userAgentSheets: []parser.StyleSheet{userAgentSheet},
		logger:          logger,
	}
}

// AddAuthorSheet adds a stylesheet provided by the document.
func (se *Engine) AddAuthorSheet(sheet parser.StyleSheet) {
	se.authorSheets = append(se.authorSheets, sheet)
}

// SetViewport sets the dimensions used for viewport-relative units.
func (se *Engine) SetViewport(width, height float64) {
	se.viewportWidth = width
	se.viewportHeight = height
}

// -- Canonical Data Structures --

// StyledNode represents a DOM node combined with its computed styles.
type StyledNode struct {
	Node           *html.Node
	ComputedStyles map[parser.Property]parser.Value
	Parent         *StyledNode
	Children       []*StyledNode
}

// -- Style Tree Construction (The Cascade and Inheritance) --

// BuildTree styles node and its subtree. Comments are skipped.
func (se *Engine) BuildTree(node *html.Node) *StyledNode {
	return se.buildTreeRecursive(node, nil)
}

func (se *Engine) buildTreeRecursive(node *html.Node, parent *StyledNode) *StyledNode {
	switch node.Type {
	case html.CommentNode, html.DoctypeNode:
		return nil
	}

	computedStyles := make(map[parser.Property]parser.Value)
	if node.Type == html.ElementNode {
		computedStyles = se.CalculateStyles(node)
	}

	styledNode := &StyledNode{
		Node:           node,
		ComputedStyles: computedStyles,
		Parent:         parent,
	}

	if parent != nil {
		inheritStyles(styledNode, parent)
	} else {
		applyRootDefaults(styledNode)
	}
	se.resolveRelativeValues(styledNode, parent)
	finalizeComputed(styledNode)

	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if childStyled := se.buildTreeRecursive(c, styledNode); childStyled != nil {
			styledNode.Children = append(styledNode.Children, childStyled)
		}
	}
	return styledNode
}

func applyRootDefaults(sn *StyledNode) {
	if _, exists := sn.ComputedStyles["font-size"]; !exists {
		sn.ComputedStyles["font-size"] = parser.Value(FormatPx(BaseFontSize))
	}
}

var inheritableProperties = []parser.Property{
	"color", "font-family", "font-size", "font-weight", "line-height", "text-align", "visibility", "cursor",
}

func inheritStyles(child, parent *StyledNode) {
	for prop, val := range child.ComputedStyles {
		if val == "inherit" {
			if parentVal, parentHas := parent.ComputedStyles[prop]; parentHas {
				child.ComputedStyles[prop] = parentVal
			} else {
				delete(child.ComputedStyles, prop)
			}
		}
	}
	for _, prop := range inheritableProperties {
		if _, exists := child.ComputedStyles[prop]; !exists {
			if val, parentHas := parent.ComputedStyles[prop]; parentHas {
				child.ComputedStyles[prop] = val
			}
		}
	}
}

func (se *Engine) resolveRelativeValues(sn *StyledNode, parent *StyledNode) {
	parentFontSize := BaseFontSize
	if parent != nil {
		parentFontSize = GetFontSize(parent)
	}
	if fontSizeStr, ok := sn.ComputedStyles["font-size"]; ok {
		resolved := ParseLengthWithUnits(string(fontSizeStr), parentFontSize, BaseFontSize, parentFontSize, se.viewportWidth, se.viewportHeight)
		sn.ComputedStyles["font-size"] = parser.Value(FormatPx(resolved))
	}
	fontSize := GetFontSize(sn)
	if lineHeightStr, ok := sn.ComputedStyles["line-height"]; ok {
		sn.ComputedStyles["line-height"] = parser.Value(FormatPx(se.resolveLineHeight(string(lineHeightStr), fontSize)))
	}

	// em, rem and viewport units on box properties become px here; percentages
	// need the containing block and are left to layout.
	for prop, val := range sn.ComputedStyles {
		if !isBoxLengthProperty(prop) {
			continue
		}
		v := string(val)
		if strings.HasSuffix(v, "em") || strings.HasSuffix(v, "vw") || strings.HasSuffix(v, "vh") ||
			strings.HasSuffix(v, "vmin") || strings.HasSuffix(v, "vmax") {
			sn.ComputedStyles[prop] = parser.Value(FormatPx(ParseLengthWithUnits(v, fontSize, BaseFontSize, 0, se.viewportWidth, se.viewportHeight)))
		}
	}
}

func isBoxLengthProperty(p parser.Property) bool {
	s := string(p)
	switch {
	case strings.HasPrefix(s, "margin-"), strings.HasPrefix(s, "padding-"):
		return true
	case strings.HasPrefix(s, "border-") && strings.HasSuffix(s, "-width"):
		return true
	}
	switch s {
	case "width", "height", "min-width", "min-height", "max-width", "max-height", "top", "right", "bottom", "left":
		return true
	}
	return false
}

func (se *Engine) resolveLineHeight(value string, fontSize float64) float64 {
	value = strings.TrimSpace(value)
	if value == "normal" {
		return fontSize * DefaultLineHeight
	}
	if val, err := strconv.ParseFloat(value, 64); err == nil {
		return fontSize * val
	}
	return ParseLengthWithUnits(value, fontSize, BaseFontSize, fontSize, se.viewportWidth, se.viewportHeight)
}

// finalizeComputed applies the computed-value rules the layout relies on.
func finalizeComputed(sn *StyledNode) {
	if sn.Node.Type != html.ElementNode {
		return
	}
	cs := sn.ComputedStyles

	// A border without a style has no width.
	for _, side := range sides {
		styleProp := parser.Property("border-" + side + "-style")
		widthProp := parser.Property("border-" + side + "-width")
		st := cs[styleProp]
		if st == "" || st == "none" || st == "hidden" {
			cs[widthProp] = "0px"
			continue
		}
		switch cs[widthProp] {
		case "", "medium":
			cs[widthProp] = "3px"
		case "thin":
			cs[widthProp] = "1px"
		case "thick":
			cs[widthProp] = "5px"
		}
	}

	// visible (or clip) next to a scrolling value on the other axis computes to
	// auto (or hidden).
	ox, oy := sn.Lookup("overflow-x", "visible"), sn.Lookup("overflow-y", "visible")
	xPassive := ox == "visible" || ox == "clip"
	yPassive := oy == "visible" || oy == "clip"
	if xPassive != yPassive {
		if xPassive {
			cs["overflow-x"] = parser.Value(promoteOverflow(ox))
		} else {
			cs["overflow-y"] = parser.Value(promoteOverflow(oy))
		}
	}
}

func promoteOverflow(v string) string {
	if v == "clip" {
		return "hidden"
	}
	return "auto"
}

// -- Cascade --

type StyleOrigin int

const (
	OriginUserAgent StyleOrigin = iota
	OriginAuthor
	OriginInline
)

type DeclarationWithContext struct {
	Declaration parser.Declaration
	Specificity parser.Specificity
	Origin      StyleOrigin
	Order       int
}

// CalculateStyles returns the cascaded, shorthand-expanded declarations of an element.
func (se *Engine) CalculateStyles(node *html.Node) map[parser.Property]parser.Value {
	var declarations []DeclarationWithContext
	order := 0

	processSheets := func(sheets []parser.StyleSheet, origin StyleOrigin) {
		for _, sheet := range sheets {
			for _, rule := range sheet.Rules {
				sel, ok := rule.MatchingSelector(node)
				if !ok {
					continue
				}
				for _, decl := range rule.Declarations {
					declarations = append(declarations, DeclarationWithContext{
						Declaration: decl,
						Specificity: sel.Specificity(),
						Origin:      origin,
						Order:       order,
					})
					order++
				}
			}
		}
	}

	processSheets(se.userAgentSheets, OriginUserAgent)
	processSheets(se.authorSheets, OriginAuthor)

	for _, attr := range node.Attr {
		if attr.Key != "style" {
			continue
		}
		inlineDecls, err := parser.ParseDeclarations(attr.Val)
		if err != nil {
			se.logger.Debug("Ignoring malformed style attribute.", zap.String("tag", node.Data), zap.Error(err))
			continue
		}
		for _, decl := range inlineDecls {
			declarations = append(declarations, DeclarationWithContext{
				Declaration: decl,
				Origin:      OriginInline,
				Order:       order,
			})
			order++
		}
	}

	sort.SliceStable(declarations, func(i, j int) bool {
		d1, d2 := declarations[i], declarations[j]
		p1, p2 := calculateCascadePriority(d1), calculateCascadePriority(d2)
		if p1 != p2 {
			return p1 < p2
		}
		if d1.Specificity != d2.Specificity {
			return d1.Specificity.Less(d2.Specificity)
		}
		return d1.Order < d2.Order
	})

	// Shorthands expand in cascade order so a later longhand overrides an
	// earlier shorthand and vice versa.
	styles := make(map[parser.Property]parser.Value)
	for _, declCtx := range declarations {
		applyDeclaration(styles, declCtx.Declaration.Property, declCtx.Declaration.Value)
	}
	return styles
}

func calculateCascadePriority(d DeclarationWithContext) int {
	isImportant := d.Declaration.Important
	switch d.Origin {
	case OriginUserAgent:
		if isImportant {
			return 6
		}
		return 1
	case OriginAuthor:
		if isImportant {
			return 4
		}
		return 2
	case OriginInline:
		if isImportant {
			return 5
		}
		return 3
	}
	return 0
}

// -- Shorthand Expansion --

func applyDeclaration(styles map[parser.Property]parser.Value, prop parser.Property, val parser.Value) {
	switch prop {
	case "margin", "padding":
		expand1To4Shorthand(styles, string(val), func(side string) parser.Property {
			return parser.Property(string(prop) + "-" + side)
		})
	case "border-width", "border-style":
		kind := strings.TrimPrefix(string(prop), "border-")
		expand1To4Shorthand(styles, string(val), func(side string) parser.Property {
			return parser.Property("border-" + side + "-" + kind)
		})
	case "border":
		width, st := splitBorder(string(val))
		for _, side := range sides {
			styles[parser.Property("border-"+side+"-width")] = parser.Value(width)
			styles[parser.Property("border-"+side+"-style")] = parser.Value(st)
		}
	case "border-top", "border-right", "border-bottom", "border-left":
		width, st := splitBorder(string(val))
		styles[prop+"-width"] = parser.Value(width)
		styles[prop+"-style"] = parser.Value(st)
	case "overflow":
		parts := strings.Fields(strings.ToLower(string(val)))
		if len(parts) == 0 {
			return
		}
		y := parts[0]
		if len(parts) > 1 {
			y = parts[1]
		}
		styles["overflow-x"] = parser.Value(parts[0])
		styles["overflow-y"] = parser.Value(y)
	default:
		styles[prop] = parser.Value(strings.ToLower(string(val)))
	}
}

func expand1To4Shorthand(styles map[parser.Property]parser.Value, val string, name func(side string) parser.Property) {
	parts := strings.Fields(strings.ToLower(val))
	var v [4]string
	switch len(parts) {
	case 1:
		v = [4]string{parts[0], parts[0], parts[0], parts[0]}
	case 2:
		v = [4]string{parts[0], parts[1], parts[0], parts[1]}
	case 3:
		v = [4]string{parts[0], parts[1], parts[2], parts[1]}
	case 4:
		v = [4]string{parts[0], parts[1], parts[2], parts[3]}
	default:
		return
	}
	for i, side := range sides {
		styles[name(side)] = parser.Value(v[i])
	}
}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "solid": true, "dashed": true, "dotted": true,
	"double": true, "groove": true, "ridge": true, "inset": true, "outset": true,
}

func splitBorder(val string) (width, st string) {
	width, st = "medium", "none"
	for _, part := range strings.Fields(strings.ToLower(val)) {
		switch {
		case borderStyles[part]:
			st = part
		case part == "thin" || part == "medium" || part == "thick" || (part[0] >= '0' && part[0] <= '9') || part[0] == '.':
			width = part
		}
	}
	return width, st
}

// -- Accessors --

// Lookup returns the computed value of a property, the initial value when no
// rule set it, or fallback for properties without a known initial value.
func (sn *StyledNode) Lookup(property, fallback string) string {
	if val, ok := sn.ComputedStyles[parser.Property(property)]; ok {
		return string(val)
	}
	if val, ok := initialValues[parser.Property(property)]; ok {
		return string(val)
	}
	return fallback
}

// Overflow returns the computed overflow-x and overflow-y.
func (sn *StyledNode) Overflow() (x, y string) {
	return sn.Lookup("overflow-x", "visible"), sn.Lookup("overflow-y", "visible")
}

// Attr returns an attribute of the styled element.
func (sn *StyledNode) Attr(key string) (string, bool) {
	for _, a := range sn.Node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

type DisplayType int

const (
	DisplayInline DisplayType = iota
	DisplayBlock
	DisplayInlineBlock
	DisplayNone
)

func (sn *StyledNode) Display() DisplayType {
	if sn.Node.Type == html.TextNode {
		return DisplayInline
	}
	if sn.Node.Type == html.DocumentNode {
		return DisplayBlock
	}
	switch sn.Lookup("display", "inline") {
	case "none":
		return DisplayNone
	case "inline":
		return DisplayInline
	case "inline-block", "inline-flex", "inline-grid", "inline-table":
		return DisplayInlineBlock
	default:
		return DisplayBlock
	}
}

type PositionType int

const (
	PositionStatic PositionType = iota
	PositionRelative
	PositionAbsolute
	PositionFixed
)

func (sn *StyledNode) Position() PositionType {
	switch sn.Lookup("position", "static") {
	case "relative", "sticky":
		return PositionRelative
	case "absolute":
		return PositionAbsolute
	case "fixed":
		return PositionFixed
	default:
		return PositionStatic
	}
}

type BoxSizingType int

const (
	ContentBox BoxSizingType = iota
	BorderBox
)

func (sn *StyledNode) BoxSizing() BoxSizingType {
	if sn.Lookup("box-sizing", "content-box") == "border-box" {
		return BorderBox
	}
	return ContentBox
}

// -- Lengths --

func GetFontSize(sn *StyledNode) float64 {
	if sn == nil {
		return BaseFontSize
	}
	if v, ok := sn.ComputedStyles["font-size"]; ok {
		return ParseAbsoluteLength(string(v))
	}
	return GetFontSize(sn.Parent)
}

// LineHeight returns the used line height in px.
func LineHeight(sn *StyledNode) float64 {
	for n := sn; n != nil; n = n.Parent {
		if v, ok := n.ComputedStyles["line-height"]; ok {
			return ParseAbsoluteLength(string(v))
		}
	}
	return GetFontSize(sn) * DefaultLineHeight
}

// MeasureText estimates the width of a text run on one line.
func MeasureText(sn *StyledNode, text string) float64 {
	return float64(len([]rune(text))) * GetFontSize(sn) * 0.5
}

func ParseLengthWithUnits(value string, parentFontSize, rootFontSize, referenceDimension, viewportWidth, viewportHeight float64) float64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "auto" || value == "normal" || value == "none" {
		return 0.0
	}

	parseNumeric := func(s, suffix string) (float64, bool) {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, suffix), 64)
		return v, err == nil
	}

	switch {
	case strings.HasSuffix(value, "%"):
		if percent, ok := parseNumeric(value, "%"); ok {
			return referenceDimension * (percent / 100.0)
		}
	case strings.HasSuffix(value, "px"):
		if px, ok := parseNumeric(value, "px"); ok {
			return px
		}
	case strings.HasSuffix(value, "rem"):
		if val, ok := parseNumeric(value, "rem"); ok {
			return val * rootFontSize
		}
	case strings.HasSuffix(value, "em"):
		if val, ok := parseNumeric(value, "em"); ok {
			return val * parentFontSize
		}
	case strings.HasSuffix(value, "vmin"):
		if val, ok := parseNumeric(value, "vmin"); ok {
			return math.Min(viewportWidth, viewportHeight) * (val / 100.0)
		}
	case strings.HasSuffix(value, "vmax"):
		if val, ok := parseNumeric(value, "vmax"); ok {
			return math.Max(viewportWidth, viewportHeight) * (val / 100.0)
		}
	case strings.HasSuffix(value, "vw"):
		if val, ok := parseNumeric(value, "vw"); ok {
			return viewportWidth * (val / 100.0)
		}
	case strings.HasSuffix(value, "vh"):
		if val, ok := parseNumeric(value, "vh"); ok {
			return viewportHeight * (val / 100.0)
		}
	}
	// Unitless values are treated as px.
	if val, err := strconv.ParseFloat(value, 64); err == nil {
		return val
	}
	return 0.0
}

func ParseAbsoluteLength(value string) float64 {
	return ParseLengthWithUnits(value, 0, 0, 0, 0, 0)
}

// FormatPx renders a length the way computed styles report it.
func FormatPx(v float64) string {
	return fmt.Sprintf("%spx", strconv.FormatFloat(v, 'f', -1, 64))
}
