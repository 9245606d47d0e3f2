// pkg/inview/options.go
package inview

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Axis selects the dimensions a query looks at.
type Axis string

const (
	Both       Axis = "both"
	Horizontal Axis = "horizontal"
	Vertical   Axis = "vertical"
)

// normalize maps the zero value to Both and rejects anything unknown.
func (a Axis) normalize(name string) (Axis, error) {
	switch a {
	case "":
		return Both, nil
	case Both, Horizontal, Vertical:
		return a, nil
	}
	return "", newInvalidArgument(name, string(a), `must be "both", "horizontal" or "vertical"`)
}

func (a Axis) horizontal() bool { return a == Both || a == Horizontal }
func (a Axis) vertical() bool   { return a == Both || a == Vertical }

// BoxModel selects which box of the element is tested.
type BoxModel string

const (
	BorderBox  BoxModel = "border-box"
	ContentBox BoxModel = "content-box"
)

// ToleranceUnit is the unit of a Tolerance.
type ToleranceUnit int

const (
	Pixels ToleranceUnit = iota
	Percent
)

// Tolerance widens the viewport on every side. Percentages refer to the
// container size along the axis being tested. The zero value is 0px.
type Tolerance struct {
	Value float64
	Unit  ToleranceUnit
}

// Px returns a pixel tolerance.
func Px(v float64) Tolerance { return Tolerance{Value: v, Unit: Pixels} }

// Pct returns a percentage tolerance.
func Pct(v float64) Tolerance { return Tolerance{Value: v, Unit: Percent} }

func (t Tolerance) String() string {
	s := strconv.FormatFloat(t.Value, 'f', -1, 64)
	if t.Unit == Percent {
		return s + "%"
	}
	return s + "px"
}

// pixels converts the tolerance for a container of the given size.
func (t Tolerance) pixels(size float64) float64 {
	if t.Unit == Percent {
		return size * t.Value / 100
	}
	return t.Value
}

var toleranceRe = regexp.MustCompile(`^[+-]?\d*\.?\d+(px|%)?$`)

// ParseTolerance accepts a bare number ("12", "-2.5"), a pixel value ("12px")
// or a percentage ("5%").
func ParseTolerance(s string) (Tolerance, error) {
	s = strings.TrimSpace(s)
	if !toleranceRe.MatchString(s) {
		return Tolerance{}, newInvalidArgument("tolerance", s, "expected a number, optionally followed by px or %")
	}
	unit := Pixels
	num := s
	switch {
	case strings.HasSuffix(s, "px"):
		num = strings.TrimSuffix(s, "px")
	case strings.HasSuffix(s, "%"):
		num = strings.TrimSuffix(s, "%")
		unit = Percent
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Tolerance{}, newInvalidArgument("tolerance", s, err.Error())
	}
	return Tolerance{Value: v, Unit: unit}, nil
}

// Options tune a visibility query. A nil *Options means all defaults.
type Options struct {
	// Partially accepts elements that overlap the viewport at all.
	Partially bool
	// ExcludeHidden treats elements without a rendered box as out of view.
	ExcludeHidden bool
	// Direction restricts the test to one axis. Defaults to Both.
	Direction Axis
	// Box defaults to BorderBox.
	Box       BoxModel
	Tolerance Tolerance
}

// Validate reports malformed option values.
func (o *Options) Validate() error {
	if o == nil {
		return nil
	}
	if _, err := o.Direction.normalize("direction"); err != nil {
		return err
	}
	switch o.Box {
	case "", BorderBox, ContentBox:
	default:
		return newInvalidArgument("box", string(o.Box), `must be "border-box" or "content-box"`)
	}
	if math.IsNaN(o.Tolerance.Value) || math.IsInf(o.Tolerance.Value, 0) {
		return newInvalidArgument("tolerance", o.Tolerance.String(), "must be finite")
	}
	if o.Tolerance.Unit != Pixels && o.Tolerance.Unit != Percent {
		return newInvalidArgument("tolerance", o.Tolerance.String(), "unknown unit")
	}
	return nil
}
