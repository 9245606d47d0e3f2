package schemas

import (
	"fmt"
	"strings"
	"time"
)

// QueryKind defines the kind of measurement a job performs.
type QueryKind string

const (
	QueryInView         QueryKind = "INVIEW"
	QueryScrollbar      QueryKind = "SCROLLBAR"
	QueryScrollbarWidth QueryKind = "SCROLLBAR_WIDTH"
)

// SourceType says where a job's document comes from.
type SourceType string

const (
	SourceURL  SourceType = "URL"
	SourceFile SourceType = "FILE"
	SourceHTML SourceType = "HTML"
)

// Axis names a scrollbar axis in SCROLLBAR jobs.
type Axis string

const (
	AxisBoth       Axis = "both"
	AxisHorizontal Axis = "horizontal"
	AxisVertical   Axis = "vertical"
)

// QueryOptions mirrors the visibility options in wire form.
type QueryOptions struct {
	Partially     bool   `json:"partially"`
	ExcludeHidden bool   `json:"exclude_hidden"`
	Direction     string `json:"direction,omitempty"`
	Box           string `json:"box,omitempty"`
	Tolerance     string `json:"tolerance,omitempty"`
}

// Job is one unit of work for the batch runner.
type Job struct {
	ID         string     `json:"id"`
	Kind       QueryKind  `json:"kind"`
	SourceType SourceType `json:"source_type"`
	// Source is a URL, a file path or inline markup, depending on SourceType.
	Source string `json:"source"`
	// Selector picks the elements of INVIEW jobs, or the container of
	// SCROLLBAR jobs. Empty means the window.
	Selector string `json:"selector,omitempty"`
	// Container scopes INVIEW jobs. Empty means the owner window.
	Container string       `json:"container,omitempty"`
	Axis      Axis         `json:"axis,omitempty"`
	Options   QueryOptions `json:"options"`
}

// Validate checks that the job is complete for its kind.
func (j Job) Validate() error {
	switch j.Kind {
	case QueryInView:
		if strings.TrimSpace(j.Selector) == "" {
			return fmt.Errorf("job %s: INVIEW jobs need a selector", j.ID)
		}
	case QueryScrollbar:
		switch j.Axis {
		case "", AxisBoth, AxisHorizontal, AxisVertical:
		default:
			return fmt.Errorf("job %s: unknown axis %q", j.ID, j.Axis)
		}
	case QueryScrollbarWidth:
	default:
		return fmt.Errorf("job %s: unknown kind %q", j.ID, j.Kind)
	}
	switch j.SourceType {
	case SourceURL, SourceFile, SourceHTML:
	default:
		return fmt.Errorf("job %s: unknown source type %q", j.ID, j.SourceType)
	}
	if j.Source == "" {
		return fmt.Errorf("job %s: source is required", j.ID)
	}
	return nil
}

// Rect is a viewport-relative rectangle in CSS pixels.
type Rect struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementResult reports one element of an INVIEW job.
type ElementResult struct {
	Index  int    `json:"index"`
	Tag    string `json:"tag"`
	Path   string `json:"path,omitempty"`
	InView bool   `json:"in_view"`
	Rect   *Rect  `json:"rect,omitempty"`
}

// ScrollbarResult reports a SCROLLBAR job.
type ScrollbarResult struct {
	Horizontal bool `json:"horizontal"`
	Vertical   bool `json:"vertical"`
	// Sizes are the effective scrollbar thickness per axis, 0 when absent.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ResultEnvelope is the top level wrapper for the result of one job.
type ResultEnvelope struct {
	RunID     string        `json:"run_id"`
	JobID     string        `json:"job_id"`
	Kind      QueryKind     `json:"kind"`
	Source    string        `json:"source"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	Elements       []ElementResult  `json:"elements,omitempty"`
	InViewCount    int              `json:"in_view_count"`
	Scrollbar      *ScrollbarResult `json:"scrollbar,omitempty"`
	ScrollbarWidth *float64         `json:"scrollbar_width,omitempty"`

	Error string `json:"error,omitempty"`
}

// Failed reports whether the job ended in an error.
func (r *ResultEnvelope) Failed() bool { return r.Error != "" }
