// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/inview/api/schemas"
)

// Reporter writes job results to an output.
type Reporter interface {
	// Write processes a single result envelope. Safe for concurrent use.
	Write(result *schemas.ResultEnvelope) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for the format, writing to outputPath or to stdout
// when the path is empty or "stdout".
func New(format, outputPath string) (Reporter, error) {
	if !supported(format) {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return newReporter(format, writer), nil
}

// NewWriter creates a reporter on w. Close does not close w.
func NewWriter(format string, w io.Writer) (Reporter, error) {
	if !supported(format) {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return newReporter(format, &nopWriteCloser{w}), nil
}

func supported(format string) bool {
	return format == "json" || format == "text"
}

func newReporter(format string, w io.WriteCloser) Reporter {
	if format == "text" {
		return &textReporter{w: w}
	}
	return &jsonReporter{w: w, enc: jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)}
}

// jsonReporter writes one JSON document per line.
type jsonReporter struct {
	mu  sync.Mutex
	w   io.WriteCloser
	enc *jsoniter.Encoder
}

func (r *jsonReporter) Write(result *schemas.ResultEnvelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(result); err != nil {
		return fmt.Errorf("encoding result of job %s: %w", result.JobID, err)
	}
	return nil
}

func (r *jsonReporter) Close() error { return r.w.Close() }

// textReporter writes a short human readable block per job.
type textReporter struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func (r *textReporter) Write(res *schemas.ResultEnvelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := fmt.Fprintf(r.w, "[%s] %s %s (%s)\n", res.JobID, res.Kind, res.Source, res.Duration); err != nil {
		return err
	}
	var err error
	switch {
	case res.Failed():
		_, err = fmt.Fprintf(r.w, "  error: %s\n", res.Error)
	case res.Kind == schemas.QueryInView:
		err = r.writeElements(res)
	case res.Scrollbar != nil:
		sb := res.Scrollbar
		_, err = fmt.Fprintf(r.w, "  horizontal: %t (%spx)\n  vertical:   %t (%spx)\n",
			sb.Horizontal, num(sb.Height), sb.Vertical, num(sb.Width))
	case res.ScrollbarWidth != nil:
		_, err = fmt.Fprintf(r.w, "  scrollbar width: %spx\n", num(*res.ScrollbarWidth))
	}
	return err
}

func (r *textReporter) writeElements(res *schemas.ResultEnvelope) error {
	for _, el := range res.Elements {
		state := "out of view"
		if el.InView {
			state = "in view"
		}
		name := "<" + el.Tag + ">"
		if el.Path != "" {
			name += " " + el.Path
		}
		line := fmt.Sprintf("  #%d %s: %s", el.Index, name, state)
		if el.Rect != nil {
			line += fmt.Sprintf(" [top %s, left %s, %sx%s]", num(el.Rect.Top), num(el.Rect.Left), num(el.Rect.Width), num(el.Rect.Height))
		}
		if _, err := fmt.Fprintln(r.w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(r.w, "  %d of %d in view\n", res.InViewCount, len(res.Elements))
	return err
}

func (r *textReporter) Close() error { return r.w.Close() }

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
