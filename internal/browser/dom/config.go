// internal/browser/dom/config.go
package dom

import (
	"go.uber.org/zap"
)

// DefaultUserAgent is reported by windows of a host configured without one.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Options configure a static host.
type Options struct {
	// ViewportWidth and ViewportHeight size the top level window, scrollbars included.
	ViewportWidth  float64
	ViewportHeight float64
	// ScrollbarWidth is the gutter a classic scrollbar takes. 0 emulates overlay scrollbars.
	ScrollbarWidth float64
	UserAgent      string
	// BodyScrollReportsDocument emulates engines that report the document size
	// on body.scrollWidth/scrollHeight instead of on the root element.
	BodyScrollReportsDocument bool
	// BaseDir resolves relative stylesheet and iframe URLs of documents loaded
	// from a reader. Documents loaded from a file use the file's directory.
	BaseDir string
	Logger  *zap.Logger
}

// DefaultOptions returns a desktop-sized viewport with classic scrollbars.
func DefaultOptions() Options {
	return Options{
		ViewportWidth:  1280,
		ViewportHeight: 800,
		ScrollbarWidth: 15,
		UserAgent:      DefaultUserAgent,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = def.ViewportWidth
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = def.ViewportHeight
	}
	if o.ScrollbarWidth < 0 {
		o.ScrollbarWidth = 0
	}
	if o.UserAgent == "" {
		o.UserAgent = def.UserAgent
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
