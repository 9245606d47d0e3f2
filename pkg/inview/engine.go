// pkg/inview/engine.go
package inview

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Engine answers geometry queries against a host and memoizes the few
// measurements that are properties of the browser rather than of a document:
// the scrollbar width, whether the platform is iOS, and which element reports
// the true document size. Those values are computed on first use and kept for
// the engine's lifetime. Failed measurements are not memoized.
//
// The package-level functions use a process-wide default engine.
type Engine struct {
	logger *zap.Logger

	// Each memo has its own lock; a measurement runs while holding it so
	// concurrent first calls do not inject duplicate probes.
	widthMu        sync.Mutex
	scrollbarWidth *float64
	iosMu          sync.Mutex
	ios            *bool
	docSizeMu      sync.Mutex
	docSize        *docSizeSource
}

// New creates an engine with its own memoized measurements. A nil logger discards output.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

var defaultEngine atomic.Pointer[Engine]

func init() {
	defaultEngine.Store(New(nil))
}

// Default returns the process-wide engine behind the package-level functions.
func Default() *Engine {
	return defaultEngine.Load()
}

// SetDefault replaces the process-wide engine, e.g. to attach a logger.
func SetDefault(e *Engine) {
	if e != nil {
		defaultEngine.Store(e)
	}
}

// ResetForTest discards the default engine's memoized measurements.
// It should only be used in tests.
func ResetForTest() {
	defaultEngine.Store(New(Default().logger))
}

// Reset discards this engine's memoized measurements.
func (e *Engine) Reset() {
	e.widthMu.Lock()
	e.scrollbarWidth = nil
	e.widthMu.Unlock()
	e.iosMu.Lock()
	e.ios = nil
	e.iosMu.Unlock()
	e.docSizeMu.Lock()
	e.docSize = nil
	e.docSizeMu.Unlock()
}
