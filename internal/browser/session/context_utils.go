// internal/browser/session/context_utils.go
package session

import (
	"context"
	"time"
)

// CombineContext derives a context from ctx1 that is also canceled when ctx2
// is done. Values come from ctx1 only, which is what chromedp needs: ctx1
// carries the tab, ctx2 carries the caller's deadline.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)
	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()
	return combinedCtx, cancel
}

// valueOnlyContext keeps the parent's values but none of its cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context that inherits values from ctx but is not canceled
// when ctx is. Cleanup that must reach the browser after the caller gave up
// (releasing remote objects, closing a tab) runs under a detached context with
// its own timeout.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
