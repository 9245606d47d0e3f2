// internal/browser/session/tab.go
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/inview/internal/config"
)

// Tab is one browser tab. Its context carries the chromedp target and must be
// used (directly or combined with a caller context) for every action on it.
type Tab struct {
	id     string
	cfg    config.BrowserConfig
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	onClose func()
}

func newTab(browserCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) *Tab {
	id := uuid.New().String()
	ctx, cancel := chromedp.NewContext(browserCtx)
	return &Tab{
		id:     id,
		cfg:    cfg,
		logger: logger.With(zap.String("tab_id", id[:8])),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the tab's unique identifier.
func (t *Tab) ID() string { return t.id }

// Context returns the tab's chromedp context.
func (t *Tab) Context() context.Context { return t.ctx }

// Navigate loads url, waits for the body and then lets the page settle for
// the configured post-load wait.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()
	if t.cfg.NavigationTimeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, t.cfg.NavigationTimeout)
		defer cancelTimeout()
	}

	t.logger.Debug("Navigating", zap.String("url", url))
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if t.cfg.PostLoadWait > 0 {
		actions = append(actions, chromedp.Sleep(t.cfg.PostLoadWait))
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// Close closes the tab. It is safe to call more than once.
func (t *Tab) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	err := chromedp.Cancel(t.ctx)
	t.cancel()
	if t.onClose != nil {
		t.onClose()
	}
	if err != nil && ctx.Err() == nil {
		t.logger.Debug("Tab did not close cleanly.", zap.Error(err))
		return fmt.Errorf("closing tab: %w", err)
	}
	return nil
}
