// internal/browser/session/manager.go
package session

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/inview/internal/config"
)

// Manager owns the headless browser process. Tabs are created from its
// browser context and tracked so Shutdown can wait for them.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx manages the browser process.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	// browserCtx holds the first target. Tabs derive from it so they share
	// the one process instead of each starting a browser.
	browserCtx    context.Context
	browserCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewManager launches the browser and checks that it answers.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}
	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...", zap.Bool("headless", m.cfg.Headless))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, buildAllocatorOptions(m.cfg)...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	// The first Run starts the process and lives as long as browserCtx, so it
	// must not carry a deadline.
	m.browserCtx, m.browserCancel = chromedp.NewContext(allocCtx)
	if err := chromedp.Run(m.browserCtx, chromedp.Navigate("about:blank")); err != nil {
		m.browserCancel()
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// allocatorFlags turns the browser configuration into Chrome command line
// flags. The window size fixes the viewport every tab reports to geometry queries.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":                  cfg.Headless,
		"ignore-certificate-errors": cfg.IgnoreTLSErrors,
		"disable-extensions":        true,
		"disable-gpu":               cfg.Headless,
		// Scrollbars take part in every geometry query.
		"hide-scrollbars": false,
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		flags["window-size"] = fmt.Sprintf("%d,%d", cfg.ViewportWidth, cfg.ViewportHeight)
	}
	if cfg.UserAgent != "" {
		flags["user-agent"] = cfg.UserAgent
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if flagName == "" {
			continue
		}
		if len(parts) == 2 {
			flags[flagName] = parts[1]
		} else {
			flags[flagName] = true
		}
	}

	// Containers on Linux usually run without a usable sandbox or /dev/shm.
	if runtime.GOOS == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
		flags["disable-setuid-sandbox"] = true
	}
	return flags
}

func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// NewTab opens a fresh tab. The caller must Close it.
func (m *Manager) NewTab(ctx context.Context) (*Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tab := newTab(m.browserCtx, m.cfg, m.logger)

	// The first Run creates the target, so a tab that cannot open fails here.
	if err := chromedp.Run(tab.ctx); err != nil {
		tab.cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	m.wg.Add(1)
	tab.onClose = m.wg.Done
	m.logger.Debug("Tab opened.", zap.String("tab_id", tab.ID()))
	return tab, nil
}

// Shutdown waits for open tabs, bounded by ctx, then ends the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated. Waiting for open tabs to close...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All tabs have closed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	if m.allocatorCancel != nil {
		m.logger.Info("Shutting down main browser process...")
		if err := chromedp.Cancel(m.browserCtx); err != nil {
			m.logger.Debug("Browser did not close cleanly.", zap.Error(err))
		}
		m.browserCancel()
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
	}
	return nil
}
