// internal/runner/loader.go
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/inview/api/schemas"
	"github.com/xkilldash9x/inview/internal/browser/cdp"
	"github.com/xkilldash9x/inview/internal/browser/dom"
	"github.com/xkilldash9x/inview/internal/browser/session"
	"github.com/xkilldash9x/inview/internal/config"
	"github.com/xkilldash9x/inview/pkg/inview"
)

const releaseTimeout = 10 * time.Second

// Loader opens the document of a job. The release func frees whatever the
// window holds and is never nil when err is nil.
type Loader interface {
	Load(ctx context.Context, job schemas.Job) (win inview.Window, release func(), err error)
}

// BrowserLoader is a Loader that also owns a browser process.
type BrowserLoader interface {
	Loader
	Close(ctx context.Context) error
}

// -- Static documents --

type staticLoader struct {
	host *dom.Host
}

// NewStaticLoader loads FILE and HTML sources into the offline document host.
func NewStaticLoader(cfg config.StaticConfig, logger *zap.Logger) Loader {
	return &staticLoader{host: dom.NewHost(dom.Options{
		ViewportWidth:             float64(cfg.ViewportWidth),
		ViewportHeight:            float64(cfg.ViewportHeight),
		ScrollbarWidth:            cfg.ScrollbarWidth,
		UserAgent:                 cfg.UserAgent,
		BodyScrollReportsDocument: cfg.BodyScrollReportsDocument,
		Logger:                    logger,
	})}
}

func (l *staticLoader) Load(_ context.Context, job schemas.Job) (inview.Window, func(), error) {
	var (
		win *dom.Window
		err error
	)
	switch job.SourceType {
	case schemas.SourceFile:
		path, expandErr := homedir.Expand(job.Source)
		if expandErr != nil {
			return nil, nil, fmt.Errorf("expanding path %s: %w", job.Source, expandErr)
		}
		win, err = l.host.LoadFile(path)
	case schemas.SourceHTML:
		win, err = l.host.LoadString(job.Source)
	default:
		return nil, nil, fmt.Errorf("static host cannot load %s sources", job.SourceType)
	}
	if err != nil {
		return nil, nil, err
	}
	return win, func() {}, nil
}

// -- Live pages --

type browserLoader struct {
	manager *session.Manager
	logger  *zap.Logger
}

// NewBrowserLoader launches a browser for URL sources.
func NewBrowserLoader(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (BrowserLoader, error) {
	m, err := session.NewManager(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &browserLoader{manager: m, logger: logger}, nil
}

func (l *browserLoader) Load(ctx context.Context, job schemas.Job) (inview.Window, func(), error) {
	if job.SourceType != schemas.SourceURL {
		return nil, nil, fmt.Errorf("browser loader cannot load %s sources", job.SourceType)
	}
	tab, err := l.manager.NewTab(ctx)
	if err != nil {
		return nil, nil, err
	}
	host := cdp.NewHost(tab.Context(), l.logger)

	// Cleanup runs even when the job's context is already done.
	release := func() {
		cleanupCtx, cancel := context.WithTimeout(session.Detach(ctx), releaseTimeout)
		defer cancel()
		if err := host.Release(cleanupCtx); err != nil {
			l.logger.Debug("Failed to release page objects.", zap.String("tab_id", tab.ID()), zap.Error(err))
		}
		if err := tab.Close(cleanupCtx); err != nil {
			l.logger.Warn("Failed to close tab.", zap.String("tab_id", tab.ID()), zap.Error(err))
		}
	}

	if err := tab.Navigate(ctx, job.Source); err != nil {
		release()
		return nil, nil, err
	}
	win, err := host.Window(ctx)
	if err != nil {
		release()
		return nil, nil, err
	}
	return win, release, nil
}

func (l *browserLoader) Close(ctx context.Context) error {
	return l.manager.Shutdown(ctx)
}
