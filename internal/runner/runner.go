// internal/runner/runner.go
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/inview/api/schemas"
	"github.com/xkilldash9x/inview/internal/config"
	"github.com/xkilldash9x/inview/pkg/inview"
)

const browserShutdownTimeout = 15 * time.Second

// Sink receives each result as soon as its job finishes. Calls are
// concurrent. An error from the sink aborts the run.
type Sink func(*schemas.ResultEnvelope) error

// Runner executes batches of geometry jobs with bounded concurrency. FILE and
// HTML sources are answered by the static document host, URL sources by a
// headless browser started on demand.
type Runner struct {
	cfg    config.RunnerConfig
	query  config.QueryConfig
	logger *zap.Logger

	static     Loader
	newBrowser func(ctx context.Context) (BrowserLoader, error)
	limiter    *rate.Limiter

	// Memoized measurements differ between hosts, so each gets its own engine.
	staticEngine  *inview.Engine
	browserEngine *inview.Engine
}

// Option customizes a Runner.
type Option func(*Runner)

// WithStaticLoader replaces the loader for FILE and HTML sources.
func WithStaticLoader(l Loader) Option {
	return func(r *Runner) { r.static = l }
}

// WithBrowserLoader replaces the browser started for URL sources. The runner
// does not close a loader it was given.
func WithBrowserLoader(l Loader) Option {
	return func(r *Runner) {
		r.newBrowser = func(context.Context) (BrowserLoader, error) {
			return unowned{l}, nil
		}
	}
}

type unowned struct{ Loader }

func (unowned) Close(context.Context) error { return nil }

// New creates a runner from the configuration.
func New(cfg config.Interface, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("runner")
	rc := cfg.Runner()

	limit := rate.Inf
	if rc.LoadsPerSecond > 0 {
		limit = rate.Limit(rc.LoadsPerSecond)
	}
	burst := rc.Burst
	if burst < 1 {
		burst = 1
	}

	r := &Runner{
		cfg:           rc,
		query:         cfg.Query(),
		logger:        logger,
		static:        NewStaticLoader(cfg.Static(), logger),
		limiter:       rate.NewLimiter(limit, burst),
		staticEngine:  inview.New(logger),
		browserEngine: inview.New(logger),
	}
	browserCfg := cfg.Browser()
	r.newBrowser = func(ctx context.Context) (BrowserLoader, error) {
		return NewBrowserLoader(ctx, browserCfg, logger)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes every job and returns the results in job order. Job failures
// are reported in their envelope; only a cancelled context, a browser that
// cannot start or a failing sink end the run early.
func (r *Runner) Run(ctx context.Context, jobs []schemas.Job, sink Sink) ([]*schemas.ResultEnvelope, error) {
	runID := uuid.New().String()
	logger := r.logger.With(zap.String("run_id", runID))
	logger.Info("Starting run.", zap.Int("jobs", len(jobs)), zap.Int("concurrency", r.cfg.Concurrency))

	var browser Loader
	if needsBrowser(jobs) {
		b, err := r.newBrowser(ctx)
		if err != nil {
			return nil, fmt.Errorf("starting browser: %w", err)
		}
		browser = b
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), browserShutdownTimeout)
			defer cancel()
			if err := b.Close(shutdownCtx); err != nil {
				logger.Warn("Browser shutdown failed.", zap.Error(err))
			}
		}()
	}

	results := make([]*schemas.ResultEnvelope, len(jobs))
	g, groupCtx := errgroup.WithContext(ctx)
	if r.cfg.Concurrency > 0 {
		g.SetLimit(r.cfg.Concurrency)
	}

	for i := range jobs {
		i, job := i, jobs[i]
		if job.ID == "" {
			job.ID = fmt.Sprintf("job-%d", i+1)
		}
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			env := r.runJob(groupCtx, browser, runID, job)
			results[i] = env
			if sink != nil {
				if err := sink(env); err != nil {
					return fmt.Errorf("reporting job %s: %w", job.ID, err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("Run ended early.", zap.Error(err))
		return results, err
	}
	logger.Info("Run complete.", zap.Int("failed", countFailed(results)))
	return results, nil
}

func needsBrowser(jobs []schemas.Job) bool {
	for _, j := range jobs {
		if j.SourceType == schemas.SourceURL {
			return true
		}
	}
	return false
}

func countFailed(results []*schemas.ResultEnvelope) int {
	n := 0
	for _, r := range results {
		if r != nil && r.Failed() {
			n++
		}
	}
	return n
}

// runJob never fails; errors end up in the envelope.
func (r *Runner) runJob(ctx context.Context, browser Loader, runID string, job schemas.Job) *schemas.ResultEnvelope {
	start := time.Now()
	env := &schemas.ResultEnvelope{
		RunID:     runID,
		JobID:     job.ID,
		Kind:      job.Kind,
		Source:    job.Source,
		StartedAt: start.UTC(),
	}
	logger := r.logger.With(zap.String("job_id", job.ID), zap.String("kind", string(job.Kind)))

	if err := r.execute(ctx, browser, job, env); err != nil {
		env.Error = err.Error()
		logger.Warn("Job failed.", zap.Error(err))
	} else {
		logger.Debug("Job complete.", zap.Int("in_view", env.InViewCount))
	}
	env.Duration = time.Since(start)
	return env
}

func (r *Runner) execute(ctx context.Context, browser Loader, job schemas.Job, env *schemas.ResultEnvelope) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if r.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.JobTimeout)
		defer cancel()
	}

	loader, engine := r.static, r.staticEngine
	if job.SourceType == schemas.SourceURL {
		if browser == nil {
			return fmt.Errorf("no browser available for %s", job.Source)
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for load slot: %w", err)
		}
		loader, engine = browser, r.browserEngine
	}

	win, release, err := loader.Load(ctx, job)
	if err != nil {
		return fmt.Errorf("loading %s: %w", job.Source, err)
	}
	defer release()

	switch job.Kind {
	case schemas.QueryInView:
		return r.inView(ctx, engine, win, job, env)
	case schemas.QueryScrollbar:
		return r.scrollbar(ctx, engine, win, job, env)
	default:
		width, err := engine.ScrollbarWidth(ctx, win)
		if err != nil {
			return err
		}
		env.ScrollbarWidth = &width
		return nil
	}
}

// options layers the job's options over the configured defaults.
func (r *Runner) options(job schemas.Job) (*inview.Options, error) {
	q := r.query
	q.Partially = q.Partially || job.Options.Partially
	q.ExcludeHidden = q.ExcludeHidden || job.Options.ExcludeHidden
	if job.Options.Direction != "" {
		q.Direction = job.Options.Direction
	}
	if job.Options.Box != "" {
		q.Box = job.Options.Box
	}
	if job.Options.Tolerance != "" {
		q.Tolerance = job.Options.Tolerance
	}
	return q.Options()
}

func (r *Runner) inView(ctx context.Context, engine *inview.Engine, win inview.Window, job schemas.Job, env *schemas.ResultEnvelope) error {
	opts, err := r.options(job)
	if err != nil {
		return err
	}
	doc, err := win.Document(ctx)
	if err != nil {
		return err
	}
	els, err := engine.Select(ctx, doc, job.Selector, opts)
	if err != nil {
		return err
	}

	var ref *inview.ContainerRef
	if job.Container != "" {
		ref = inview.InSelector(job.Container)
	}
	visible, err := engine.InView(ctx, inview.Nodes(els), ref, opts)
	if err != nil {
		return err
	}
	inSet := make(map[inview.Element]bool, len(visible))
	for _, el := range visible {
		inSet[el] = true
	}

	env.Elements = make([]schemas.ElementResult, 0, len(els))
	for i, el := range els {
		res := schemas.ElementResult{Index: i, Tag: el.TagName(), InView: inSet[el]}
		if p, ok := el.(interface{ Path() string }); ok {
			res.Path = p.Path()
		}
		if rect, err := el.BoundingClientRect(ctx); err == nil {
			res.Rect = &schemas.Rect{
				Top: rect.Top, Right: rect.Right, Bottom: rect.Bottom, Left: rect.Left,
				Width: rect.Width(), Height: rect.Height(),
			}
		}
		if res.InView {
			env.InViewCount++
		}
		env.Elements = append(env.Elements, res)
	}
	return nil
}

func (r *Runner) scrollbar(ctx context.Context, engine *inview.Engine, win inview.Window, job schemas.Job, env *schemas.ResultEnvelope) error {
	targets := []inview.Node{win}
	if job.Selector != "" {
		doc, err := win.Document(ctx)
		if err != nil {
			return err
		}
		found, err := doc.QuerySelectorAll(ctx, job.Selector)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return fmt.Errorf("selector %q matched nothing", job.Selector)
		}
		targets = inview.Nodes(found)
	}

	axis := inview.Axis(job.Axis)
	if axis == "" {
		axis = inview.Both
	}
	state, err := engine.HasScrollbar(ctx, targets, axis)
	if err != nil {
		return err
	}
	sizes, err := engine.ScrollbarSize(ctx, targets, axis)
	if err != nil {
		return err
	}
	env.Scrollbar = &schemas.ScrollbarResult{
		Horizontal: state.Horizontal,
		Vertical:   state.Vertical,
		Width:      sizes.Vertical,
		Height:     sizes.Horizontal,
	}
	return nil
}
