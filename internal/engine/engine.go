// Package engine drives the scraping workflow: an explicit state machine
// that alternates between website navigation and search-driven discovery,
// merges extracted fields by confidence, and terminates under bounded
// attempts or completeness.
package engine

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/company-intel/internal/extract"
	"github.com/sells-group/company-intel/internal/model"
	"github.com/sells-group/company-intel/internal/monitoring"
	"github.com/sells-group/company-intel/internal/resilience"
	"github.com/sells-group/company-intel/internal/scrape"
	"github.com/sells-group/company-intel/internal/search"
)

// Config bounds the workflow.
type Config struct {
	MaxWebsiteAttempts int     // page visits in the navigating phase (default 5)
	MaxSearchAttempts  int     // search rounds in the searching phase (default 5)
	CompleteThreshold  float64 // confidence at which a field counts as known (default 0.7)
	MaxLinksPerPage    int     // frontier additions per visited page (default 5)
	SearchResults      int     // URLs taken per search round (default 3)
}

// DefaultConfig returns the bounds from the product defaults.
func DefaultConfig() Config {
	return Config{
		MaxWebsiteAttempts: 5,
		MaxSearchAttempts:  5,
		CompleteThreshold:  0.7,
		MaxLinksPerPage:    5,
		SearchResults:      3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxWebsiteAttempts <= 0 {
		c.MaxWebsiteAttempts = d.MaxWebsiteAttempts
	}
	if c.MaxSearchAttempts <= 0 {
		c.MaxSearchAttempts = d.MaxSearchAttempts
	}
	if c.CompleteThreshold <= 0 {
		c.CompleteThreshold = d.CompleteThreshold
	}
	if c.MaxLinksPerPage <= 0 {
		c.MaxLinksPerPage = d.MaxLinksPerPage
	}
	if c.SearchResults <= 0 {
		c.SearchResults = d.SearchResults
	}
	return c
}

// Engine runs one job at a time: a single logical workflow with no parallel
// fetch/extract inside a job. The rate limiter shared by its collaborators
// is the only state shared across concurrently running jobs.
type Engine struct {
	fetcher   scrape.Fetcher
	searcher  search.Provider
	extractor extract.Extractor
	metrics   monitoring.Metrics
	cfg       Config
	onStep    func(model.Snapshot)
}

// Option configures the Engine.
type Option func(*Engine)

// WithConfig overrides the default bounds.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg.withDefaults() }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m monitoring.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSnapshotFunc registers a callback invoked with a progress snapshot
// after every state-machine step.
func WithSnapshotFunc(fn func(model.Snapshot)) Option {
	return func(e *Engine) { e.onStep = fn }
}

// New creates an Engine.
func New(fetcher scrape.Fetcher, searcher search.Provider, extractor extract.Extractor, opts ...Option) *Engine {
	e := &Engine{
		fetcher:   fetcher,
		searcher:  searcher,
		extractor: extractor,
		metrics:   monitoring.Nop{},
		cfg:       DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes a job to completion and returns its best-effort result. Only
// job-fatal failures (authentication, contract violations) produce a
// non-nil error; everything else is recorded in the result's error list.
// Context cancellation stops the engine cooperatively after the current
// step, returning whatever has been collected.
func (e *Engine) Run(ctx context.Context, job model.Job) (*model.Result, error) {
	if strings.TrimSpace(job.CompanyName) == "" {
		return nil, eris.New("engine: company name is required")
	}
	if job.SeedURL != "" {
		u, err := url.Parse(job.SeedURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, eris.Errorf("engine: malformed seed url %q", job.SeedURL)
		}
	}

	st := model.NewState(job)
	zap.L().Info("job started",
		zap.String("company", job.CompanyName),
		zap.String("seed_url", job.SeedURL),
		zap.String("phase", string(st.Phase)),
	)

	var fatal error
	for !st.Phase.Terminal() {
		if err := ctx.Err(); err != nil {
			st.RecordError(model.ErrorKindCancelled, "", err)
			st.LastAction = "stopped by caller"
			break
		}

		start := time.Now()
		fatal = e.step(ctx, st)
		e.metrics.Observe("engine.step", time.Since(start))
		e.metrics.Inc("engine.steps")

		if e.onStep != nil {
			e.onStep(st.Snapshot())
		}
	}

	result := st.Result(e.cfg.CompleteThreshold)
	zap.L().Info("job finished",
		zap.String("company", job.CompanyName),
		zap.String("phase", string(st.Phase)),
		zap.Int("fields_found", len(st.Info.Found())),
		zap.Int("sources", len(result.Sources)),
		zap.Int("errors", len(result.Errors)),
	)

	if st.Phase == model.PhaseFailed {
		return result, fatal
	}
	return result, nil
}

func (e *Engine) step(ctx context.Context, st *model.State) error {
	switch st.Phase {
	case model.PhaseNavigating:
		return e.navigate(ctx, st)
	case model.PhaseSearching:
		return e.search(ctx, st)
	}
	return nil
}

// navigate performs one NAVIGATING step: visit the next frontier URL,
// harvest ranked links, extract and merge fields. Transitions to SEARCHING
// when attempts or the frontier run out, and to DONE when every field is
// known.
func (e *Engine) navigate(ctx context.Context, st *model.State) error {
	if st.Info.Complete(e.cfg.CompleteThreshold) {
		st.Phase = model.PhaseDone
		st.LastAction = "all fields found"
		return nil
	}
	if st.WebsiteAttempts >= e.cfg.MaxWebsiteAttempts {
		st.Phase = model.PhaseSearching
		st.LastAction = "website attempts exhausted"
		return nil
	}

	target, ok := st.PopFrontier()
	if !ok {
		st.Phase = model.PhaseSearching
		st.LastAction = "navigation frontier empty"
		return nil
	}

	st.WebsiteAttempts++
	st.MarkVisited(target)
	st.LastAction = "visiting " + target

	page, err := e.fetcher.Fetch(ctx, target)
	if err != nil {
		return e.recordFailure(st, model.ErrorKindFetch, target, err)
	}
	e.metrics.Inc("fetch.pages")

	st.PushFrontier(scrape.RankLinks(page.Links, st.Visited, e.cfg.MaxLinksPerPage)...)

	return e.extractAndMerge(ctx, st, page.Text, target)
}

// search performs one SEARCHING step: build a query from the missing
// fields, fetch and extract the top unvisited results. Ends in DONE either
// on completeness or on attempt exhaustion; partial success is not failure.
func (e *Engine) search(ctx context.Context, st *model.State) error {
	if st.Info.Complete(e.cfg.CompleteThreshold) {
		st.Phase = model.PhaseDone
		st.LastAction = "all fields found"
		return nil
	}
	if st.SearchAttempts >= e.cfg.MaxSearchAttempts {
		st.Phase = model.PhaseDone
		st.LastAction = "search attempts exhausted"
		return nil
	}

	st.SearchAttempts++
	query := BuildQuery(st.Job.CompanyName, st.Info.Missing(e.cfg.CompleteThreshold))
	st.LastAction = fmt.Sprintf("searching %q", query)

	urls, err := e.searcher.Search(ctx, query, e.cfg.SearchResults, st.Visited)
	if err != nil {
		return e.recordFailure(st, model.ErrorKindSearch, query, err)
	}
	e.metrics.Inc("search.queries")

	if len(urls) == 0 {
		st.LastAction = "search returned nothing new"
		return nil
	}

	for _, target := range urls {
		if !st.MarkVisited(target) {
			continue
		}
		page, err := e.fetcher.Fetch(ctx, target)
		if err != nil {
			if ferr := e.recordFailure(st, model.ErrorKindFetch, target, err); ferr != nil {
				return ferr
			}
			continue
		}
		e.metrics.Inc("fetch.pages")
		if err := e.extractAndMerge(ctx, st, page.Text, target); err != nil {
			return err
		}
	}
	return nil
}

// extractAndMerge runs extraction on page text and merges the partial
// result under the confidence-priority rule. Extraction failures short of
// job-fatal are recorded and the job continues.
func (e *Engine) extractAndMerge(ctx context.Context, st *model.State, text, source string) error {
	fields, err := e.extractor.Extract(ctx, st.Job.CompanyName, text, source)
	if err != nil {
		return e.recordFailure(st, model.ErrorKindExtract, source, err)
	}

	merged := 0
	for f, fv := range fields {
		if st.Info.Merge(f, fv) {
			merged++
		}
	}
	if merged > 0 {
		e.metrics.Inc("extract.fields_merged")
		zap.L().Debug("fields merged",
			zap.String("source", source),
			zap.Int("merged", merged),
		)
	}
	return nil
}

// recordFailure logs a collaborator failure. Job-fatal errors flip the
// phase to FAILED and propagate; everything else is recorded and the job
// advances past the offending URL or query.
func (e *Engine) recordFailure(st *model.State, kind model.ErrorKind, target string, err error) error {
	if resilience.IsJobFatal(err) {
		st.RecordError(model.ErrorKindFatal, target, err)
		st.Phase = model.PhaseFailed
		st.LastAction = "fatal: " + err.Error()
		e.metrics.Inc("engine.fatal")
		return err
	}

	st.RecordError(kind, target, err)
	e.metrics.Inc("engine.errors." + string(kind))
	zap.L().Warn("step failed, continuing",
		zap.String("kind", string(kind)),
		zap.String("target", target),
		zap.Error(err),
	)
	return nil
}

// BuildQuery constructs the search query from the company name and the
// still-missing fields. With nothing missing it falls back to a general
// company query.
func BuildQuery(companyName string, missing []model.Field) string {
	if len(missing) == 0 {
		return companyName + " company information overview"
	}
	parts := make([]string, 0, len(missing)+1)
	parts = append(parts, companyName)
	for _, f := range missing {
		parts = append(parts, f.DisplayName())
	}
	return strings.Join(parts, " ")
}
