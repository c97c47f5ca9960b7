package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/company-intel/internal/engine"
	"github.com/sells-group/company-intel/internal/extract"
	"github.com/sells-group/company-intel/internal/monitoring"
	"github.com/sells-group/company-intel/internal/ratelimit"
	"github.com/sells-group/company-intel/internal/scrape"
	"github.com/sells-group/company-intel/internal/search"
	"github.com/sells-group/company-intel/internal/store"
	anthropicpkg "github.com/sells-group/company-intel/pkg/anthropic"
	"github.com/sells-group/company-intel/pkg/jina"
)

// scrapeEnv holds the initialized store, metrics, and the collaborators the
// scrape/batch/serve commands build engines from. One env is shared across
// every job in a process so the rate limiter ceilings hold globally.
type scrapeEnv struct {
	Store     store.Store
	Metrics   *monitoring.Collector
	Fetcher   scrape.Fetcher
	Searcher  search.Provider
	Extractor extract.Extractor
}

// Close releases resources held by the environment.
func (se *scrapeEnv) Close() {
	if se.Store != nil {
		_ = se.Store.Close()
	}
}

// Engine builds an engine over the shared collaborators.
func (se *scrapeEnv) Engine(opts ...engine.Option) *engine.Engine {
	base := []engine.Option{
		engine.WithConfig(engine.Config{
			MaxWebsiteAttempts: cfg.Scraper.MaxWebsiteAttempts,
			MaxSearchAttempts:  cfg.Scraper.MaxSearchAttempts,
			CompleteThreshold:  cfg.Scraper.CompleteThreshold,
			MaxLinksPerPage:    cfg.Scraper.MaxLinksPerPage,
			SearchResults:      cfg.Scraper.SearchResults,
		}),
		engine.WithMetrics(se.Metrics),
	}
	return engine.New(se.Fetcher, se.Searcher, se.Extractor, append(base, opts...)...)
}

// initEnv sets up the store, all API clients, and the shared engine
// collaborators. Callers should defer env.Close().
func initEnv(ctx context.Context) (*scrapeEnv, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (INTEL_ANTHROPIC_KEY)")
	}
	if cfg.Jina.Key == "" {
		return nil, eris.New("jina API key is required (INTEL_JINA_KEY)")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	limiter := ratelimit.New(cfg.RateLimit.Ceilings())
	policy := cfg.Retry.Policy()

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	jinaClient := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))

	return &scrapeEnv{
		Store:     st,
		Metrics:   monitoring.NewCollector(),
		Fetcher:   scrape.NewHTTPFetcher(limiter, cfg.Scraper.FetchTimeout(), policy),
		Searcher:  search.NewJinaProvider(jinaClient, limiter, policy),
		Extractor: extract.NewClaudeExtractor(anthropicClient, limiter, policy, cfg.Anthropic.Model, cfg.Scraper.MaxPageChars),
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		dsn = "company-intel.db"
	}
	return store.Open(ctx, cfg.Store.Driver, dsn)
}
