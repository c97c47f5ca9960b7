// Package search resolves free-text queries into candidate URLs for the
// orchestration engine.
package search

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/company-intel/internal/ratelimit"
	"github.com/sells-group/company-intel/internal/resilience"
	"github.com/sells-group/company-intel/pkg/jina"
)

// Provider returns ranked candidate URLs for a query. Results already in
// exclude are filtered out before returning; an empty result set is a valid,
// non-error outcome.
type Provider interface {
	Search(ctx context.Context, query string, limit int, exclude map[string]bool) ([]string, error)
}

// JinaProvider implements Provider over the Jina Search API.
type JinaProvider struct {
	client  jina.Client
	limiter *ratelimit.Registry
	policy  resilience.Policy
}

// NewJinaProvider creates a JinaProvider.
func NewJinaProvider(client jina.Client, limiter *ratelimit.Registry, policy resilience.Policy) *JinaProvider {
	policy.OnRetry = resilience.RetryLogger("jina", "search")
	return &JinaProvider{client: client, limiter: limiter, policy: policy}
}

// Search runs the query and returns up to limit previously-unseen URLs.
// An empty query is fatal for the query and never retried.
func (p *JinaProvider) Search(ctx context.Context, query string, limit int, exclude map[string]bool) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, resilience.NewItemError(eris.New("search: empty query"))
	}

	resp, err := resilience.DoVal(ctx, p.policy, func(ctx context.Context) (*jina.SearchResponse, error) {
		if err := p.limiter.Wait(ctx, ratelimit.ResourceSearch); err != nil {
			return nil, eris.Wrap(err, "search: rate limit wait")
		}
		resp, err := p.client.Search(ctx, query)
		if err != nil {
			return nil, classifySearchError(err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	var urls []string
	seen := make(map[string]bool)
	for _, r := range resp.Data {
		u := strings.TrimSpace(r.URL)
		if u == "" || seen[u] || exclude[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
		if limit > 0 && len(urls) >= limit {
			break
		}
	}

	zap.L().Debug("search complete",
		zap.String("query", query),
		zap.Int("results", len(urls)),
	)
	return urls, nil
}

// classifySearchError maps Jina failures onto the engine's taxonomy.
func classifySearchError(err error) error {
	var se *jina.StatusError
	if !eris.As(err, &se) {
		return err
	}
	switch {
	case se.StatusCode == 401 || se.StatusCode == 403:
		return resilience.NewFatalError("search provider authentication failed", err)
	case resilience.IsTransientHTTPStatus(se.StatusCode):
		return resilience.NewTransientError(err, se.StatusCode)
	default:
		return resilience.NewItemError(err)
	}
}
