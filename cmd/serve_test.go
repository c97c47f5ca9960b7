package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/company-intel/internal/config"
	"github.com/sells-group/company-intel/internal/model"
	"github.com/sells-group/company-intel/internal/monitoring"
	"github.com/sells-group/company-intel/internal/scrape"
	"github.com/sells-group/company-intel/internal/store"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, url string) (*scrape.Page, error) {
	return &scrape.Page{URL: url, Text: "stub page"}, nil
}

type stubSearcher struct{}

func (stubSearcher) Search(_ context.Context, _ string, _ int, _ map[string]bool) ([]string, error) {
	return nil, nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, _, _, source string) (map[model.Field]model.FieldValue, error) {
	out := make(map[model.Field]model.FieldValue)
	for _, f := range model.Fields {
		out[f] = model.FieldValue{Value: "stub", Confidence: 0.9, Source: source}
	}
	return out, nil
}

func newTestEnv(t *testing.T) *scrapeEnv {
	t.Helper()

	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	cfg = &config.Config{
		Scraper: config.ScraperConfig{
			MaxWebsiteAttempts: 5,
			MaxSearchAttempts:  5,
			CompleteThreshold:  0.7,
			MaxLinksPerPage:    5,
			SearchResults:      3,
		},
	}

	return &scrapeEnv{
		Store:     st,
		Metrics:   monitoring.NewCollector(),
		Fetcher:   stubFetcher{},
		Searcher:  stubSearcher{},
		Extractor: stubExtractor{},
	}
}

func TestServeHealth(t *testing.T) {
	router := newRouter(context.Background(), newTestEnv(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestServeSubmitAndPollJob(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(context.Background(), env)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs",
		strings.NewReader(`{"company_name": "Acme", "seed_url": "https://acme.test"}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.ID)

	// The job runs asynchronously; poll until it completes.
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+accepted.ID, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var run model.Run
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		if run.Status == model.RunStatusComplete {
			require.NotNil(t, run.Result)
			assert.Equal(t, model.PhaseDone, run.Result.Phase)
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not complete, status %s", run.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServeSubmitJob_RequiresCompanyName(t *testing.T) {
	router := newRouter(context.Background(), newTestEnv(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs",
		strings.NewReader(`{"seed_url": "https://acme.test"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeListJobs(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Store.CreateRun(context.Background(), model.Job{CompanyName: "Acme"})
	require.NoError(t, err)

	router := newRouter(context.Background(), env)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var runs []model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)
}
