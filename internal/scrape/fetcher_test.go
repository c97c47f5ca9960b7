package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/company-intel/internal/ratelimit"
	"github.com/sells-group/company-intel/internal/resilience"
)

func fastPolicy() resilience.Policy {
	return resilience.Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       10 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
	}
}

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(ratelimit.New(nil), 5*time.Second, fastPolicy())
}

const testHTML = `<!DOCTYPE html>
<html>
<head><title>Acme Corp</title><script>var x = 1;</script></head>
<body>
<nav><a href="/ignored-nav">Nav</a></nav>
<h1>Acme Corp</h1>
<p>We build widgets in Austin, Texas.</p>
<a href="/about">About Us</a>
<a href="/about">About (duplicate)</a>
<a href="/products/">Products</a>
<a href="https://other.example.com/external">External</a>
<a href="#fragment">Skip</a>
<a href="mailto:hi@acme.test">Mail</a>
<a href="javascript:void(0)">JS</a>
<footer>footer text</footer>
</body>
</html>`

func TestFetch_SanitizesPageAndExtractsLinks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testHTML))
	}))
	defer ts.Close()

	page, err := newTestFetcher().Fetch(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", page.Title)
	assert.Contains(t, page.Text, "We build widgets in Austin, Texas.")
	assert.NotContains(t, page.Text, "var x = 1")
	assert.NotContains(t, page.Text, "footer text")

	var urls []string
	for _, l := range page.Links {
		urls = append(urls, l.URL)
	}
	assert.Contains(t, urls, ts.URL+"/about")
	assert.Contains(t, urls, ts.URL+"/products")
	for _, u := range urls {
		assert.NotContains(t, u, "other.example.com")
		assert.NotContains(t, u, "#")
		assert.NotContains(t, u, "mailto")
	}
	// Duplicate /about collapses to one link.
	count := 0
	for _, u := range urls {
		if u == ts.URL+"/about" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestFetch_MalformedURLIsItemFatal(t *testing.T) {
	f := newTestFetcher()

	_, err := f.Fetch(context.Background(), "not a url")
	require.Error(t, err)
	assert.True(t, resilience.IsItemFatal(err))

	_, err = f.Fetch(context.Background(), "ftp://acme.test/file")
	require.Error(t, err)
	assert.True(t, resilience.IsItemFatal(err))
}

func TestFetch_NotFoundIsItemFatalAndNotRetried(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := newTestFetcher().Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.True(t, resilience.IsItemFatal(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetch_ServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testHTML))
	}))
	defer ts.Close()

	page, err := newTestFetcher().Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", page.Title)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetch_FollowsRedirectsAndResolvesLinksAgainstFinalURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/home", http.StatusMovedPermanently)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Home</title></head><body><p>hello world</p><a href="about">About</a></body></html>`))
	}))
	defer ts.Close()

	page, err := newTestFetcher().Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/home", page.URL)
	require.Len(t, page.Links, 1)
	assert.Equal(t, ts.URL+"/about", page.Links[0].URL)
}

func TestCollapseBlankLines(t *testing.T) {
	in := "a\n\n\n\nb  \n\nc\n"
	assert.Equal(t, "a\n\nb\n\nc", collapseBlankLines(in))
}
