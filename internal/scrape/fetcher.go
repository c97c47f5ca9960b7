// Package scrape fetches and sanitizes company web pages for extraction.
package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/company-intel/internal/ratelimit"
	"github.com/sells-group/company-intel/internal/resilience"
)

const maxBodyBytes = 512 * 1024

// Link is an outgoing link with its anchor text.
type Link struct {
	URL  string
	Text string
}

// Page holds fetched, sanitized page content.
type Page struct {
	URL   string
	Title string
	Text  string // markdown plaintext, scripts and styles stripped
	Links []Link // absolute, same-host, deduplicated
}

// Fetcher retrieves and sanitizes page content.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// HTTPFetcher fetches pages via net/http, rate-limited and retried.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *ratelimit.Registry
	policy    resilience.Policy
	converter *md.Converter
}

// NewHTTPFetcher creates an HTTPFetcher. The limiter gates every attempt
// under the fetch resource ceiling; the policy retries transient failures.
func NewHTTPFetcher(limiter *ratelimit.Registry, timeout time.Duration, policy resilience.Policy) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	policy.OnRetry = resilience.RetryLogger("fetch", "get")
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter:   limiter,
		policy:    policy,
		converter: md.NewConverter("", true, nil),
	}
}

// Fetch retrieves a URL and returns its sanitized text and outgoing links.
// Malformed URLs are fatal for the URL and never retried; timeouts and
// server errors are retried under the fetcher's policy.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, resilience.NewItemError(eris.Errorf("fetch: malformed url %q", rawURL))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, resilience.NewItemError(eris.Errorf("fetch: unsupported scheme %q", u.Scheme))
	}

	return resilience.DoVal(ctx, f.policy, func(ctx context.Context) (*Page, error) {
		if err := f.limiter.Wait(ctx, ratelimit.ResourceFetch); err != nil {
			return nil, eris.Wrap(err, "fetch: rate limit wait")
		}
		return f.fetchOnce(ctx, u)
	})
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, u *url.URL) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, resilience.NewItemError(eris.Wrap(err, "fetch: create request"))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CompanyIntelBot/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: get")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := eris.Errorf("fetch: status %d for %s", resp.StatusCode, u)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, resilience.NewItemError(err)
	}

	return f.sanitize(resp.Request.URL, body)
}

// sanitize parses HTML, strips non-content elements, extracts same-host
// links, and converts the remainder to markdown text.
func (f *HTTPFetcher) sanitize(base *url.URL, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, resilience.NewItemError(eris.Wrap(err, "fetch: parse html"))
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	links := extractLinks(doc, base)

	doc.Find("script, style, noscript, nav, footer, iframe").Remove()
	text := f.converter.Convert(doc.Selection)
	text = collapseBlankLines(text)

	if strings.TrimSpace(text) == "" {
		return nil, resilience.NewTransientError(eris.Errorf("fetch: empty page %s", base), 0)
	}

	return &Page{
		URL:   base.String(),
		Title: title,
		Text:  text,
		Links: links,
	}, nil
}

// extractLinks collects absolute same-host links with their anchor text.
func extractLinks(doc *goquery.Document, base *url.URL) []Link {
	seen := make(map[string]bool)
	var links []Link

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Host != base.Host {
			return
		}
		abs.Fragment = ""

		normalized := strings.TrimSuffix(abs.String(), "/")
		if normalized == "" || seen[normalized] {
			return
		}
		seen[normalized] = true
		links = append(links, Link{
			URL:  normalized,
			Text: strings.TrimSpace(s.Text()),
		})
	})

	return links
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blank = 0
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
