package scrape

import (
	"sort"
	"strings"
)

// navKeywords mark links likely to lead to pages describing the company.
var navKeywords = []string{
	"about", "company", "products", "services", "clients",
	"customers", "contact", "locations", "overview", "team",
}

// RankLinks scores outgoing links by navigation-keyword relevance and
// returns up to max unvisited URLs, highest score first. Links matching no
// keyword are dropped; ties keep document order.
func RankLinks(links []Link, visited map[string]bool, max int) []string {
	type scored struct {
		url   string
		score int
		order int
	}

	var candidates []scored
	for i, l := range links {
		if visited[l.URL] {
			continue
		}
		s := scoreLink(l)
		if s == 0 {
			continue
		}
		candidates = append(candidates, scored{url: l.URL, score: s, order: i})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}

	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.url
	}
	return urls
}

func scoreLink(l Link) int {
	haystack := strings.ToLower(l.URL + " " + l.Text)
	score := 0
	for _, kw := range navKeywords {
		if strings.Contains(haystack, kw) {
			score++
		}
	}
	return score
}
