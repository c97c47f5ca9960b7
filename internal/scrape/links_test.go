package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankLinks_OrdersByKeywordScore(t *testing.T) {
	links := []Link{
		{URL: "https://acme.test/blog/post-1", Text: "Some post"},
		{URL: "https://acme.test/about", Text: "About our company"},
		{URL: "https://acme.test/products", Text: "Products"},
	}

	got := RankLinks(links, nil, 5)

	// /about matches "about" (url+text) and "company"; /products matches
	// "products"; the blog post matches nothing and is dropped.
	assert.Equal(t, []string{
		"https://acme.test/about",
		"https://acme.test/products",
	}, got)
}

func TestRankLinks_SkipsVisited(t *testing.T) {
	links := []Link{
		{URL: "https://acme.test/about", Text: "About"},
		{URL: "https://acme.test/contact", Text: "Contact"},
	}
	visited := map[string]bool{"https://acme.test/about": true}

	got := RankLinks(links, visited, 5)
	assert.Equal(t, []string{"https://acme.test/contact"}, got)
}

func TestRankLinks_CapsAtMax(t *testing.T) {
	links := []Link{
		{URL: "https://acme.test/about", Text: "About"},
		{URL: "https://acme.test/products", Text: "Products"},
		{URL: "https://acme.test/services", Text: "Services"},
		{URL: "https://acme.test/team", Text: "Team"},
	}

	got := RankLinks(links, nil, 2)
	assert.Len(t, got, 2)
}

func TestRankLinks_TiesKeepDocumentOrder(t *testing.T) {
	links := []Link{
		{URL: "https://acme.test/x1", Text: "team"},
		{URL: "https://acme.test/x2", Text: "team"},
		{URL: "https://acme.test/x3", Text: "team"},
	}

	got := RankLinks(links, nil, 5)
	assert.Equal(t, []string{
		"https://acme.test/x1",
		"https://acme.test/x2",
		"https://acme.test/x3",
	}, got)
}

func TestRankLinks_EmptyInput(t *testing.T) {
	assert.Empty(t, RankLinks(nil, nil, 5))
}
