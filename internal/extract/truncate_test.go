package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateByRelevance_ShortContentUntouched(t *testing.T) {
	content := "short page about the company"
	assert.Equal(t, content, TruncateByRelevance(content, []string{"company"}, 1000))
}

func TestTruncateByRelevance_KeepsRelevantSections(t *testing.T) {
	relevant := "# About the company\nAcme provides products and services to clients worldwide."
	filler := "# Legal\n" + strings.Repeat("boilerplate terms and conditions text ", 30)

	content := filler + "\n\n" + relevant
	limit := len(relevant) + 20

	got := TruncateByRelevance(content, []string{"company", "products", "services", "clients"}, limit)

	assert.Contains(t, got, "Acme provides products and services")
	assert.LessOrEqual(t, len(got), limit+2)
	assert.NotContains(t, got, "boilerplate terms")
}

func TestTruncateByRelevance_PreservesDocumentOrder(t *testing.T) {
	a := "# One\ncompany products alpha"
	b := "# Two\ncompany services beta"
	c := "# Three\n" + strings.Repeat("irrelevant ", 50)

	content := a + "\n" + c + "\n" + b
	got := TruncateByRelevance(content, []string{"company", "products", "services"}, len(a)+len(b)+10)

	posA := strings.Index(got, "alpha")
	posB := strings.Index(got, "beta")
	assert.Greater(t, posA, -1)
	assert.Greater(t, posB, posA)
}

func TestTruncateByRelevance_FallsBackToHardCut(t *testing.T) {
	content := strings.Repeat("x", 500) // one section, no keywords match
	got := TruncateByRelevance(content, []string{"company"}, 100)
	assert.Len(t, got, 100)
}

func TestTruncateByRelevance_NoKeywords(t *testing.T) {
	content := strings.Repeat("y", 500)
	got := TruncateByRelevance(content, nil, 50)
	assert.Len(t, got, 50)
}

func TestSplitSections(t *testing.T) {
	content := "# Header\nline one\nline two\n\npara two\n# Another\nmore"
	sections := splitSections(content)

	assert.Len(t, sections, 3)
	assert.True(t, strings.HasPrefix(sections[0], "# Header"))
	assert.Equal(t, "para two", sections[1])
	assert.True(t, strings.HasPrefix(sections[2], "# Another"))
}
