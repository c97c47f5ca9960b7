package extract

import (
	"sort"
	"strings"
)

// TruncateByRelevance bounds content to limit characters without blindly
// cutting at the limit: it splits the content into sections (markdown
// headers or paragraph breaks), scores each section by keyword overlap, and
// keeps the highest-scoring sections that fit. Falls back to a hard cut when
// the content has no usable sections.
func TruncateByRelevance(content string, keywords []string, limit int) string {
	if limit <= 0 || len(content) <= limit {
		return content
	}
	if len(keywords) == 0 {
		return content[:limit]
	}

	sections := splitSections(content)
	if len(sections) <= 1 {
		return content[:limit]
	}

	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}

	type scoredSection struct {
		idx   int
		text  string
		score int
	}
	scored := make([]scoredSection, len(sections))
	for i, sec := range sections {
		lower := strings.ToLower(sec)
		score := 0
		for _, kw := range lowered {
			score += strings.Count(lower, kw)
		}
		scored[i] = scoredSection{idx: i, text: sec, score: score}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	selected := make(map[int]bool)
	totalLen := 0
	for _, s := range scored {
		if totalLen+len(s.text) > limit {
			continue
		}
		selected[s.idx] = true
		totalLen += len(s.text)
	}
	if len(selected) == 0 {
		return content[:limit]
	}

	// Reassemble in original document order.
	var b strings.Builder
	for i, sec := range sections {
		if !selected[i] {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(sec)
	}
	return b.String()
}

// splitSections splits content by markdown headers or blank-line paragraph
// breaks.
func splitSections(content string) []string {
	var sections []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sections = append(sections, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "#") || (strings.TrimSpace(line) == "" && current.Len() > 0) {
			flush()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()

	return sections
}
