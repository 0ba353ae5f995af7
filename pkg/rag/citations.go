package rag

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatCitations renders search hits as a human-readable source list.
//
// Hits are grouped by filename in first-seen order. A file with a single
// hit is rendered with its page and content; a file with several hits gets
// a page range (when all pages are numeric) or a page list, followed by one
// content line per hit.
func FormatCitations(hits []SearchHit) string {
	if len(hits) == 0 {
		return "No sources found."
	}

	var order []string
	groups := make(map[string][]SearchHit)
	for _, hit := range hits {
		if _, seen := groups[hit.Filename]; !seen {
			order = append(order, hit.Filename)
		}
		groups[hit.Filename] = append(groups[hit.Filename], hit)
	}

	var sections []string
	for i, filename := range order {
		group := groups[filename]

		var b strings.Builder
		fmt.Fprintf(&b, "Source %d: %s\n", i+1, filename)

		if len(group) == 1 {
			hit := group[0]
			fmt.Fprintf(&b, "Page %s\n", hit.Page)
			fmt.Fprintf(&b, "Content: %s", strings.TrimSpace(hit.Content))
		} else {
			fmt.Fprintf(&b, "%s\n", formatPageSpan(group))
			lines := make([]string, 0, len(group))
			for _, hit := range group {
				lines = append(lines, fmt.Sprintf("[Page %s]: %s", hit.Page, strings.TrimSpace(hit.Content)))
			}
			b.WriteString(strings.Join(lines, "\n"))
		}

		sections = append(sections, b.String())
	}

	return strings.Join(sections, "\n\n")
}

// formatPageSpan renders the page summary line for a multi-hit group. All
// numeric pages collapse into a min-max range; any non-numeric page makes
// the span a verbatim comma-joined list.
func formatPageSpan(group []SearchHit) string {
	min, max := 0, 0
	numeric := true
	for i, hit := range group {
		n, err := strconv.Atoi(hit.Page)
		if err != nil {
			numeric = false
			break
		}
		if i == 0 || n < min {
			min = n
		}
		if i == 0 || n > max {
			max = n
		}
	}

	if numeric {
		return fmt.Sprintf("Pages %d-%d", min, max)
	}

	pages := make([]string, 0, len(group))
	for _, hit := range group {
		pages = append(pages, hit.Page)
	}
	return "Pages " + strings.Join(pages, ", ")
}
