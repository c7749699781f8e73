package search

import (
	"regexp"
	"strings"
)

var resultHeadRe = regexp.MustCompile(`^(\d+)\.\s*(.*)$`)

// ExtractResults parses a formatted numbered-list block (see FormatResults)
// back into structured results. Parsing is line oriented and best effort:
// a "N." line opens a record with the remainder as title, an indented "URL:"
// line sets the URL, any other indented non-empty line extends the snippet.
// Unrecognized lines are ignored; partial records are still returned.
func ExtractResults(text string) []Result {
	var out []Result
	var cur *Result

	for _, line := range strings.Split(text, "\n") {
		if m := resultHeadRe.FindStringSubmatch(line); m != nil {
			if cur != nil {
				out = append(out, *cur)
			}
			cur = &Result{Title: m[2]}
			continue
		}
		if cur == nil {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if line[0] != ' ' && line[0] != '\t' {
			// Un-indented lines (e.g. the block header) do not belong to a record.
			continue
		}

		if strings.HasPrefix(trimmed, "URL:") {
			cur.URL = strings.TrimSpace(strings.TrimPrefix(trimmed, "URL:"))
			continue
		}
		cur.Snippet += trimmed + " "
	}

	if cur != nil {
		out = append(out, *cur)
	}
	return out
}
