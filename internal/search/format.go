package search

import (
	"fmt"
	"strings"
)

// FormatResults renders hits as the numbered-list block fed to the model and
// shipped to clients inside tool result events. ExtractResults parses it back.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No search results found."
	}

	var b strings.Builder
	b.WriteString("Search Results:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(&b, "   URL: %s\n", r.URL)
		fmt.Fprintf(&b, "   %s\n\n", r.Snippet)
	}
	return b.String()
}
