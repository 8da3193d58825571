package ui

import (
	"strings"

	"todopanel/internal/storage"
)

// VisibleItems derives what the panel shows from the cached list. History
// shows completed items, newest completion first; the active view shows
// incomplete items in insertion order. Both match query as a case-insensitive
// substring of the text.
func VisibleItems(items []storage.Item, query string, history bool) []storage.Item {
	q := strings.ToLower(query)
	matching := make([]storage.Item, 0, len(items))
	for _, it := range items {
		if it.Completed != history {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(it.Text), q) {
			continue
		}
		matching = append(matching, it)
	}
	if history {
		return storage.CompletedByTime(matching)
	}
	return matching
}

// NonBlankLines splits text on newlines and drops lines that are only
// whitespace. Lines are returned trimmed.
func NonBlankLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
