package stashtab

import (
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
)

// haystack returns the string form of every row field, lowercased.
func haystack(r Row) [3]string {
	return [3]string{
		strconv.Itoa(r.Position),
		strings.ToLower(r.Name),
		strconv.FormatBool(r.IsMapTab),
	}
}

// Filter keeps rows where any field contains text, case-insensitively. The
// result preserves row order; empty text returns all rows.
func Filter(rows []Row, text string) []Row {
	if text == "" {
		return append([]Row(nil), rows...)
	}
	q := strings.ToLower(text)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		for _, field := range haystack(r) {
			if field != "" && strings.Contains(field, q) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// rowSource adapts rows to fuzzy.Source, matching on the tab name.
type rowSource []Row

func (s rowSource) String(i int) string { return strings.ToLower(s[i].Name) }
func (s rowSource) Len() int            { return len(s) }

// FilterFuzzy ranks rows by fuzzy match of text against the tab name, best
// match first.
func FilterFuzzy(rows []Row, text string) []Row {
	if text == "" {
		return append([]Row(nil), rows...)
	}
	matches := fuzzy.FindFrom(strings.ToLower(text), rowSource(rows))
	out := make([]Row, 0, len(matches))
	for _, m := range matches {
		out = append(out, rows[m.Index])
	}
	return out
}
