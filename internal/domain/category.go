package domain

import (
	"sort"
	"strings"
)

// AllCategories is the wildcard filter value that selects every record.
const AllCategories = "all"

// BuildCategoryIndex returns the distinct trimmed categories of quotes,
// sorted, with the wildcard prepended. A literal category equal to the
// wildcard collapses into it.
func BuildCategoryIndex(quotes []Quote) []string {
	seen := make(map[string]struct{}, len(quotes))
	cats := make([]string, 0, len(quotes))

	for _, q := range quotes {
		c := strings.TrimSpace(q.Category)
		if c == "" || c == AllCategories {
			continue
		}

		if _, ok := seen[c]; ok {
			continue
		}

		seen[c] = struct{}{}
		cats = append(cats, c)
	}

	sort.Strings(cats)

	return append([]string{AllCategories}, cats...)
}

// MatchesCategory reports whether q passes the given filter.
func MatchesCategory(q Quote, filter string) bool {
	return filter == "" || filter == AllCategories || q.Category == filter
}
