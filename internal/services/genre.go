package services

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// normalizeGenre maps catalog spellings such as "Sci-Fi", "sci-fi" and
// decomposed accents onto one comparison key.
func normalizeGenre(genre string) string {
	// A Caser keeps state, so one per call
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(genre)))
}

// genreKeys returns the distinct normalized keys of genres, in first-seen order.
func genreKeys(genres []string) []string {
	seen := make(map[string]bool, len(genres))
	keys := make([]string, 0, len(genres))
	for _, g := range genres {
		key := normalizeGenre(g)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
