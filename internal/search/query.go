package search

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeQuery splits raw into lowercase terms on Unicode whitespace,
// dropping empties and repeats. Order of first occurrence is kept.
// An empty result means no text filtering.
func NormalizeQuery(raw string) []string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		term := fold(f)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	return terms
}

// fold lowercases s in NFC so composed and decomposed accents compare equal
func fold(s string) string {
	return norm.NFC.String(strings.ToLower(s))
}
