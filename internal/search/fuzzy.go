package search

import (
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// fuzzyThreshold is the edit budget allowed for a comparison whose shorter
// side has n runes
func fuzzyThreshold(n int) int {
	switch {
	case n < 4:
		return 0
	case n < 8:
		return 1
	default:
		return 2
	}
}

// IsFuzzyMatch reports whether term and word are within the Levenshtein
// budget of the shorter of the two, ignoring case.
func IsFuzzyMatch(term, word string) bool {
	term, word = fold(term), fold(word)
	if term == "" || word == "" {
		return term == word
	}

	tl, wl := utf8.RuneCountInString(term), utf8.RuneCountInString(word)
	budget := fuzzyThreshold(min(tl, wl))

	// Length difference is a lower bound on the distance.
	if diff := tl - wl; diff > budget || -diff > budget {
		return false
	}
	if budget == 0 {
		return term == word
	}
	return edlib.LevenshteinDistance(term, word) <= budget
}
