package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gravyprompts/gravyprompts/internal/models"
)

// Signal weights
const (
	weightTitleExact    = 100
	weightTitleContains = 50
	weightTitleBoundary = 25
	weightTitleFuzzy    = 30

	weightTagExact    = 40
	weightTagContains = 20

	weightContentEarly = 20 // first occurrence before rune 100
	weightContentMid   = 15 // before rune 300
	weightContentLate  = 10

	weightVariable = 15

	maxUseBoost  = 5
	maxViewBoost = 2
)

// fields holds the folded text of one template, built once per record and
// reused for every term.
type fields struct {
	title      string
	titleWords []string
	tags       []string
	content    string
	variables  []string
}

func prepare(t *models.Template) fields {
	f := fields{
		title:   fold(strings.TrimSpace(t.Title)),
		content: fold(t.Content),
	}
	f.titleWords = strings.FieldsFunc(f.title, isSeparator)
	f.tags = make([]string, len(t.Tags))
	for i, tag := range t.Tags {
		f.tags[i] = fold(strings.TrimSpace(tag))
	}
	f.variables = make([]string, len(t.VariableNames))
	for i, v := range t.VariableNames {
		f.variables[i] = fold(strings.TrimSpace(v))
	}
	return f
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// ScoreTerm scores a single normalised term against one template
func ScoreTerm(term string, t *models.Template) int {
	f := prepare(t)
	return f.score(term)
}

func (f *fields) score(term string) int {
	if term == "" {
		return 0
	}
	return f.titleScore(term) + f.tagScore(term) + f.contentScore(term) + f.variableScore(term)
}

func (f *fields) titleScore(term string) int {
	if f.title == term {
		return weightTitleExact
	}
	if idx := strings.Index(f.title, term); idx >= 0 {
		// Any occurrence at a word start earns the bonus.
		for idx >= 0 {
			if atWordStart(f.title, idx) {
				return weightTitleContains + weightTitleBoundary
			}
			next := strings.Index(f.title[idx+1:], term)
			if next < 0 {
				break
			}
			idx += next + 1
		}
		return weightTitleContains
	}
	for _, w := range f.titleWords {
		if IsFuzzyMatch(term, w) {
			return weightTitleFuzzy
		}
	}
	return 0
}

// atWordStart reports whether byte offset idx in s begins a word
func atWordStart(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(s[:idx])
	return isSeparator(prev)
}

func (f *fields) tagScore(term string) int {
	best := 0
	for _, tag := range f.tags {
		if tag == term {
			return weightTagExact
		}
		if strings.Contains(tag, term) {
			best = weightTagContains
		}
	}
	return best
}

func (f *fields) contentScore(term string) int {
	idx := strings.Index(f.content, term)
	if idx < 0 {
		return 0
	}
	switch pos := utf8.RuneCountInString(f.content[:idx]); {
	case pos < 100:
		return weightContentEarly
	case pos < 300:
		return weightContentMid
	default:
		return weightContentLate
	}
}

func (f *fields) variableScore(term string) int {
	for _, v := range f.variables {
		if v == term {
			return weightVariable
		}
	}
	return 0
}

// PopularityBoost is the per-record bonus from usage counters, at most 7
func PopularityBoost(t *models.Template) int {
	use := max(t.UseCount, 0) / 10
	view := max(t.ViewCount, 0) / 50
	return min(maxUseBoost, use) + min(maxViewBoost, view)
}

// Aggregate returns the record's total score and whether it qualifies.
// A record qualifies when no terms were given or when at least one term
// contributed; popularity alone never makes a match.
func Aggregate(terms []string, t *models.Template) (int, bool) {
	f := prepare(t)
	sum := 0
	for _, term := range terms {
		sum += f.score(term)
	}
	qualifies := len(terms) == 0 || sum > 0
	return sum + PopularityBoost(t), qualifies
}
