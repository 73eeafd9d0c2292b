package search

import (
	"sort"

	"github.com/gravyprompts/gravyprompts/internal/models"
)

// Ordering is how a candidate batch is arranged before paging
type Ordering struct {
	// ByScore orders by aggregated score descending. Set for text queries.
	ByScore bool
	// ByPopularity orders by useCount then viewCount, both descending.
	ByPopularity bool
	Field        models.SortField
	Order        models.SortOrder
}

// Scored is a qualifying candidate with its aggregated score
type Scored struct {
	Template *models.Template
	Score    int
}

// Rank sorts candidates in place. Ties always fall back to ID ascending, so
// the result is a total order for any input.
func Rank(candidates []Scored, o Ordering) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if c := o.compare(a, b); c != 0 {
			return c < 0
		}
		return a.Template.ID < b.Template.ID
	})
}

// compare returns <0 when a ranks before b
func (o Ordering) compare(a, b Scored) int {
	switch {
	case o.ByScore:
		return b.Score - a.Score
	case o.ByPopularity:
		if c := b.Template.UseCount - a.Template.UseCount; c != 0 {
			return c
		}
		return b.Template.ViewCount - a.Template.ViewCount
	}

	var c int
	switch o.Field {
	case models.SortViewCount:
		c = a.Template.ViewCount - b.Template.ViewCount
	case models.SortUseCount:
		c = a.Template.UseCount - b.Template.UseCount
	default:
		c = a.Template.CreatedAt.Compare(b.Template.CreatedAt)
	}
	if o.Order == models.SortAsc {
		return c
	}
	return -c
}
