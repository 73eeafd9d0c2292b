package search

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gravyprompts/gravyprompts/internal/models"
)

func ids(scored []Scored) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Template.ID
	}
	return out
}

func TestRank(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &models.Template{ID: "a", UseCount: 5, ViewCount: 1, CreatedAt: day}
	b := &models.Template{ID: "b", UseCount: 5, ViewCount: 9, CreatedAt: day.Add(time.Hour)}
	c := &models.Template{ID: "c", UseCount: 1, ViewCount: 9, CreatedAt: day}
	d := &models.Template{ID: "d", UseCount: 9, ViewCount: 0, CreatedAt: day.Add(-time.Hour)}

	tests := []struct {
		name     string
		input    []Scored
		ordering Ordering
		want     []string
	}{
		{
			name:     "score desc with id tie break",
			input:    []Scored{{c, 10}, {b, 50}, {a, 50}, {d, 20}},
			ordering: Ordering{ByScore: true},
			want:     []string{"a", "b", "d", "c"},
		},
		{
			name:     "popularity",
			input:    []Scored{{a, 0}, {b, 0}, {c, 0}, {d, 0}},
			ordering: Ordering{ByPopularity: true},
			want:     []string{"d", "b", "a", "c"},
		},
		{
			name:     "created desc",
			input:    []Scored{{a, 0}, {b, 0}, {c, 0}, {d, 0}},
			ordering: Ordering{Field: models.SortCreatedAt, Order: models.SortDesc},
			want:     []string{"b", "a", "c", "d"},
		},
		{
			name:     "created asc keeps id tie break ascending",
			input:    []Scored{{c, 0}, {a, 0}, {b, 0}, {d, 0}},
			ordering: Ordering{Field: models.SortCreatedAt, Order: models.SortAsc},
			want:     []string{"d", "a", "c", "b"},
		},
		{
			name:     "view count desc",
			input:    []Scored{{a, 0}, {b, 0}, {c, 0}, {d, 0}},
			ordering: Ordering{Field: models.SortViewCount, Order: models.SortDesc},
			want:     []string{"b", "c", "a", "d"},
		},
		{
			name:     "use count asc",
			input:    []Scored{{a, 0}, {b, 0}, {c, 0}, {d, 0}},
			ordering: Ordering{Field: models.SortUseCount, Order: models.SortAsc},
			want:     []string{"c", "a", "b", "d"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Rank(tt.input, tt.ordering)
			if diff := cmp.Diff(tt.want, ids(tt.input)); diff != "" {
				t.Errorf("Rank order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRankIsPermutationIndependent(t *testing.T) {
	base := []*models.Template{
		{ID: "x"}, {ID: "y"}, {ID: "z"}, {ID: "w"},
	}
	first := []Scored{{base[0], 3}, {base[1], 3}, {base[2], 3}, {base[3], 3}}
	second := []Scored{{base[3], 3}, {base[2], 3}, {base[1], 3}, {base[0], 3}}

	Rank(first, Ordering{ByScore: true})
	Rank(second, Ordering{ByScore: true})
	if diff := cmp.Diff(ids(first), ids(second)); diff != "" {
		t.Errorf("ranking depends on input order:\n%s", diff)
	}
}
