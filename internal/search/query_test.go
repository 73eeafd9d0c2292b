package search

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", " \t\n ", nil},
		{"lowercases", "Email MARKETING", []string{"email", "marketing"}},
		{"dedupes keeping first", "email Email template email", []string{"email", "template"}},
		{"unicode whitespace", "caf\u00e9\u2003menu\u00a0plan", []string{"caf\u00e9", "menu", "plan"}},
		{"composed and decomposed equal", "Caf\u00e9 cafe\u0301", []string{"caf\u00e9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, NormalizeQuery(tt.raw)); diff != "" {
				t.Errorf("NormalizeQuery(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}
