package search

import (
	"context"

	"github.com/gravyprompts/gravyprompts/internal/models"
)

// Scope selects which templates a caller may see
type Scope int

const (
	// ScopePublic is approved public templates only
	ScopePublic Scope = iota
	// ScopeOwned is everything the user owns, any visibility or moderation state
	ScopeOwned
	// ScopePublicOrOwned is the union of the two
	ScopePublicOrOwned
)

// FilterSpec is the candidate filter a Store applies before returning a batch
type FilterSpec struct {
	Scope  Scope
	UserID string
	Tag    string
}

// Matches reports whether t passes the filter. Stores that cannot express
// the filter natively use it to post-filter.
func (f FilterSpec) Matches(t *models.Template) bool {
	if f.Tag != "" && !t.HasTag(f.Tag) {
		return false
	}

	listed := t.IsPublic() && (t.ModerationStatus == "" || t.ModerationStatus == models.ModerationApproved)
	switch f.Scope {
	case ScopeOwned:
		return t.IsOwnedBy(f.UserID)
	case ScopePublicOrOwned:
		return listed || t.IsOwnedBy(f.UserID)
	default:
		return listed
	}
}

// CanView reports whether userID may open t directly
func CanView(t *models.Template, userID string) bool {
	return (FilterSpec{Scope: ScopePublicOrOwned, UserID: userID}).Matches(t)
}

// SortHint is the traversal order the Store should use across batches.
// It is a hint for stable paging, not a relevance ordering.
type SortHint struct {
	Popularity bool
	Field      models.SortField
	Order      models.SortOrder
}

// Batch is one bounded slice of candidates plus the store's own
// continuation token, empty when the traversal is exhausted
type Batch struct {
	Templates []models.Template
	NextToken string
}

// Store is the candidate source the engine reads from.
//
// FetchCandidates must be deterministic for a fixed snapshot: the same
// (spec, hint, limit, token) returns the same batch.
type Store interface {
	FetchCandidates(ctx context.Context, spec FilterSpec, hint SortHint, limit int, token string) (Batch, error)
	GetTemplate(ctx context.Context, id string) (models.Template, bool, error)
}
