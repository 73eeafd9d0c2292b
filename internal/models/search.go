package models

import "time"

// Filter selects which slice of the template collection a search runs over
type Filter string

const (
	FilterPublic  Filter = "public"
	FilterMine    Filter = "mine"
	FilterPopular Filter = "popular"
	FilterAll     Filter = "all"
)

// SortField names a sortable template attribute
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortViewCount SortField = "viewCount"
	SortUseCount  SortField = "useCount"
)

// SortOrder is the direction of a field sort
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Request limits
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// SearchRequest is a validated search call. Fields are already defaulted and
// clamped by the time the engine sees them.
type SearchRequest struct {
	Query     string
	Tag       string
	Filter    Filter
	SortBy    SortField
	SortOrder SortOrder
	// SortExplicit is set when the caller supplied sortBy themselves.
	SortExplicit bool
	Cursor       string
	Limit        int
}

// ClampLimit maps a requested page size into [1, max]. Zero means no
// limit was given and yields def.
func ClampLimit(limit, def, max int) int {
	if max <= 0 {
		max = MaxLimit
	}
	if def <= 0 || def > max {
		def = min(DefaultLimit, max)
	}
	if limit == 0 {
		return def
	}
	if limit < 1 {
		return 1
	}
	if limit > max {
		return max
	}
	return limit
}

// ResultItem is one ranked template as returned to callers
type ResultItem struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Preview       string     `json:"preview"`
	Tags          []string   `json:"tags"`
	VariableNames []string   `json:"variableNames"`
	Visibility    Visibility `json:"visibility"`
	CreatedAt     time.Time  `json:"createdAt"`
	ViewCount     int        `json:"viewCount"`
	UseCount      int        `json:"useCount"`
	IsOwner       bool       `json:"isOwner"`
	Score         *int       `json:"score,omitempty"`
}

// SearchResult is one page of ranked templates
type SearchResult struct {
	Items     []ResultItem `json:"items"`
	NextToken string       `json:"nextToken,omitempty"`
}
