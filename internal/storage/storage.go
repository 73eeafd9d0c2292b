// Package storage holds the template stores the search engine reads from.
//
// SYSTEM ARCHITECTURE ROLE:
// Stores own filtering by visibility, ownership, moderation state and tag,
// and a stable traversal order. They never rank by relevance; that is the
// search engine's job.
//
// KEY RESPONSIBILITIES:
// - SQLiteStore: the production store, one database file
// - MemoryStore: an in-process store for tests and dry runs
// - Markdown frontmatter encoding for template files
//
// INTEGRATION POINTS:
// - internal/search/store.go: both stores implement search.Store
// - internal/importer: writes consolidated seed templates through SaveTemplates
// - internal/service/service.go: reads tag counts for tag listing
package storage

import (
	"context"
	"strconv"

	"github.com/gravyprompts/gravyprompts/internal/models"
	"github.com/gravyprompts/gravyprompts/internal/search"
)

// TagCount is a tag with the number of listed templates carrying it
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Repository is a search.Store that can also be written to and summarised
type Repository interface {
	search.Store
	SaveTemplates(ctx context.Context, templates []models.Template) error
	TagCounts(ctx context.Context) ([]TagCount, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Continuation tokens are plain offsets into the store's traversal order.
// Anything unparseable restarts the traversal.
func parseOffsetToken(token string) int {
	if token == "" {
		return 0
	}
	n, err := strconv.Atoi(token)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func offsetToken(n int) string {
	return strconv.Itoa(n)
}

// Open opens the repository at path. An empty path or ":memory:" gives a
// MemoryStore.
func Open(ctx context.Context, path string) (Repository, error) {
	if path == "" || path == ":memory:" {
		return NewMemoryStore(), nil
	}
	return OpenSQLite(ctx, path)
}
