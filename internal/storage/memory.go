package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/gravyprompts/gravyprompts/internal/models"
	"github.com/gravyprompts/gravyprompts/internal/search"
)

// MemoryStore keeps templates in a map
type MemoryStore struct {
	templates map[string]models.Template
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty store, optionally seeded
func NewMemoryStore(seed ...models.Template) *MemoryStore {
	s := &MemoryStore{templates: make(map[string]models.Template, len(seed))}
	for _, t := range seed {
		s.templates[t.ID] = t
	}
	return s
}

// FetchCandidates returns one batch of matching templates in hint order
func (s *MemoryStore) FetchCandidates(ctx context.Context, spec search.FilterSpec, hint search.SortHint, limit int, token string) (search.Batch, error) {
	if err := ctx.Err(); err != nil {
		return search.Batch{}, err
	}

	s.mu.RLock()
	matched := make([]search.Scored, 0, len(s.templates))
	for _, t := range s.templates {
		t := t
		if spec.Matches(&t) {
			matched = append(matched, search.Scored{Template: &t})
		}
	}
	s.mu.RUnlock()

	search.Rank(matched, search.Ordering{ByPopularity: hint.Popularity, Field: hint.Field, Order: hint.Order})

	offset := min(parseOffsetToken(token), len(matched))
	end := len(matched)
	if limit > 0 {
		end = min(offset+limit, len(matched))
	}

	batch := search.Batch{Templates: make([]models.Template, 0, end-offset)}
	for _, m := range matched[offset:end] {
		batch.Templates = append(batch.Templates, *m.Template)
	}
	if end < len(matched) {
		batch.NextToken = offsetToken(end)
	}
	return batch, nil
}

// GetTemplate looks up a template by ID
func (s *MemoryStore) GetTemplate(ctx context.Context, id string) (models.Template, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Template{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	return t, ok, nil
}

// SaveTemplates inserts or replaces templates by ID
func (s *MemoryStore) SaveTemplates(ctx context.Context, templates []models.Template) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range templates {
		s.templates[t.ID] = t
	}
	return nil
}

// TagCounts counts tags across publicly listed templates, most used first
func (s *MemoryStore) TagCounts(ctx context.Context) ([]TagCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	listed := search.FilterSpec{Scope: search.ScopePublic}

	s.mu.RLock()
	for _, t := range s.templates {
		t := t
		if !listed.Matches(&t) {
			continue
		}
		for _, tag := range models.CleanTags(t.Tags) {
			counts[tag]++
		}
	}
	s.mu.RUnlock()

	return sortTagCounts(counts), nil
}

// Count returns the number of stored templates
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates), nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

func sortTagCounts(counts map[string]int) []TagCount {
	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.Compare(out[i].Tag, out[j].Tag) < 0
	})
	return out
}
