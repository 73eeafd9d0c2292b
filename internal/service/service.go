// Package service is the facade both interfaces talk to.
//
// SYSTEM ARCHITECTURE ROLE:
// The HTTP API and the CLI never reach into the engine or the store directly.
// Service owns the repository, the search engine and the seed importer, and
// exposes one method per user-facing operation.
//
// INTEGRATION POINTS:
// - internal/search/engine.go: Search and GetTemplate delegate to Engine
// - internal/storage: Repository supplies candidates, tag counts and persistence
// - internal/importer/seed.go: Import consolidates seed files before saving
// - internal/api/server.go, internal/cli: the two callers
package service

import (
	"context"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/gravyprompts/gravyprompts/internal/auth"
	"github.com/gravyprompts/gravyprompts/internal/errors"
	"github.com/gravyprompts/gravyprompts/internal/importer"
	"github.com/gravyprompts/gravyprompts/internal/log"
	"github.com/gravyprompts/gravyprompts/internal/models"
	"github.com/gravyprompts/gravyprompts/internal/search"
	"github.com/gravyprompts/gravyprompts/internal/storage"
	"github.com/gravyprompts/gravyprompts/internal/validation"
)

// Service provides the template search operations
type Service struct {
	repo      storage.Repository
	engine    *search.Engine
	importer  *importer.SeedImporter
	validator *validation.Validator
	logger    *log.Logger
}

// NewService creates a service over repo
func NewService(repo storage.Repository, opts search.Options) *Service {
	return &Service{
		repo:      repo,
		engine:    search.NewEngine(repo, opts),
		importer:  importer.NewSeedImporter(),
		validator: validation.NewValidator(),
		logger:    log.ForService("service"),
	}
}

// Validator returns the validator shared by both interfaces
func (s *Service) Validator() *validation.Validator {
	return s.validator
}

// Search runs one page of a ranked search
func (s *Service) Search(ctx context.Context, req models.SearchRequest, caller auth.Identity) (models.SearchResult, error) {
	return s.engine.Search(ctx, req, caller)
}

// GetTemplate returns a template the caller may see
func (s *Service) GetTemplate(ctx context.Context, id string, caller auth.Identity) (models.Template, error) {
	id = strings.TrimSpace(id)
	if err := s.validator.ValidateTemplateID(id); err != nil {
		return models.Template{}, err
	}
	return s.engine.Get(ctx, id, caller)
}

// tagSource lets sahilm/fuzzy match over tag names
type tagSource []storage.TagCount

func (t tagSource) String(i int) string { return t[i].Tag }
func (t tagSource) Len() int            { return len(t) }

// ListTags returns public tags with their counts, most used first. A
// non-empty query keeps only tags that fuzzily match it, best match first.
func (s *Service) ListTags(ctx context.Context, query string, limit int) ([]storage.TagCount, error) {
	counts, err := s.repo.TagCounts(ctx)
	if err != nil {
		return nil, errors.RetrievalError(err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query != "" {
		matches := fuzzy.FindFrom(query, tagSource(counts))
		suggested := make([]storage.TagCount, 0, len(matches))
		for _, match := range matches {
			suggested = append(suggested, counts[match.Index])
		}
		counts = suggested
	}

	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	if counts == nil {
		counts = []storage.TagCount{}
	}
	return counts, nil
}

// Import reads seed files and, unless DryRun is set, saves the
// consolidated templates.
func (s *Service) Import(ctx context.Context, options importer.ImportOptions) (*importer.ImportResult, error) {
	if len(options.Tags) > 0 {
		if err := validation.ValidateTags(options.Tags); err != nil {
			return nil, err
		}
	}

	result, err := s.importer.Import(ctx, options)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Import failed")
	}
	for _, importErr := range result.Errors {
		s.logger.Warnf("%v", importErr)
	}

	if options.DryRun {
		s.logger.Infof("dry run: %d templates not saved", result.Unique)
		return result, nil
	}

	if err := s.repo.SaveTemplates(ctx, result.Templates); err != nil {
		return nil, errors.StorageError("save templates", err)
	}
	s.logger.Infof("saved %d templates", result.Unique)
	return result, nil
}

// Count returns the number of stored templates
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, errors.RetrievalError(err)
	}
	return n, nil
}

// Close releases the repository
func (s *Service) Close() error {
	return s.repo.Close()
}
