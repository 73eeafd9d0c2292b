// Package search implements relevance-ranked template search.
//
// SYSTEM ARCHITECTURE ROLE:
// The engine sits between the transports (HTTP API, CLI) and the Store. It
// never indexes anything: every call pulls bounded candidate batches from
// the Store, scores and ranks them in memory, and hands back one page plus
// an opaque continuation token.
//
// KEY RESPONSIBILITIES:
// - Normalise free-text queries into terms
// - Score candidates on title, tags, content position, variable names and popularity
// - Order results deterministically, ties broken by ID
// - Resume pagination from a token without server-side state
//
// INTEGRATION POINTS:
// - internal/storage: MemoryStore and SQLiteStore implement Store
// - internal/service/service.go: Service.Search is the facade the interfaces call
// - internal/renderer: builds the content preview for each result
package search

import (
	"context"
	"time"

	"github.com/gravyprompts/gravyprompts/internal/auth"
	"github.com/gravyprompts/gravyprompts/internal/errors"
	"github.com/gravyprompts/gravyprompts/internal/log"
	"github.com/gravyprompts/gravyprompts/internal/models"
	"github.com/gravyprompts/gravyprompts/internal/renderer"
)

// Options tunes the engine
type Options struct {
	DefaultLimit      int
	MaxLimit          int
	MaxFetchesPerPage int
	FetchTimeout      time.Duration
	PreviewLength     int
}

// DefaultOptions returns the stock engine settings
func DefaultOptions() Options {
	return Options{
		DefaultLimit:      models.DefaultLimit,
		MaxLimit:          models.MaxLimit,
		MaxFetchesPerPage: 5,
		FetchTimeout:      5 * time.Second,
		PreviewLength:     renderer.DefaultPreviewLength,
	}
}

// Engine runs searches against a Store. It holds no per-request state and
// is safe for concurrent use.
type Engine struct {
	store  Store
	opts   Options
	logger *log.Logger
}

// NewEngine creates an engine over store. Zero option fields take defaults.
func NewEngine(store Store, opts Options) *Engine {
	def := DefaultOptions()
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = def.MaxLimit
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = min(def.DefaultLimit, opts.MaxLimit)
	}
	if opts.MaxFetchesPerPage <= 0 {
		opts.MaxFetchesPerPage = def.MaxFetchesPerPage
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = def.PreviewLength
	}
	return &Engine{store: store, opts: opts, logger: log.ForService("search")}
}

// plan is a request resolved into what the Store and ranker need
type plan struct {
	terms     []string
	spec      FilterSpec
	hint      SortHint
	ordering  Ordering
	limit     int
	batchSize int
	empty     bool
}

func (e *Engine) plan(req models.SearchRequest, caller auth.Identity) plan {
	p := plan{
		terms: NormalizeQuery(req.Query),
		limit: models.ClampLimit(req.Limit, e.opts.DefaultLimit, e.opts.MaxLimit),
	}

	p.spec = FilterSpec{Tag: req.Tag}
	switch req.Filter {
	case models.FilterMine:
		if caller.Anonymous() {
			p.empty = true
		}
		p.spec.Scope = ScopeOwned
		p.spec.UserID = caller.UserID
	case models.FilterAll:
		if !caller.Anonymous() {
			p.spec.Scope = ScopePublicOrOwned
			p.spec.UserID = caller.UserID
		}
	}

	field, order := req.SortBy, req.SortOrder
	if field == "" {
		field = models.SortCreatedAt
	}
	if order == "" {
		order = models.SortDesc
	}
	popular := req.Filter == models.FilterPopular && !req.SortExplicit

	p.ordering = Ordering{Field: field, Order: order}
	switch {
	case len(p.terms) > 0:
		p.ordering.ByScore = true
		p.hint = SortHint{Popularity: true}
	case popular:
		p.ordering.ByPopularity = true
		p.hint = SortHint{Popularity: true}
	default:
		p.hint = SortHint{Field: field, Order: order}
	}

	p.batchSize = p.limit
	if p.ordering.ByScore || p.ordering.ByPopularity {
		p.batchSize = 2 * p.limit
	}
	return p
}

// Search returns one page of results for req as seen by caller.
//
// Each store batch is ranked on its own and paged through with an offset;
// the returned token records the batch's store token and the offset reached.
// A page may draw on several batches to fill the limit, up to
// MaxFetchesPerPage, and may come back short with a token when that bound is hit.
func (e *Engine) Search(ctx context.Context, req models.SearchRequest, caller auth.Identity) (models.SearchResult, error) {
	p := e.plan(req, caller)
	result := models.SearchResult{Items: []models.ResultItem{}}
	if p.empty {
		return result, nil
	}

	fingerprint := requestFingerprint(p.terms, p.spec, p.ordering, p.limit)
	storeToken, offset := "", 0
	if c, ok := decodeCursor(req.Cursor, fingerprint); ok {
		storeToken, offset = c.StoreToken, c.Offset
	} else if req.Cursor != "" {
		e.logger.Debugf("ignoring stale or malformed cursor")
	}

	for fetches := 0; ; fetches++ {
		if fetches == e.opts.MaxFetchesPerPage {
			result.NextToken = encodeCursor(cursor{StoreToken: storeToken, Offset: offset, Fingerprint: fingerprint})
			break
		}

		batch, err := e.fetch(ctx, p, storeToken)
		if err != nil {
			return models.SearchResult{}, errors.RetrievalError(err)
		}

		ranked := e.rankBatch(p, batch.Templates)
		offset = min(offset, len(ranked))
		end := min(offset+p.limit-len(result.Items), len(ranked))
		for _, s := range ranked[offset:end] {
			result.Items = append(result.Items, e.toItem(s, p, caller))
		}

		if end < len(ranked) {
			result.NextToken = encodeCursor(cursor{StoreToken: storeToken, Offset: end, Fingerprint: fingerprint})
			break
		}
		if batch.NextToken == "" {
			break
		}
		storeToken, offset = batch.NextToken, 0
		if len(result.Items) == p.limit {
			result.NextToken = encodeCursor(cursor{StoreToken: storeToken, Fingerprint: fingerprint})
			break
		}
	}

	e.logger.Debugf("query=%q terms=%d returned=%d more=%t", req.Query, len(p.terms), len(result.Items), result.NextToken != "")
	return result, nil
}

func (e *Engine) fetch(ctx context.Context, p plan, token string) (Batch, error) {
	if e.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.FetchTimeout)
		defer cancel()
	}
	return e.store.FetchCandidates(ctx, p.spec, p.hint, p.batchSize, token)
}

func (e *Engine) rankBatch(p plan, templates []models.Template) []Scored {
	ranked := make([]Scored, 0, len(templates))
	for i := range templates {
		t := &templates[i]
		if len(p.terms) == 0 {
			ranked = append(ranked, Scored{Template: t})
			continue
		}
		score, ok := Aggregate(p.terms, t)
		if !ok {
			continue
		}
		ranked = append(ranked, Scored{Template: t, Score: score})
	}
	Rank(ranked, p.ordering)
	return ranked
}

func (e *Engine) toItem(s Scored, p plan, caller auth.Identity) models.ResultItem {
	t := s.Template
	item := models.ResultItem{
		ID:            t.ID,
		Title:         t.Title,
		Preview:       renderer.Preview(t.Content, t.Format, e.opts.PreviewLength),
		Tags:          nonNil(t.Tags),
		VariableNames: nonNil(t.VariableNames),
		Visibility:    t.Visibility,
		CreatedAt:     t.CreatedAt,
		ViewCount:     t.ViewCount,
		UseCount:      t.UseCount,
		IsOwner:       t.IsOwnedBy(caller.UserID),
	}
	if item.Visibility == "" {
		item.Visibility = models.VisibilityPublic
	}
	if p.ordering.ByScore {
		score := s.Score
		item.Score = &score
	}
	return item
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Get returns a single template when caller may see it
func (e *Engine) Get(ctx context.Context, id string, caller auth.Identity) (models.Template, error) {
	t, ok, err := e.store.GetTemplate(ctx, id)
	if err != nil {
		return models.Template{}, errors.RetrievalError(err)
	}
	if !ok || !CanView(&t, caller.UserID) {
		return models.Template{}, errors.NotFoundError("template").WithContext("id", id)
	}
	return t, nil
}
