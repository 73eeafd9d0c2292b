// Package api provides the RESTful HTTP interface to the template search service.
//
// SYSTEM ARCHITECTURE ROLE:
// This module is the HTTP boundary. It resolves the caller, applies rate limits,
// turns query strings into validated requests and renders results and errors as JSON.
// All business logic lives behind service.Service.
//
// INTEGRATION POINTS:
// - internal/service/service.go: every handler calls exactly one Service method
// - internal/validation: ParseSearchValues and RequestValidator guard the inputs
// - internal/errors/handlers.go: HTTPErrorHandler formats every failure
// - internal/auth: Resolver identifies the caller, Identity.Key keys the rate limiter
// - internal/ratelimit: Limiter is consulted before the engine runs
// - internal/api/openapi.go: self-documenting API at /api/docs and /api/openapi.json
//
// MIDDLEWARE STACK:
// - Request ID: generated or echoed in X-Request-ID
// - Logging: method, path, status and duration per request
// - CORS: configurable origin, preflight short-circuit
// - Content-Type: JSON by default
// - Recovery: panics become 500 responses
//
// ENDPOINT STRUCTURE:
// - GET /api/v1/templates: ranked, paginated search
// - GET /api/v1/templates/{id}: single template
// - GET /api/v1/tags: tag counts and suggestions
// - GET /api/v1/health: liveness plus template count
// - /api/docs, /api/openapi.json: documentation
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gravyprompts/gravyprompts/internal/auth"
	"github.com/gravyprompts/gravyprompts/internal/errors"
	"github.com/gravyprompts/gravyprompts/internal/log"
	"github.com/gravyprompts/gravyprompts/internal/models"
	"github.com/gravyprompts/gravyprompts/internal/ratelimit"
	"github.com/gravyprompts/gravyprompts/internal/service"
	"github.com/gravyprompts/gravyprompts/internal/storage"
	"github.com/gravyprompts/gravyprompts/internal/validation"
)

// RequestIDHeader carries the per-request id in both directions
const RequestIDHeader = "X-Request-ID"

// Options configures the server
type Options struct {
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	CORSOrigin          string
	Limits              validation.Limits
	Resolver            auth.Resolver
	Limiter             ratelimit.Limiter
	IncludeErrorDetails bool
}

// APIServer serves the HTTP API
type APIServer struct {
	service      *service.Service
	errorHandler *errors.HTTPErrorHandler
	idValidator  *validation.RequestValidator
	opts         Options
	server       *http.Server
	logger       *log.Logger
}

// NewAPIServer creates a new API server instance
func NewAPIServer(svc *service.Service, opts Options) *APIServer {
	if opts.Resolver == nil {
		opts.Resolver = auth.NewHeaderResolver("")
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if opts.Limits.Max <= 0 {
		opts.Limits.Max = models.MaxLimit
	}
	if opts.Limits.Default <= 0 {
		opts.Limits.Default = min(models.DefaultLimit, opts.Limits.Max)
	}

	errorHandler := errors.NewHTTPErrorHandler(opts.IncludeErrorDetails)
	return &APIServer{
		service:      svc,
		errorHandler: errorHandler,
		idValidator:  validation.NewRequestValidator(errorHandler, "id"),
		opts:         opts,
		logger:       log.ForService("api"),
	}
}

// Handler returns the routed handler with middleware applied
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/templates", s.withMiddleware(s.withRateLimit("search", s.handleSearch)))
	mux.HandleFunc("/api/v1/templates/{id}", s.withMiddleware(s.withRateLimit("read",
		s.idValidator.ValidateRequest("get_template")(s.handleGetTemplate))))
	mux.HandleFunc("/api/v1/tags", s.withMiddleware(s.withRateLimit("read", s.handleTags)))
	mux.HandleFunc("/api/v1/health", s.withMiddleware(s.handleHealth))

	mux.HandleFunc("/api/docs", s.withMiddleware(s.handleOpenAPI))
	mux.HandleFunc("/api/openapi.json", s.withMiddleware(s.handleOpenAPISpec))

	mux.HandleFunc("/", s.withMiddleware(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, errors.NotFoundError("route").WithContext("path", r.URL.Path))
	}))

	return mux
}

// Start begins serving HTTP requests. It blocks until the server stops.
func (s *APIServer) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.opts.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Infof("API server starting on http://localhost:%d", s.opts.Port)
	s.logger.Infof("OpenAPI documentation: http://localhost:%d/api/docs", s.opts.Port)

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Serve serves on an existing listener
func (s *APIServer) Serve(l net.Listener) error {
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}
	err := s.server.Serve(l)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server
func (s *APIServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// withMiddleware applies middleware to HTTP handlers
func (s *APIServer) withMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return s.requestIDMiddleware(
		s.loggingMiddleware(
			s.corsMiddleware(
				s.contentTypeMiddleware(
					s.errorMiddleware(handler),
				),
			),
		),
	)
}

// requestIDMiddleware echoes X-Request-ID, generating one when absent
func (s *APIServer) requestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs HTTP requests
func (s *APIServer) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.logger.Infof("[%s] %s %s %d %v id=%s", r.Method, r.URL.Path, r.RemoteAddr, rec.status,
			time.Since(start), r.Header.Get(RequestIDHeader))
	}
}

// corsMiddleware handles CORS headers
func (s *APIServer) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.opts.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// contentTypeMiddleware sets default content type
func (s *APIServer) contentTypeMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

// errorMiddleware turns panics into 500 responses
func (s *APIServer) errorMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Errorf("panic in handler: %v", err)
				s.writeError(w, errors.InternalError("Internal server error"))
			}
		}()
		next(w, r)
	}
}

// withRateLimit rejects callers over their budget for action with 429
func (s *APIServer) withRateLimit(action string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := s.opts.Resolver.Resolve(r)
		if !s.opts.Limiter.Allow(identity.Key(r), action) {
			w.Header().Set("Retry-After", "60")
			s.writeError(w, errors.RateLimitedError(action))
			return
		}
		next(w, r)
	}
}

// writeJSON writes v as an indented JSON body
func (s *APIServer) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrCodeInternalError, "Failed to encode response"))
		return
	}
	w.WriteHeader(statusCode)
	w.Write(data)
}

// writeError writes an error response using the error handler
func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	s.errorHandler.WriteHTTPError(w, err)
}

func (s *APIServer) requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		s.writeError(w, errors.MethodNotAllowedError(r.Method))
		return false
	}
	return true
}

// handleSearch handles GET /api/v1/templates
func (s *APIServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	req, err := s.service.Validator().ParseSearchValues(r.URL.Query(), s.opts.Limits)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.service.Search(r.Context(), req, s.opts.Resolver.Resolve(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// templateResponse is a full template plus the caller's relation to it
type templateResponse struct {
	models.Template
	IsOwner bool `json:"isOwner"`
}

// handleGetTemplate handles GET /api/v1/templates/{id}
func (s *APIServer) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	id, _ := validation.ValidatedData(r)["id"].(string)
	caller := s.opts.Resolver.Resolve(r)

	tmpl, err := s.service.GetTemplate(r.Context(), id, caller)
	if err != nil {
		s.writeError(w, err)
		return
	}

	owner := tmpl.IsOwnedBy(caller.UserID)
	if !owner {
		tmpl.AuthorEmail = ""
	}
	if tmpl.Tags == nil {
		tmpl.Tags = []string{}
	}
	if tmpl.VariableNames == nil {
		tmpl.VariableNames = []string{}
	}
	if tmpl.Visibility == "" {
		tmpl.Visibility = models.VisibilityPublic
	}
	s.writeJSON(w, http.StatusOK, templateResponse{Template: tmpl, IsOwner: owner})
}

type tagsResponse struct {
	Tags []storage.TagCount `json:"tags"`
}

// handleTags handles GET /api/v1/tags
func (s *APIServer) handleTags(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	query, limit, err := s.service.Validator().ParseTagQuery(validation.ValuesToMap(r.URL.Query()), s.opts.Limits)
	if err != nil {
		s.writeError(w, err)
		return
	}

	tags, err := s.service.ListTags(r.Context(), query, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tagsResponse{Tags: tags})
}

type healthResponse struct {
	Status    string    `json:"status"`
	Templates int       `json:"templates"`
	Timestamp time.Time `json:"timestamp"`
}

// handleHealth handles GET /api/v1/health
func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	n, err := s.service.Count(r.Context())
	if err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "Template store unavailable"))
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Templates: n, Timestamp: time.Now().UTC()})
}
