// Package validation/middleware wires schema validation into HTTP handlers.
//
// HTTP VALIDATION FLOW:
// 1. Request arrives at a ValidateRequest-wrapped handler
// 2. Query parameters and path values are collected into one map
// 3. The map is validated against the named schema
// 4. Invalid requests get a 400 with per-field details
// 5. Valid requests continue with the converted data in the request context
package validation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gravyprompts/gravyprompts/internal/errors"
)

type validatedKey struct{}

// RequestValidator provides middleware for HTTP request validation
type RequestValidator struct {
	validator  *Validator
	errHandler *errors.HTTPErrorHandler
	pathParams []string
}

// NewRequestValidator creates a request validator. pathParams names the
// route wildcards copied into the validated data, e.g. "id" for
// /api/v1/templates/{id}.
func NewRequestValidator(errHandler *errors.HTTPErrorHandler, pathParams ...string) *RequestValidator {
	if errHandler == nil {
		errHandler = errors.NewHTTPErrorHandler(false)
	}
	return &RequestValidator{
		validator:  NewValidator(),
		errHandler: errHandler,
		pathParams: pathParams,
	}
}

// ValidateRequest validates requests against schemaName before calling next
func (rv *RequestValidator) ValidateRequest(schemaName string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			result := rv.validator.Validate(schemaName, rv.extractRequestData(r))
			if !result.Valid {
				rv.errHandler.WriteHTTPError(w, result.ToAppError())
				return
			}
			ctx := context.WithValue(r.Context(), validatedKey{}, result.GetValidatedData())
			next(w, r.WithContext(ctx))
		}
	}
}

// ValidatedData returns the data stored by ValidateRequest, or nil
func ValidatedData(r *http.Request) map[string]interface{} {
	data, _ := r.Context().Value(validatedKey{}).(map[string]interface{})
	return data
}

func (rv *RequestValidator) extractRequestData(r *http.Request) map[string]interface{} {
	data := ValuesToMap(r.URL.Query())
	for _, name := range rv.pathParams {
		if value := r.PathValue(name); value != "" {
			data[name] = value
		}
	}
	return data
}

// GetValidator returns the underlying validator instance
func (rv *RequestValidator) GetValidator() *Validator {
	return rv.validator
}

// SanitizeString removes control characters other than newlines and tabs
func SanitizeString(input string) string {
	var result strings.Builder
	for _, r := range input {
		if r == '\n' || r == '\t' || r == '\r' || r >= 32 {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateTag checks a tag supplied on import: letters, digits, spaces,
// hyphens and underscores, at most 50 characters.
func ValidateTag(tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return errors.ValidationError("Tag cannot be empty")
	}
	if utf8.RuneCountInString(tag) > 50 {
		return errors.ValidationError("Tag too long (max 50 characters)")
	}
	for _, r := range tag {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && r != '-' && r != '_' {
			return errors.ValidationError(fmt.Sprintf("Tag %q contains invalid character %q", tag, r))
		}
	}
	return nil
}

// ValidateTags validates a list of tags
func ValidateTags(tags []string) error {
	if len(tags) > 20 {
		return errors.ValidationError("Too many tags (max 20)")
	}
	for i, tag := range tags {
		if err := ValidateTag(tag); err != nil {
			return errors.Wrap(err, errors.ErrCodeValidation, fmt.Sprintf("Tag at position %d: %s", i, errors.GetAppError(err).Message))
		}
	}
	return nil
}
