package validation

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gravyprompts/gravyprompts/internal/models"
)

// Limits bounds the page size accepted from callers
type Limits struct {
	Default int
	Max     int
}

// ValuesToMap flattens query parameters. Repeated keys keep their first value.
func ValuesToMap(values url.Values) map[string]interface{} {
	data := make(map[string]interface{}, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			data[key] = vals[0]
		}
	}
	return data
}

// ParseSearchRequest validates raw search parameters and builds the typed
// request. Unknown filter or sort values are rejected; limit never is.
func (v *Validator) ParseSearchRequest(data map[string]interface{}, limits Limits) (models.SearchRequest, error) {
	result := v.Validate("search_templates", data)
	if !result.Valid {
		return models.SearchRequest{}, result.ToAppError()
	}
	valid := result.GetValidatedData()

	req := models.SearchRequest{
		Query:     stringField(valid, "search"),
		Tag:       strings.TrimSpace(stringField(valid, "tag")),
		Filter:    models.Filter(stringField(valid, "filter")),
		SortBy:    models.SortField(stringField(valid, "sortBy")),
		SortOrder: models.SortOrder(stringField(valid, "sortOrder")),
		Cursor:    stringField(valid, "nextToken"),
		Limit:     parseLimit(data["limit"], limits),
	}

	if req.Filter == "" {
		req.Filter = models.FilterPublic
	}
	req.SortExplicit = req.SortBy != ""
	if req.SortBy == "" {
		req.SortBy = models.SortCreatedAt
	}
	if req.SortOrder == "" {
		req.SortOrder = models.SortDesc
	}
	return req, nil
}

// ParseSearchValues is ParseSearchRequest for URL query parameters
func (v *Validator) ParseSearchValues(values url.Values, limits Limits) (models.SearchRequest, error) {
	return v.ParseSearchRequest(ValuesToMap(values), limits)
}

// ParseTagQuery validates a tag listing request and returns the prefix
// filter and the clamped limit.
func (v *Validator) ParseTagQuery(data map[string]interface{}, limits Limits) (string, int, error) {
	result := v.Validate("list_tags", data)
	if !result.Valid {
		return "", 0, result.ToAppError()
	}
	q := SanitizeString(stringField(result.GetValidatedData(), "q"))
	return q, parseLimit(data["limit"], limits), nil
}

// ValidateTemplateID checks a template identifier from a path or argument
func (v *Validator) ValidateTemplateID(id string) error {
	result := v.Validate("get_template", map[string]interface{}{"id": strings.TrimSpace(id)})
	if !result.Valid {
		return result.ToAppError()
	}
	return nil
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

// parseLimit never rejects a limit. A missing or non-numeric value takes the
// default; a number is clamped into [1, limits.Max].
func parseLimit(value interface{}, limits Limits) int {
	n, ok := lenientInt(value)
	if !ok {
		return models.ClampLimit(0, limits.Default, limits.Max)
	}
	return models.ClampLimit(max(n, 1), limits.Default, limits.Max)
}

func lenientInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
