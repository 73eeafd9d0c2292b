package validation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravyprompts/gravyprompts/internal/errors"
	"github.com/gravyprompts/gravyprompts/internal/models"
)

var testLimits = Limits{Default: 20, Max: 100}

func TestParseSearchRequestDefaults(t *testing.T) {
	v := NewValidator()

	req, err := v.ParseSearchRequest(map[string]interface{}{}, testLimits)
	require.NoError(t, err)

	assert.Equal(t, models.SearchRequest{
		Filter:    models.FilterPublic,
		SortBy:    models.SortCreatedAt,
		SortOrder: models.SortDesc,
		Limit:     20,
	}, req)
}

func TestParseSearchRequestAllFields(t *testing.T) {
	v := NewValidator()

	values := url.Values{
		"search":    {"email marketing"},
		"tag":       {"  sales "},
		"filter":    {"mine"},
		"sortBy":    {"useCount"},
		"sortOrder": {"asc"},
		"nextToken": {"abc"},
		"limit":     {"5"},
	}
	req, err := v.ParseSearchValues(values, testLimits)
	require.NoError(t, err)

	assert.Equal(t, "email marketing", req.Query)
	assert.Equal(t, "sales", req.Tag)
	assert.Equal(t, models.FilterMine, req.Filter)
	assert.Equal(t, models.SortUseCount, req.SortBy)
	assert.True(t, req.SortExplicit)
	assert.Equal(t, models.SortAsc, req.SortOrder)
	assert.Equal(t, "abc", req.Cursor)
	assert.Equal(t, 5, req.Limit)
}

func TestParseSearchRequestLimitIsLenient(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name  string
		limit interface{}
		want  int
	}{
		{"missing", nil, 20},
		{"not a number", "lots", 20},
		{"empty", "", 20},
		{"zero", "0", 1},
		{"negative", "-3", 1},
		{"negative int", -3, 1},
		{"one", "1", 1},
		{"above max", "500", 100},
		{"float", 7.0, 7},
		{"padded", " 12 ", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := map[string]interface{}{}
			if tt.limit != nil {
				data["limit"] = tt.limit
			}
			req, err := v.ParseSearchRequest(data, testLimits)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Limit)
		})
	}
}

func TestParseSearchRequestRejectsUnknownEnums(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		field string
		value string
	}{
		{"filter", "everything"},
		{"sortBy", "score"},
		{"sortOrder", "sideways"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := v.ParseSearchRequest(map[string]interface{}{tt.field: tt.value}, testLimits)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
			assert.Contains(t, errors.GetAppError(err).Details, tt.field)
		})
	}
}

func TestParseSearchRequestTooLongQuery(t *testing.T) {
	v := NewValidator()

	_, err := v.ParseSearchRequest(map[string]interface{}{"search": strings.Repeat("é", 501)}, testLimits)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 500")

	_, err = v.ParseSearchRequest(map[string]interface{}{"search": strings.Repeat("é", 500)}, testLimits)
	assert.NoError(t, err)
}

func TestValidateCollectsEveryError(t *testing.T) {
	v := NewValidator()

	result := v.Validate("search_templates", map[string]interface{}{
		"filter": "nope",
		"sortBy": "nope",
	})
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "filter", result.Errors[0].Field)
	assert.Equal(t, "sortBy", result.Errors[1].Field)
	assert.Nil(t, result.GetValidatedData())
}

func TestValidateUnknownSchema(t *testing.T) {
	result := NewValidator().Validate("missing", nil)
	assert.False(t, result.Valid)
	assert.Equal(t, "SCHEMA_NOT_FOUND", result.Errors[0].Code)
}

func TestValidateTemplateID(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateTemplateID("3f0e9a1c-5b1d-5b8e-9c4e-1a2b3c4d5e6f"))
	assert.Error(t, v.ValidateTemplateID(""))
	assert.Error(t, v.ValidateTemplateID("../etc/passwd"))
	assert.Error(t, v.ValidateTemplateID(strings.Repeat("a", 201)))
}

func TestParseTagQuery(t *testing.T) {
	v := NewValidator()

	q, limit, err := v.ParseTagQuery(map[string]interface{}{"q": " mark\x00 ", "limit": "3"}, testLimits)
	require.NoError(t, err)
	assert.Equal(t, "mark", q)
	assert.Equal(t, 3, limit)
}

func TestValidateTags(t *testing.T) {
	assert.NoError(t, ValidateTags([]string{"email", "code review", "sales_ops", "café"}))

	err := ValidateTags([]string{"ok", "bad/tag"})
	require.Error(t, err)
	assert.Contains(t, errors.GetAppError(err).Message, "position 1")

	assert.Error(t, ValidateTag(strings.Repeat("x", 51)))
	assert.Error(t, ValidateTag("  "))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "a\tb\nc", SanitizeString("  a\tb\x07\nc\x00 "))
}

func TestValidateRequestMiddleware(t *testing.T) {
	rv := NewRequestValidator(nil, "id")

	var seen map[string]interface{}
	handler := rv.ValidateRequest("get_template")(func(w http.ResponseWriter, r *http.Request) {
		seen = ValidatedData(r)
		w.WriteHeader(http.StatusNoContent)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/templates/{id}", handler)

	t.Run("valid id reaches handler", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/templates/abc-123", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "abc-123", seen["id"])
	})

	t.Run("invalid id is rejected", func(t *testing.T) {
		seen = nil
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/templates/a.b", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, seen)

		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	})
}
