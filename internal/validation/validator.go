// Package validation checks user input before it reaches the search engine.
//
// SYSTEM ARCHITECTURE ROLE:
// This is the typed boundary of the system. Raw parameters from HTTP query
// strings and CLI flags are validated against named schemas and converted to
// typed requests; anything the engine sees has already been defaulted and clamped.
//
// KEY RESPONSIBILITIES:
// - Define validation schemas for every API and CLI input
// - Reject unknown enum values (filter, sortBy, sortOrder) with field-specific errors
// - Apply lenient rules where the contract asks for them (limit is clamped, never rejected)
// - Sanitize free text
//
// INTEGRATION POINTS:
// - internal/validation/request.go: ParseSearchRequest builds models.SearchRequest
// - internal/validation/middleware.go: RequestValidator wraps HTTP handlers
// - internal/errors/errors.go: ValidationResult.ToAppError() converts failures to AppError
// - internal/cli: CLI flags go through the same schemas
//
// VALIDATION FLOW:
// 1. Interface collects raw parameters into a map
// 2. Validator checks them against a schema
// 3. Failures become a single VALIDATION_ERROR listing every bad field
// 4. Valid data is converted into a typed request
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gravyprompts/gravyprompts/internal/errors"
	"github.com/gravyprompts/gravyprompts/internal/models"
)

// FieldType names the type a field converts to
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeBool   FieldType = "bool"
)

// FieldValidator provides validation rules for individual fields
type FieldValidator struct {
	Name      string
	Required  bool
	Type      FieldType
	MaxLength int // in runes
	Pattern   *regexp.Regexp
	Options   []string
	Custom    func(interface{}) error
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool                   `json:"valid"`
	Errors []ValidationError      `json:"errors,omitempty"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Schema represents a validation schema
type Schema struct {
	Name   string
	Fields map[string]FieldValidator
}

// Validator holds the registered schemas
type Validator struct {
	schemas map[string]*Schema
}

// NewValidator creates a validator with the built-in schemas registered
func NewValidator() *Validator {
	v := &Validator{schemas: make(map[string]*Schema)}
	v.registerBuiltinSchemas()
	return v
}

// RegisterSchema registers a validation schema
func (v *Validator) RegisterSchema(schema *Schema) {
	v.schemas[schema.Name] = schema
}

// Validate validates data against a schema. Fields are checked in name
// order so error lists are stable.
func (v *Validator) Validate(schemaName string, data map[string]interface{}) *ValidationResult {
	schema, exists := v.schemas[schemaName]
	if !exists {
		return &ValidationResult{
			Errors: []ValidationError{{
				Field:   "schema",
				Code:    "SCHEMA_NOT_FOUND",
				Message: fmt.Sprintf("Validation schema '%s' not found", schemaName),
			}},
		}
	}

	result := &ValidationResult{Valid: true, Data: make(map[string]interface{})}

	names := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v.validateField(name, schema.Fields[name], data, result)
	}
	return result
}

func (r *ValidationResult) fail(field, code, message string, value interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Code: code, Message: message, Value: value})
}

func (v *Validator) validateField(fieldName string, validator FieldValidator, data map[string]interface{}, result *ValidationResult) {
	value, exists := data[fieldName]
	empty := !exists || value == nil || value == ""

	if empty {
		if validator.Required {
			result.fail(fieldName, "REQUIRED_FIELD_MISSING", fmt.Sprintf("Field '%s' is required", fieldName), nil)
		}
		return
	}

	converted, err := convert(fieldName, validator.Type, value)
	if err != nil {
		result.fail(fieldName, "INVALID_TYPE", err.Error(), value)
		return
	}

	if s, ok := converted.(string); ok {
		if validator.MaxLength > 0 && utf8.RuneCountInString(s) > validator.MaxLength {
			result.fail(fieldName, "MAX_LENGTH_VIOLATION",
				fmt.Sprintf("Field '%s' must be at most %d characters long", fieldName, validator.MaxLength), s)
			return
		}
		if validator.Pattern != nil && !validator.Pattern.MatchString(s) {
			result.fail(fieldName, "PATTERN_MISMATCH",
				fmt.Sprintf("Field '%s' does not match required pattern", fieldName), s)
			return
		}
		if len(validator.Options) > 0 && !contains(validator.Options, s) {
			result.fail(fieldName, "INVALID_OPTION",
				fmt.Sprintf("Field '%s' must be one of: %s", fieldName, strings.Join(validator.Options, ", ")), s)
			return
		}
	}

	if validator.Custom != nil {
		if err := validator.Custom(converted); err != nil {
			result.fail(fieldName, "CUSTOM_VALIDATION_FAILED", fmt.Sprintf("Field '%s': %s", fieldName, err.Error()), converted)
			return
		}
	}

	result.Data[fieldName] = converted
}

func contains(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

func convert(fieldName string, expected FieldType, value interface{}) (interface{}, error) {
	switch expected {
	case TypeInt:
		switch val := value.(type) {
		case int:
			return val, nil
		case float64:
			return int(val), nil
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
				return n, nil
			}
		}
		return nil, fmt.Errorf("field '%s' must be an integer", fieldName)

	case TypeBool:
		switch val := value.(type) {
		case bool:
			return val, nil
		case string:
			if b, err := strconv.ParseBool(val); err == nil {
				return b, nil
			}
		}
		return nil, fmt.Errorf("field '%s' must be a boolean", fieldName)

	default:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", value), nil
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func (v *Validator) registerBuiltinSchemas() {
	v.RegisterSchema(&Schema{
		Name: "search_templates",
		Fields: map[string]FieldValidator{
			"search": {
				Name:      "search",
				Type:      TypeString,
				MaxLength: 500,
			},
			"tag": {
				Name:      "tag",
				Type:      TypeString,
				MaxLength: 100,
			},
			"filter": {
				Name:    "filter",
				Type:    TypeString,
				Options: []string{string(models.FilterPublic), string(models.FilterMine), string(models.FilterPopular), string(models.FilterAll)},
			},
			"sortBy": {
				Name:    "sortBy",
				Type:    TypeString,
				Options: []string{string(models.SortCreatedAt), string(models.SortViewCount), string(models.SortUseCount)},
			},
			"sortOrder": {
				Name:    "sortOrder",
				Type:    TypeString,
				Options: []string{string(models.SortAsc), string(models.SortDesc)},
			},
			"nextToken": {
				Name: "nextToken",
				Type: TypeString,
			},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "get_template",
		Fields: map[string]FieldValidator{
			"id": {
				Name:      "id",
				Type:      TypeString,
				Required:  true,
				MaxLength: 200,
				Pattern:   identifierPattern,
			},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "list_tags",
		Fields: map[string]FieldValidator{
			"q": {
				Name:      "q",
				Type:      TypeString,
				MaxLength: 100,
			},
		},
	})
}

// ToAppError converts a failed result into a single validation AppError
func (result *ValidationResult) ToAppError() *errors.AppError {
	if result.Valid {
		return nil
	}
	if len(result.Errors) == 0 {
		return errors.ValidationError("Validation failed")
	}

	appErr := errors.ValidationError(result.Errors[0].Message)

	var details []string
	for _, validationErr := range result.Errors {
		details = append(details, fmt.Sprintf("%s: %s", validationErr.Field, validationErr.Message))
	}
	appErr.WithDetails(strings.Join(details, "; "))
	appErr.WithContext("validation_errors", result.Errors)

	return appErr
}

// GetValidatedData returns the converted data of a valid result
func (result *ValidationResult) GetValidatedData() map[string]interface{} {
	if !result.Valid {
		return nil
	}
	return result.Data
}
