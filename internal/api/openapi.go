// Package api/openapi serves the OpenAPI 3.0 description of the HTTP API.
//
// The document is built in code so it stays next to the handlers it
// describes. Parameter enums mirror the validation schemas in
// internal/validation/validator.go.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gravyprompts/gravyprompts/internal/models"
)

const docsPage = `<!DOCTYPE html>
<html>
<head>
    <title>Gravyprompts API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui.css" />
    <style>
        body { margin:0; background: #fafafa; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: '/api/openapi.json',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis]
            });
        };
    </script>
</body>
</html>`

// handleOpenAPI serves the documentation page
func (s *APIServer) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(docsPage))
}

// handleOpenAPISpec serves the OpenAPI JSON document
func (s *APIServer) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(getOpenAPISpec())
}

func queryParam(name, description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

func jsonContent(ref string) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{
			"schema": map[string]interface{}{"$ref": "#/components/schemas/" + ref},
		},
	}
}

func errorResponse(description string) map[string]interface{} {
	return map[string]interface{}{"description": description, "content": jsonContent("ErrorResponse")}
}

// getOpenAPISpec returns the OpenAPI 3.0 specification
func getOpenAPISpec() map[string]interface{} {
	stringSchema := map[string]interface{}{"type": "string"}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Gravyprompts API",
			"description": "Relevance-ranked search over shared prompt templates",
			"version":     "1.0.0",
		},
		"servers": []map[string]interface{}{
			{"url": "/api/v1"},
		},
		"paths": map[string]interface{}{
			"/templates": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Search templates",
					"description": "Returns one page of templates. With a search query results are ordered by relevance; " +
						"otherwise by the requested field. Pass nextToken from a previous page to continue.",
					"parameters": []map[string]interface{}{
						queryParam("search", "Free-text query", map[string]interface{}{"type": "string", "maxLength": 500}),
						queryParam("tag", "Only templates carrying this tag", stringSchema),
						queryParam("filter", "Which templates to search", map[string]interface{}{
							"type": "string", "default": string(models.FilterPublic),
							"enum": []string{string(models.FilterPublic), string(models.FilterMine), string(models.FilterPopular), string(models.FilterAll)},
						}),
						queryParam("sortBy", "Sort field when no search query is given", map[string]interface{}{
							"type": "string", "default": string(models.SortCreatedAt),
							"enum": []string{string(models.SortCreatedAt), string(models.SortViewCount), string(models.SortUseCount)},
						}),
						queryParam("sortOrder", "Sort direction", map[string]interface{}{
							"type": "string", "default": string(models.SortDesc),
							"enum": []string{string(models.SortAsc), string(models.SortDesc)},
						}),
						queryParam("limit", "Page size, clamped to [1, 100]", map[string]interface{}{
							"type": "integer", "default": models.DefaultLimit, "minimum": 1, "maximum": models.MaxLimit,
						}),
						queryParam("nextToken", "Opaque continuation token", stringSchema),
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "One page of results", "content": jsonContent("SearchResult")},
						"400": errorResponse("Invalid filter or sort parameter"),
						"429": errorResponse("Rate limit exceeded"),
						"502": errorResponse("Template store failed"),
					},
				},
			},
			"/templates/{id}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Get a template",
					"parameters": []map[string]interface{}{
						{"name": "id", "in": "path", "required": true, "schema": stringSchema},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "The template", "content": jsonContent("Template")},
						"404": errorResponse("No such template, or not visible to the caller"),
					},
				},
			},
			"/tags": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "List tags",
					"parameters": []map[string]interface{}{
						queryParam("q", "Fuzzy tag prefix", stringSchema),
						queryParam("limit", "Maximum tags returned", map[string]interface{}{"type": "integer"}),
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Tags with counts", "content": jsonContent("TagsResponse")},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Service is healthy"},
						"503": errorResponse("Store unavailable"),
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"ResultItem": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":            stringSchema,
						"title":         stringSchema,
						"preview":       stringSchema,
						"tags":          map[string]interface{}{"type": "array", "items": stringSchema},
						"variableNames": map[string]interface{}{"type": "array", "items": stringSchema},
						"visibility":    map[string]interface{}{"type": "string", "enum": []string{"public", "private"}},
						"createdAt":     map[string]interface{}{"type": "string", "format": "date-time"},
						"viewCount":     map[string]interface{}{"type": "integer"},
						"useCount":      map[string]interface{}{"type": "integer"},
						"isOwner":       map[string]interface{}{"type": "boolean"},
						"score":         map[string]interface{}{"type": "integer", "description": "Present for relevance-ordered results"},
					},
				},
				"SearchResult": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"items":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"$ref": "#/components/schemas/ResultItem"}},
						"nextToken": stringSchema,
					},
				},
				"Template": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":            stringSchema,
						"title":         stringSchema,
						"content":       stringSchema,
						"format":        stringSchema,
						"tags":          map[string]interface{}{"type": "array", "items": stringSchema},
						"variableNames": map[string]interface{}{"type": "array", "items": stringSchema},
						"visibility":    stringSchema,
						"isOwner":       map[string]interface{}{"type": "boolean"},
					},
				},
				"TagsResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"tags": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"tag":   stringSchema,
									"count": map[string]interface{}{"type": "integer"},
								},
							},
						},
					},
				},
				"ErrorResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"code":      stringSchema,
								"message":   stringSchema,
								"details":   stringSchema,
								"retryable": map[string]interface{}{"type": "boolean"},
							},
						},
					},
				},
			},
		},
	}
}
