package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"none", "plain text", nil},
		{"ordered distinct", "[[b]] then [[a]] and [[b]] again", []string{"b", "a"}},
		{"trims", "Hi [[ first name ]]", []string{"first name"}},
		{"ignores single brackets", "[not] a [[var]]", []string{"var"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractVariables(tt.content))
		})
	}
}

func TestFillVariables(t *testing.T) {
	content := "Hi [[ name ]], about [[company]] and [[name]]"
	assert.Equal(t, "Hi Ada, about [[company]] and Ada", FillVariables(content, map[string]string{"name": "Ada"}))
	assert.Equal(t, content, FillVariables(content, nil))
	assert.Equal(t, "[[]] stays", FillVariables("[[]] stays", map[string]string{"": "x"}))
}

func TestCleanTags(t *testing.T) {
	assert.Equal(t, []string{"email", "sales"}, CleanTags([]string{" Email", "SALES", "email", ""}))
	assert.Equal(t, []string{}, CleanTags(nil))
}

func TestTemplateVisibility(t *testing.T) {
	assert.True(t, (&Template{}).IsPublic())
	assert.False(t, (&Template{Visibility: VisibilityPrivate}).IsPublic())

	owned := &Template{UserID: "u1"}
	assert.True(t, owned.IsOwnedBy("u1"))
	assert.False(t, owned.IsOwnedBy(""))
	assert.False(t, (&Template{}).IsOwnedBy(""))

	assert.True(t, (&Template{Tags: []string{"Email"}}).HasTag("email"))
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit, def, max, want int
	}{
		{0, 20, 100, 20},
		{-1, 20, 100, 1},
		{50, 20, 100, 50},
		{500, 20, 100, 100},
		{0, 0, 0, 20},
		{0, 50, 10, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.limit, tt.def, tt.max), "%+v", tt)
	}
}
