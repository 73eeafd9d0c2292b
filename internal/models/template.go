package models

import (
	"regexp"
	"strings"
	"time"
)

// Visibility controls who can see a template
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ModerationStatus is the review state assigned by the moderation pipeline
type ModerationStatus string

const (
	ModerationApproved ModerationStatus = "approved"
	ModerationPending  ModerationStatus = "pending"
	ModerationRejected ModerationStatus = "rejected"
)

// Content formats understood by the preview builder
const (
	FormatPlain = "plain"
	FormatHTML  = "html"
)

// Template is a shared prompt template as held by the store.
// The search engine only ever reads it.
type Template struct {
	ID               string           `json:"id" yaml:"id"`
	Title            string           `json:"title" yaml:"title"`
	Content          string           `json:"content" yaml:"-"`
	Format           string           `json:"format,omitempty" yaml:"format,omitempty"`
	Category         string           `json:"category,omitempty" yaml:"category,omitempty"`
	Tags             []string         `json:"tags" yaml:"tags"`
	VariableNames    []string         `json:"variableNames" yaml:"variables,omitempty"`
	Visibility       Visibility       `json:"visibility" yaml:"visibility"`
	ModerationStatus ModerationStatus `json:"moderationStatus,omitempty" yaml:"moderation_status,omitempty"`
	UserID           string           `json:"userId,omitempty" yaml:"user_id,omitempty"`
	AuthorEmail      string           `json:"authorEmail,omitempty" yaml:"author_email,omitempty"`
	UseCount         int              `json:"useCount" yaml:"use_count"`
	ViewCount        int              `json:"viewCount" yaml:"view_count"`
	CreatedAt        time.Time        `json:"createdAt" yaml:"created_at"`
}

// IsPublic reports whether anyone may see the template
func (t *Template) IsPublic() bool {
	return t.Visibility == "" || t.Visibility == VisibilityPublic
}

// IsOwnedBy reports whether userID owns the template. Anonymous callers own nothing.
func (t *Template) IsOwnedBy(userID string) bool {
	return userID != "" && t.UserID == userID
}

// HasTag checks tag membership case-insensitively
func (t *Template) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if strings.EqualFold(existing, tag) {
			return true
		}
	}
	return false
}

var variablePattern = regexp.MustCompile(`\[\[\s*([^\[\]]+?)\s*\]\]`)

// ExtractVariables returns the distinct [[placeholder]] names found in content,
// in order of first appearance.
func ExtractVariables(content string) []string {
	matches := variablePattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var names []string
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// FillVariables replaces each [[placeholder]] that has an entry in values.
// Placeholders without a value are left as written.
func FillVariables(content string, values map[string]string) string {
	if len(values) == 0 {
		return content
	}
	return variablePattern.ReplaceAllStringFunc(content, func(m string) string {
		name := strings.TrimSpace(variablePattern.FindStringSubmatch(m)[1])
		if v, ok := values[name]; ok {
			return v
		}
		return m
	})
}

// CleanTags trims, lowercases and de-duplicates tags, dropping empties
func CleanTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		cleaned = append(cleaned, tag)
	}
	return cleaned
}

// CleanVariables trims and de-duplicates variable names, keeping their case
func CleanVariables(names []string) []string {
	seen := make(map[string]bool, len(names))
	var cleaned []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		cleaned = append(cleaned, name)
	}
	return cleaned
}
