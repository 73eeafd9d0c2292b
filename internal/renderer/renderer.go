package renderer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/gravyprompts/gravyprompts/internal/models"
)

// Renderer turns a template into text a user can paste or read
type Renderer struct {
	template *models.Template
}

// NewRenderer creates a new renderer instance
func NewRenderer(tmpl *models.Template) *Renderer {
	return &Renderer{template: tmpl}
}

// RenderText fills [[placeholders]] from values. Placeholders without a
// value are left as written.
func (r *Renderer) RenderText(values map[string]string) string {
	return models.FillVariables(r.plainContent(), values)
}

// RenderJSON renders the template as a JSON message array for LLM APIs
func (r *Renderer) RenderJSON(values map[string]string) (string, error) {
	messages := []Message{
		{
			Role:    "user",
			Content: r.RenderText(values),
		},
	}

	jsonBytes, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// Message represents a chat message for LLM APIs
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RenderTerminal renders the template as styled markdown for a terminal of
// the given width. GLAMOUR_STYLE overrides the detected style.
func (r *Renderer) RenderTerminal(wordWrap int) (string, error) {
	style := glamour.WithAutoStyle()
	if s := os.Getenv("GLAMOUR_STYLE"); s != "" {
		style = glamour.WithStandardStyle(s)
	}

	tr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wordWrap))
	if err != nil {
		return "", fmt.Errorf("failed to create terminal renderer: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.template.Title)
	if len(r.template.Tags) > 0 {
		fmt.Fprintf(&b, "_tags: %s_\n\n", strings.Join(r.template.Tags, ", "))
	}
	if len(r.template.VariableNames) > 0 {
		fmt.Fprintf(&b, "_variables: %s_\n\n", strings.Join(r.template.VariableNames, ", "))
	}
	b.WriteString(r.plainContent())

	out, err := tr.Render(b.String())
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return out, nil
}

func (r *Renderer) plainContent() string {
	if r.template.Format == models.FormatHTML {
		return HTMLToText(r.template.Content)
	}
	return r.template.Content
}
