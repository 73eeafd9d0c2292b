package renderer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravyprompts/gravyprompts/internal/models"
)

func TestPreview(t *testing.T) {
	long := strings.Repeat("é", 250)

	tests := []struct {
		name    string
		content string
		format  string
		want    string
	}{
		{"short kept", "hello", models.FormatPlain, "hello"},
		{"exact length kept", strings.Repeat("a", 200), "", strings.Repeat("a", 200)},
		{"long cut on runes", long, "", strings.Repeat("é", 200) + "..."},
		{"html stripped", "<p>Hello <b>world</b></p><script>x()</script>", models.FormatHTML, "Hello world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Preview(tt.content, tt.format, 200)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestHTMLToTextBlocks(t *testing.T) {
	got := HTMLToText("<h1>Title</h1><ul><li>one</li><li>two &amp; three</li></ul>")
	assert.Equal(t, "Title\none\ntwo & three", got)
}

func TestRenderText(t *testing.T) {
	tmpl := &models.Template{Title: "Greeting", Content: "Hi [[name]], welcome to [[ company ]]. [[missing]]"}
	r := NewRenderer(tmpl)

	got := r.RenderText(map[string]string{"name": "Ada", "company": "Gravy"})
	assert.Equal(t, "Hi Ada, welcome to Gravy. [[missing]]", got)
	assert.Equal(t, tmpl.Content, r.RenderText(nil))
}

func TestRenderJSON(t *testing.T) {
	r := NewRenderer(&models.Template{Content: "<p>Hi</p>", Format: models.FormatHTML})
	out, err := r.RenderJSON(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"user","content":"Hi"}]`, out)
}
