package storage

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gravyprompts/gravyprompts/internal/models"
)

// ParseMarkdown reads a template from markdown with YAML frontmatter. The
// body after the closing delimiter becomes the content.
func ParseMarkdown(content []byte) (*models.Template, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return nil, fmt.Errorf("missing frontmatter delimiter")
	}

	var frontmatterLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		frontmatterLines = append(frontmatterLines, line)
	}
	if !closed {
		return nil, fmt.Errorf("unterminated frontmatter")
	}

	var template models.Template
	if err := yaml.Unmarshal([]byte(strings.Join(frontmatterLines, "\n")), &template); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	var contentLines []string
	for scanner.Scan() {
		contentLines = append(contentLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read template body: %w", err)
	}
	template.Content = strings.TrimLeft(strings.Join(contentLines, "\n"), " \t\n")

	return &template, nil
}

// SerializeMarkdown writes a template as YAML frontmatter plus markdown body
func SerializeMarkdown(template *models.Template) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(template); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	encoder.Close()
	buf.WriteString("---\n")

	if template.Content != "" {
		buf.WriteString("\n")
		buf.WriteString(template.Content)
		if !strings.HasSuffix(template.Content, "\n") {
			buf.WriteString("\n")
		}
	}

	return buf.Bytes(), nil
}
