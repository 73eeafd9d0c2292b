// Package cli implements the gravyprompts command line.
//
// commands.go builds the urfave/cli command tree; this file holds the CLI
// type that runs each operation through service.Service and prints the
// result as a styled table, JSON or plain ids. show also renders markdown,
// LLM message arrays and the frontmatter source accepted by import.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gravyprompts/gravyprompts/internal/auth"
	"github.com/gravyprompts/gravyprompts/internal/clipboard"
	"github.com/gravyprompts/gravyprompts/internal/importer"
	"github.com/gravyprompts/gravyprompts/internal/models"
	"github.com/gravyprompts/gravyprompts/internal/renderer"
	"github.com/gravyprompts/gravyprompts/internal/service"
	"github.com/gravyprompts/gravyprompts/internal/storage"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatIDs   = "ids"
	FormatText  = "text"

	// show only
	FormatMessages = "messages"
	FormatSource   = "source"
)

// CLI provides headless command-line functionality
type CLI struct {
	service *service.Service
	out     io.Writer
	caller  auth.Identity
	styles  styles
	clip    copier
}

// copier is satisfied by *clipboard.Clipboard
type copier interface {
	Copy(ctx context.Context, text string) error
}

// NewCLI creates a CLI writing to out on behalf of caller
func NewCLI(svc *service.Service, out io.Writer, caller auth.Identity) *CLI {
	return &CLI{service: svc, out: out, caller: caller, styles: newStyles(detectPalette()), clip: clipboard.New()}
}

// Search prints one page of results
func (c *CLI) Search(ctx context.Context, req models.SearchRequest, format string) error {
	result, err := c.service.Search(ctx, req, c.caller)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		return c.writeJSON(result)
	case FormatIDs:
		for _, item := range result.Items {
			fmt.Fprintln(c.out, item.ID)
		}
	default:
		if len(result.Items) == 0 {
			fmt.Fprintln(c.out, c.styles.meta.Render("No templates found"))
			return nil
		}
		fmt.Fprintln(c.out, c.renderTable(resultHeaders(result.Items), resultRows(result.Items)))
	}

	if result.NextToken != "" && format != FormatJSON {
		fmt.Fprintln(c.out, c.styles.meta.Render("more results: --next "+result.NextToken))
	}
	return nil
}

func resultHeaders(items []models.ResultItem) []string {
	headers := []string{"ID", "TITLE", "TAGS", "USES", "VIEWS"}
	if len(items) > 0 && items[0].Score != nil {
		headers = append(headers, "SCORE")
	}
	return headers
}

func resultRows(items []models.ResultItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := []string{
			item.ID,
			truncate(item.Title, 40),
			truncate(strings.Join(item.Tags, ", "), 30),
			strconv.Itoa(item.UseCount),
			strconv.Itoa(item.ViewCount),
		}
		if item.Score != nil {
			row = append(row, strconv.Itoa(*item.Score))
		}
		rows = append(rows, row)
	}
	return rows
}

func (c *CLI) renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(c.styles.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return c.styles.header
			}
			return c.styles.cell
		}).
		String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// Show prints a single template. Markdown output goes through glamour;
// text output substitutes vars into the content. With copyText the filled
// text also goes to the clipboard.
func (c *CLI) Show(ctx context.Context, id, format string, vars map[string]string, width int, copyText bool) error {
	tmpl, err := c.service.GetTemplate(ctx, id, c.caller)
	if err != nil {
		return err
	}

	r := renderer.NewRenderer(&tmpl)
	switch format {
	case FormatJSON:
		if err := c.writeJSON(tmpl); err != nil {
			return err
		}
	case FormatText:
		fmt.Fprintln(c.out, r.RenderText(vars))
	case FormatMessages:
		out, err := r.RenderJSON(vars)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, out)
	case FormatSource:
		out, err := storage.SerializeMarkdown(&tmpl)
		if err != nil {
			return err
		}
		c.out.Write(out)
	default:
		out, err := r.RenderTerminal(width)
		if err != nil {
			return err
		}
		fmt.Fprint(c.out, out)
	}

	if copyText {
		if err := c.clip.Copy(ctx, r.RenderText(vars)); err != nil {
			return err
		}
		fmt.Fprintln(c.out, c.styles.meta.Render("Copied to clipboard"))
	}
	return nil
}

// Tags prints tag counts, optionally filtered by a fuzzy query
func (c *CLI) Tags(ctx context.Context, query string, limit int, format string) error {
	tags, err := c.service.ListTags(ctx, query, limit)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		return c.writeJSON(tags)
	case FormatIDs:
		for _, t := range tags {
			fmt.Fprintln(c.out, t.Tag)
		}
	default:
		rows := make([][]string, 0, len(tags))
		for _, t := range tags {
			rows = append(rows, []string{t.Tag, strconv.Itoa(t.Count)})
		}
		fmt.Fprintln(c.out, c.renderTable([]string{"TAG", "TEMPLATES"}, rows))
	}
	return nil
}

// Import consolidates seed files into the store and prints the report
func (c *CLI) Import(ctx context.Context, options importer.ImportOptions, format string) error {
	result, err := c.service.Import(ctx, options)
	if err != nil {
		return err
	}

	if format == FormatJSON {
		return c.writeJSON(result)
	}

	verb := "Imported"
	if options.DryRun {
		verb = "Would import"
	}
	fmt.Fprintf(c.out, "%s %d unique templates (%d read)\n", verb, result.Unique, result.Total)

	if len(result.DuplicateTitles) > 0 {
		fmt.Fprintf(c.out, "\nDuplicate titles (%d):\n", len(result.DuplicateTitles))
		for _, dup := range result.DuplicateTitles {
			fmt.Fprintf(c.out, "  - %s (%s)\n", dup.Title, strings.Join(dup.Sources, ", "))
		}
	}
	if len(result.DuplicateContent) > 0 {
		fmt.Fprintf(c.out, "\nSimilar content (%d):\n", len(result.DuplicateContent))
		for _, dup := range result.DuplicateContent {
			fmt.Fprintf(c.out, "  - %q and %q\n", dup.Title1, dup.Title2)
		}
	}
	for _, importErr := range result.Errors {
		fmt.Fprintln(c.out, c.styles.warn.Render("warning: "+importErr.Error()))
	}
	return nil
}

func (c *CLI) writeJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ParseVars turns key=value pairs into a map
func ParseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q, expected name=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}
