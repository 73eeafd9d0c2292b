// Package importer consolidates seed template files into store records.
//
// Seed data arrives as CSV exports, JSON dumps and markdown files with YAML
// frontmatter. The importer reads them all, normalises tags and variables,
// collapses duplicate titles onto the most used copy and reports likely
// duplicates for a human to review.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gravyprompts/gravyprompts/internal/log"
	"github.com/gravyprompts/gravyprompts/internal/models"
	"github.com/gravyprompts/gravyprompts/internal/storage"
)

// contentKeyLength is how much of the content is compared when looking for
// duplicate bodies
const contentKeyLength = 200

// idNamespace derives stable template IDs from titles so re-importing the
// same seed updates records instead of duplicating them
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://gravyprompts.com/templates"))

// ImportOptions configures the import process
type ImportOptions struct {
	Paths      []string // Files or directories to read
	Tags       []string // Additional tags applied to every template
	OwnerID    string   // Owner assigned to templates without one
	Visibility models.Visibility
	DryRun     bool // Report only; the caller must not persist the result
}

// DuplicateTitle is a title seen more than once
type DuplicateTitle struct {
	Title   string   `json:"title"`
	Sources []string `json:"sources"`
}

// DuplicateContent is a pair of templates whose bodies start the same way
type DuplicateContent struct {
	Title1 string `json:"title1"`
	Title2 string `json:"title2"`
}

// ImportResult contains the results of an import operation
type ImportResult struct {
	Templates        []models.Template  `json:"-"`
	Total            int                `json:"total"`
	Unique           int                `json:"unique"`
	DuplicateTitles  []DuplicateTitle   `json:"duplicateTitles"`
	DuplicateContent []DuplicateContent `json:"duplicateContent"`
	Errors           []error            `json:"-"`
}

// SeedImporter reads seed files
type SeedImporter struct {
	now    func() time.Time
	logger *log.Logger
}

// NewSeedImporter creates a new seed importer
func NewSeedImporter() *SeedImporter {
	return &SeedImporter{now: time.Now, logger: log.ForService("importer")}
}

// record is one template as found in a seed file, before consolidation
type record struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Format      string   `json:"format"`
	Tags        tagList  `json:"tags"`
	Variables   []string `json:"variables"`
	Category    string   `json:"category"`
	AuthorEmail string   `json:"authorEmail"`
	UserID      string   `json:"userId"`
	Visibility  string   `json:"visibility"`
	ViewCount   flexInt  `json:"viewCount"`
	UseCount    flexInt  `json:"useCount"`
	CreatedAt   string   `json:"createdAt"`

	source string
}

// tagList accepts either a JSON list or a comma separated string
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("tags must be a list or a string")
	}
	*t = splitTags(s)
	return nil
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// flexInt accepts numbers written as JSON numbers or strings
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid count %s", data)
	}
	*n = flexInt(v)
	return nil
}

// Import reads every seed file under options.Paths and consolidates them
func (i *SeedImporter) Import(ctx context.Context, options ImportOptions) (*ImportResult, error) {
	files, err := collectFiles(options.Paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no seed files found in %s", strings.Join(options.Paths, ", "))
	}

	perFile := make([][]record, len(files))
	fileErrs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for idx, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perFile[idx], fileErrs[idx] = readFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ImportResult{DuplicateTitles: []DuplicateTitle{}, DuplicateContent: []DuplicateContent{}}
	var all []record
	for idx, recs := range perFile {
		if fileErrs[idx] != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to import from %s: %w", files[idx], fileErrs[idx]))
			continue
		}
		all = append(all, recs...)
	}

	result.Total = len(all)
	i.consolidate(all, options, result)
	i.logger.Infof("read %d templates from %d files, %d unique", result.Total, len(files), result.Unique)
	return result, nil
}

func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isSeedFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}
	return files, nil
}

func isSeedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".json", ".md":
		return true
	}
	return false
}

func readFile(path string) ([]record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var recs []record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		recs, err = parseCSV(bytes.NewReader(data))
	case ".json":
		recs, err = parseJSON(data)
	case ".md":
		recs, err = parseMarkdown(data)
	default:
		return nil, fmt.Errorf("unsupported file type")
	}
	if err != nil {
		return nil, err
	}

	for j := range recs {
		recs[j].source = fmt.Sprintf("%s#%d", filepath.Base(path), j+1)
	}
	return recs, nil
}

func parseCSV(r io.Reader) ([]record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	get := func(row []string, name string) string {
		if i, ok := col[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	var recs []record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := record{
			ID:          get(row, "id"),
			Title:       get(row, "title"),
			Content:     get(row, "content"),
			Format:      get(row, "format"),
			Tags:        splitTags(get(row, "tags")),
			Variables:   splitTags(get(row, "variables")),
			Category:    get(row, "category"),
			AuthorEmail: get(row, "authorEmail"),
			UserID:      get(row, "userId"),
			Visibility:  get(row, "visibility"),
			CreatedAt:   get(row, "createdAt"),
		}
		for name, dst := range map[string]*flexInt{"viewCount": &rec.ViewCount, "useCount": &rec.UseCount} {
			if v := strings.TrimSpace(get(row, name)); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid %s %q", line, name, v)
				}
				*dst = flexInt(n)
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func parseJSON(data []byte) ([]record, error) {
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		// A single object is accepted too.
		var one record
		if err2 := json.Unmarshal(data, &one); err2 != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		recs = []record{one}
	}
	return recs, nil
}

func parseMarkdown(data []byte) ([]record, error) {
	t, err := storage.ParseMarkdown(data)
	if err != nil {
		return nil, err
	}
	rec := record{
		ID:          t.ID,
		Title:       t.Title,
		Content:     t.Content,
		Format:      t.Format,
		Tags:        t.Tags,
		Variables:   t.VariableNames,
		Category:    t.Category,
		AuthorEmail: t.AuthorEmail,
		UserID:      t.UserID,
		Visibility:  string(t.Visibility),
		ViewCount:   flexInt(t.ViewCount),
		UseCount:    flexInt(t.UseCount),
	}
	if !t.CreatedAt.IsZero() {
		rec.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	return []record{rec}, nil
}

// consolidate dedups by trimmed title, keeping the copy with the highest
// viewCount+useCount (the first one on ties), and sorts by category then title.
func (i *SeedImporter) consolidate(all []record, options ImportOptions, result *ImportResult) {
	best := make(map[string]int)
	var order []string
	sources := make(map[string][]string)
	seenContent := make(map[string]int)

	for idx, rec := range all {
		title := strings.TrimSpace(rec.Title)
		if title == "" {
			result.Errors = append(result.Errors, fmt.Errorf("%s: missing title", rec.source))
			continue
		}

		sources[title] = append(sources[title], rec.source)
		if prev, ok := best[title]; !ok {
			best[title] = idx
			order = append(order, title)
		} else if popularity(rec) > popularity(all[prev]) {
			best[title] = idx
		}

		key := contentKey(rec.Content)
		if prev, ok := seenContent[key]; ok {
			result.DuplicateContent = append(result.DuplicateContent, DuplicateContent{
				Title1: all[prev].Title,
				Title2: rec.Title,
			})
		} else {
			seenContent[key] = idx
		}
	}

	for _, title := range order {
		if len(sources[title]) > 1 {
			result.DuplicateTitles = append(result.DuplicateTitles, DuplicateTitle{Title: title, Sources: sources[title]})
		}
	}

	now := i.now().UTC()
	templates := make([]models.Template, 0, len(order))
	for _, title := range order {
		templates = append(templates, i.toTemplate(all[best[title]], options, now))
	}
	sort.SliceStable(templates, func(a, b int) bool {
		if templates[a].Category != templates[b].Category {
			return templates[a].Category < templates[b].Category
		}
		return templates[a].Title < templates[b].Title
	})

	result.Templates = templates
	result.Unique = len(templates)
}

func popularity(r record) int {
	return int(r.ViewCount) + int(r.UseCount)
}

func contentKey(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) > contentKeyLength {
		return string(runes[:contentKeyLength])
	}
	return content
}

func (i *SeedImporter) toTemplate(rec record, options ImportOptions, now time.Time) models.Template {
	title := strings.TrimSpace(rec.Title)
	t := models.Template{
		ID:               strings.TrimSpace(rec.ID),
		Title:            title,
		Content:          rec.Content,
		Format:           strings.ToLower(strings.TrimSpace(rec.Format)),
		Category:         strings.TrimSpace(rec.Category),
		Tags:             models.CleanTags(append(append([]string{}, rec.Tags...), options.Tags...)),
		VariableNames:    models.CleanVariables(rec.Variables),
		Visibility:       models.Visibility(strings.ToLower(strings.TrimSpace(rec.Visibility))),
		ModerationStatus: models.ModerationApproved,
		UserID:           strings.TrimSpace(rec.UserID),
		AuthorEmail:      strings.TrimSpace(rec.AuthorEmail),
		UseCount:         max(int(rec.UseCount), 0),
		ViewCount:        max(int(rec.ViewCount), 0),
		CreatedAt:        now,
	}

	if t.ID == "" {
		t.ID = uuid.NewSHA1(idNamespace, []byte(title)).String()
	}
	if t.Format == "" {
		t.Format = detectFormat(t.Content)
	}
	if len(t.VariableNames) == 0 {
		t.VariableNames = models.ExtractVariables(t.Content)
	}
	switch t.Visibility {
	case models.VisibilityPublic, models.VisibilityPrivate:
	default:
		t.Visibility = options.Visibility
		if t.Visibility == "" {
			t.Visibility = models.VisibilityPublic
		}
	}
	if t.UserID == "" {
		t.UserID = options.OwnerID
	}
	if rec.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, rec.CreatedAt); err == nil {
			t.CreatedAt = ts.UTC()
		}
	}
	return t
}

func detectFormat(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "<") && strings.Contains(trimmed, ">") {
		return models.FormatHTML
	}
	return models.FormatPlain
}
