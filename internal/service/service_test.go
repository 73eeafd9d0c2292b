package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravyprompts/gravyprompts/internal/auth"
	"github.com/gravyprompts/gravyprompts/internal/errors"
	"github.com/gravyprompts/gravyprompts/internal/importer"
	"github.com/gravyprompts/gravyprompts/internal/models"
	"github.com/gravyprompts/gravyprompts/internal/search"
	"github.com/gravyprompts/gravyprompts/internal/storage"
)

var created = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := storage.NewMemoryStore(
		models.Template{ID: "a", Title: "Email Marketing Campaign", Tags: []string{"email", "marketing"},
			Visibility: models.VisibilityPublic, UseCount: 100, CreatedAt: created},
		models.Template{ID: "b", Title: "Professional Email Template", Tags: []string{"email"},
			Visibility: models.VisibilityPublic, UseCount: 50, CreatedAt: created.Add(time.Hour)},
		models.Template{ID: "c", Title: "Sales Follow Up", Tags: []string{"sales"},
			Visibility: models.VisibilityPublic, CreatedAt: created.Add(2 * time.Hour)},
		models.Template{ID: "d", Title: "Private Draft", Tags: []string{"drafts"},
			Visibility: models.VisibilityPrivate, UserID: "alice", CreatedAt: created.Add(3 * time.Hour)},
	)
	svc := NewService(store, search.DefaultOptions())
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestSearchDelegatesToEngine(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Search(context.Background(), models.SearchRequest{Query: "email", Limit: 10}, auth.Identity{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "a", res.Items[0].ID)
	assert.Equal(t, "b", res.Items[1].ID)
	require.NotNil(t, res.Items[0].Score)
	assert.Equal(t, 120, *res.Items[0].Score)
}

func TestGetTemplate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tmpl, err := svc.GetTemplate(ctx, " a ", auth.Identity{})
	require.NoError(t, err)
	assert.Equal(t, "Email Marketing Campaign", tmpl.Title)

	_, err = svc.GetTemplate(ctx, "d", auth.Identity{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))

	tmpl, err = svc.GetTemplate(ctx, "d", auth.Identity{UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "Private Draft", tmpl.Title)

	_, err = svc.GetTemplate(ctx, "no/such", auth.Identity{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestListTags(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tags, err := svc.ListTags(ctx, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []storage.TagCount{
		{Tag: "email", Count: 2},
		{Tag: "marketing", Count: 1},
		{Tag: "sales", Count: 1},
	}, tags)

	tags, err = svc.ListTags(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	tags, err = svc.ListTags(ctx, "EM", 10)
	require.NoError(t, err)
	assert.Equal(t, []storage.TagCount{{Tag: "email", Count: 2}}, tags)

	tags, err = svc.ListTags(ctx, "zzz", 10)
	require.NoError(t, err)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}

const seedJSON = `[
  {"title": "Bug Report", "content": "Steps: [[steps]]", "tags": ["engineering"], "viewCount": 5},
  {"title": "Bug Report", "content": "Older copy", "tags": ["engineering"]}
]`

func writeSeed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed.json"), []byte(seedJSON), 0644))
	return dir
}

func TestImportDryRunDoesNotSave(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result, err := svc.Import(ctx, importer.ImportOptions{Paths: []string{writeSeed(t)}, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Unique)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestImportSavesAndIsSearchable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, importer.ImportOptions{Paths: []string{writeSeed(t)}, Tags: []string{"seeded"}})
	require.NoError(t, err)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	res, err := svc.Search(ctx, models.SearchRequest{Query: "bug", Tag: "seeded", Limit: 10}, auth.Identity{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Bug Report", res.Items[0].Title)
	assert.Equal(t, []string{"steps"}, res.Items[0].VariableNames)
}

func TestImportRejectsBadTags(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Import(context.Background(), importer.ImportOptions{Paths: []string{writeSeed(t)}, Tags: []string{"a/b"}})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestImportNoFiles(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Import(context.Background(), importer.ImportOptions{Paths: []string{t.TempDir()}})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
}
