package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravyprompts/gravyprompts/internal/models"
)

const sampleCSV = `title,content,format,tags,category,authorEmail,visibility,viewCount,useCount
Cold Email Opener,"Hi [[name]], quick question about [[company]]",plain,"Email, Sales",sales,a@example.com,public,10,2
Meeting Recap,Summary of [[meeting]],,notes,ops,,,,
Cold Email Opener,"Hello [[name]]",plain,email,sales,,public,100,50
`

const sampleJSON = `[
  {"title": "Bug Report", "content": "<p>Steps: [[steps]]</p>", "tags": ["engineering", "bugs"], "category": "eng", "viewCount": 5, "useCount": "3"},
  {"title": "Recap Copy", "content": "Summary of [[meeting]]", "tags": "notes, meetings", "category": "ops"},
  {"title": "", "content": "untitled"}
]`

const sampleMarkdown = `---
title: Standup Notes
category: ops
tags: [standup, Notes]
visibility: private
user_id: alice
created_at: 2024-02-03T04:05:06Z
---

Yesterday: [[yesterday]]
Today: [[today]]
`

func writeSeed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"sample.csv":      sampleCSV,
		"sample.json":     sampleJSON,
		"nested/daily.md": sampleMarkdown,
		"ignored.txt":     "not a seed file",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func newTestImporter() *SeedImporter {
	i := NewSeedImporter()
	i.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return i
}

func byTitle(ts []models.Template) map[string]models.Template {
	out := make(map[string]models.Template, len(ts))
	for _, t := range ts {
		out[t.Title] = t
	}
	return out
}

func TestImportConsolidates(t *testing.T) {
	dir := writeSeed(t)

	result, err := newTestImporter().Import(context.Background(), ImportOptions{Paths: []string{dir}, Tags: []string{"seed"}})
	require.NoError(t, err)

	assert.Equal(t, 7, result.Total)
	assert.Equal(t, 5, result.Unique)
	require.Len(t, result.Errors, 1, "untitled record is reported")

	titles := make([]string, len(result.Templates))
	for i, tmpl := range result.Templates {
		titles[i] = tmpl.Title
	}
	assert.Equal(t, []string{"Bug Report", "Meeting Recap", "Recap Copy", "Standup Notes", "Cold Email Opener"}, titles, "sorted by category then title")

	got := byTitle(result.Templates)

	cold := got["Cold Email Opener"]
	assert.Equal(t, 100, cold.ViewCount, "most used duplicate wins")
	assert.Equal(t, "Hello [[name]]", cold.Content)
	assert.Equal(t, []string{"email", "seed"}, cold.Tags)
	assert.Equal(t, []string{"name"}, cold.VariableNames)

	bug := got["Bug Report"]
	assert.Equal(t, 3, bug.UseCount)
	assert.Equal(t, models.FormatHTML, bug.Format)
	assert.Equal(t, []string{"engineering", "bugs", "seed"}, bug.Tags)

	recap := got["Meeting Recap"]
	assert.Equal(t, models.FormatPlain, recap.Format)
	assert.Equal(t, models.VisibilityPublic, recap.Visibility)
	assert.Equal(t, models.ModerationApproved, recap.ModerationStatus)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), recap.CreatedAt)

	standup := got["Standup Notes"]
	assert.Equal(t, models.VisibilityPrivate, standup.Visibility)
	assert.Equal(t, "alice", standup.UserID)
	assert.Equal(t, []string{"yesterday", "today"}, standup.VariableNames)
	assert.Equal(t, []string{"standup", "notes", "seed"}, standup.Tags)
	assert.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), standup.CreatedAt)

	require.Len(t, result.DuplicateTitles, 1)
	assert.Equal(t, "Cold Email Opener", result.DuplicateTitles[0].Title)
	assert.Len(t, result.DuplicateTitles[0].Sources, 2)

	require.Len(t, result.DuplicateContent, 1)
	assert.ElementsMatch(t, []string{"Meeting Recap", "Recap Copy"},
		[]string{result.DuplicateContent[0].Title1, result.DuplicateContent[0].Title2})
}

func TestImportIDsAreStable(t *testing.T) {
	dir := writeSeed(t)

	first, err := newTestImporter().Import(context.Background(), ImportOptions{Paths: []string{dir}})
	require.NoError(t, err)
	second, err := newTestImporter().Import(context.Background(), ImportOptions{Paths: []string{dir}})
	require.NoError(t, err)

	for title, tmpl := range byTitle(first.Templates) {
		assert.NotEmpty(t, tmpl.ID)
		assert.Equal(t, tmpl.ID, byTitle(second.Templates)[title].ID, title)
	}
}

func TestImportOptionsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title": "Solo", "content": "x", "visibility": "unknown"}`), 0644))

	result, err := newTestImporter().Import(context.Background(), ImportOptions{
		Paths:      []string{path},
		OwnerID:    "owner-1",
		Visibility: models.VisibilityPrivate,
	})
	require.NoError(t, err)
	require.Len(t, result.Templates, 1)
	assert.Equal(t, "owner-1", result.Templates[0].UserID)
	assert.Equal(t, models.VisibilityPrivate, result.Templates[0].Visibility)
}

func TestImportBadFilesReported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{not json`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.csv"), []byte("title,content\nOnly,body\n"), 0644))

	result, err := newTestImporter().Import(context.Background(), ImportOptions{Paths: []string{dir}})
	require.NoError(t, err)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Unique)
}

func TestImportNoFiles(t *testing.T) {
	_, err := newTestImporter().Import(context.Background(), ImportOptions{Paths: []string{t.TempDir()}})
	assert.Error(t, err)

	_, err = newTestImporter().Import(context.Background(), ImportOptions{Paths: []string{"/does/not/exist"}})
	assert.Error(t, err)
}

func TestTagListUnmarshal(t *testing.T) {
	recs, err := parseJSON([]byte(`[{"title":"a","tags":"x, y"},{"title":"b","tags":["z"]},{"title":"c"}]`))
	require.NoError(t, err)
	assert.Equal(t, tagList{"x", " y"}, recs[0].Tags)
	assert.Equal(t, tagList{"z"}, recs[1].Tags)
	assert.Nil(t, recs[2].Tags)
}
