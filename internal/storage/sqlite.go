package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gravyprompts/gravyprompts/internal/log"
	"github.com/gravyprompts/gravyprompts/internal/models"
	"github.com/gravyprompts/gravyprompts/internal/search"
)

const schema = `
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		format TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		variables TEXT NOT NULL DEFAULT '[]',
		visibility TEXT NOT NULL DEFAULT 'public',
		moderation_status TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		author_email TEXT NOT NULL DEFAULT '',
		use_count INTEGER NOT NULL DEFAULT 0,
		view_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS template_tags (
		template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
		tag TEXT NOT NULL,
		PRIMARY KEY (template_id, tag)
	);

	CREATE INDEX IF NOT EXISTS idx_template_tags_tag ON template_tags(tag);
	CREATE INDEX IF NOT EXISTS idx_templates_created_at ON templates(created_at, id);
	CREATE INDEX IF NOT EXISTS idx_templates_popularity ON templates(use_count DESC, view_count DESC, id);
	CREATE INDEX IF NOT EXISTS idx_templates_user ON templates(user_id);
`

const templateColumns = `id, title, content, format, category, tags, variables, visibility,
	moderation_status, user_id, author_email, use_count, view_count, created_at`

// listedClause matches templates any caller may see
const listedClause = `(visibility IN ('', 'public') AND moderation_status IN ('', 'approved'))`

// SQLiteStore is a Repository backed by a SQLite database file
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

// OpenSQLite opens (creating if needed) the database at path. Per-connection
// pragmas go in the DSN so every pooled connection gets them.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger := log.ForService("storage")
	logger.Debugf("opened sqlite database %s", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func filterClause(spec search.FilterSpec) (string, []any) {
	var where []string
	var args []any

	switch spec.Scope {
	case search.ScopeOwned:
		where = append(where, "(user_id = ? AND user_id <> '')")
		args = append(args, spec.UserID)
	case search.ScopePublicOrOwned:
		where = append(where, "("+listedClause+" OR (user_id = ? AND user_id <> ''))")
		args = append(args, spec.UserID)
	default:
		where = append(where, listedClause)
	}

	if spec.Tag != "" {
		where = append(where, "id IN (SELECT template_id FROM template_tags WHERE tag = ?)")
		args = append(args, strings.ToLower(strings.TrimSpace(spec.Tag)))
	}
	return strings.Join(where, " AND "), args
}

func orderClause(hint search.SortHint) string {
	if hint.Popularity {
		return "use_count DESC, view_count DESC, id ASC"
	}

	col := "created_at"
	switch hint.Field {
	case models.SortViewCount:
		col = "view_count"
	case models.SortUseCount:
		col = "use_count"
	}
	dir := "DESC"
	if hint.Order == models.SortAsc {
		dir = "ASC"
	}
	return col + " " + dir + ", id ASC"
}

// FetchCandidates returns one filtered batch in hint order
func (s *SQLiteStore) FetchCandidates(ctx context.Context, spec search.FilterSpec, hint search.SortHint, limit int, token string) (search.Batch, error) {
	if limit <= 0 {
		limit = models.MaxLimit
	}
	offset := parseOffsetToken(token)
	where, args := filterClause(spec)

	// One extra row tells whether another batch exists.
	query := "SELECT " + templateColumns + " FROM templates WHERE " + where +
		" ORDER BY " + orderClause(hint) + " LIMIT ? OFFSET ?"
	args = append(args, limit+1, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return search.Batch{}, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	batch := search.Batch{Templates: make([]models.Template, 0, limit)}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return search.Batch{}, err
		}
		batch.Templates = append(batch.Templates, t)
	}
	if err := rows.Err(); err != nil {
		return search.Batch{}, fmt.Errorf("reading candidates: %w", err)
	}

	if len(batch.Templates) > limit {
		batch.Templates = batch.Templates[:limit]
		batch.NextToken = offsetToken(offset + limit)
	}
	s.logger.Debugf("fetched %d candidates at offset %d", len(batch.Templates), offset)
	return batch, nil
}

// GetTemplate looks up a template by ID
func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (models.Template, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+templateColumns+" FROM templates WHERE id = ?", id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return models.Template{}, false, nil
	}
	if err != nil {
		return models.Template{}, false, err
	}
	return t, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(sc scanner) (models.Template, error) {
	var (
		t          models.Template
		tags, vars string
		visibility string
		moderation string
		createdAt  int64
	)
	err := sc.Scan(&t.ID, &t.Title, &t.Content, &t.Format, &t.Category, &tags, &vars,
		&visibility, &moderation, &t.UserID, &t.AuthorEmail, &t.UseCount, &t.ViewCount, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return t, err
		}
		return t, fmt.Errorf("scanning template: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return t, fmt.Errorf("decoding tags of %s: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(vars), &t.VariableNames); err != nil {
		return t, fmt.Errorf("decoding variables of %s: %w", t.ID, err)
	}
	t.Visibility = models.Visibility(visibility)
	t.ModerationStatus = models.ModerationStatus(moderation)
	t.CreatedAt = time.UnixMicro(createdAt).UTC()
	return t, nil
}

// SaveTemplates inserts or replaces templates in one transaction
func (s *SQLiteStore) SaveTemplates(ctx context.Context, templates []models.Template) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	upsert, err := tx.PrepareContext(ctx, `INSERT INTO templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, content = excluded.content, format = excluded.format,
			category = excluded.category, tags = excluded.tags, variables = excluded.variables,
			visibility = excluded.visibility, moderation_status = excluded.moderation_status,
			user_id = excluded.user_id, author_email = excluded.author_email,
			use_count = excluded.use_count, view_count = excluded.view_count,
			created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer upsert.Close()

	for _, t := range templates {
		tags, err := json.Marshal(nonNilStrings(t.Tags))
		if err != nil {
			return err
		}
		vars, err := json.Marshal(nonNilStrings(t.VariableNames))
		if err != nil {
			return err
		}
		visibility := t.Visibility
		if visibility == "" {
			visibility = models.VisibilityPublic
		}

		if _, err := upsert.ExecContext(ctx, t.ID, t.Title, t.Content, t.Format, t.Category,
			string(tags), string(vars), string(visibility), string(t.ModerationStatus),
			t.UserID, t.AuthorEmail, t.UseCount, t.ViewCount, t.CreatedAt.UnixMicro()); err != nil {
			return fmt.Errorf("saving template %s: %w", t.ID, err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM template_tags WHERE template_id = ?", t.ID); err != nil {
			return fmt.Errorf("clearing tags of %s: %w", t.ID, err)
		}
		for _, tag := range models.CleanTags(t.Tags) {
			if _, err := tx.ExecContext(ctx, "INSERT INTO template_tags (template_id, tag) VALUES (?, ?)", t.ID, tag); err != nil {
				return fmt.Errorf("saving tag %q of %s: %w", tag, t.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing templates: %w", err)
	}
	s.logger.Infof("saved %d templates", len(templates))
	return nil
}

// TagCounts counts tags across publicly listed templates, most used first
func (s *SQLiteStore) TagCounts(ctx context.Context) ([]TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tt.tag, COUNT(*) FROM template_tags tt
		JOIN templates ON templates.id = tt.template_id
		WHERE `+listedClause+`
		GROUP BY tt.tag`)
	if err != nil {
		return nil, fmt.Errorf("counting tags: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tag string
		var n int
		if err := rows.Scan(&tag, &n); err != nil {
			return nil, fmt.Errorf("scanning tag count: %w", err)
		}
		counts[tag] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sortTagCounts(counts), nil
}

// Count returns the number of stored templates
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM templates").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting templates: %w", err)
	}
	return n, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
