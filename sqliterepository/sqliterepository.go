package sqliterepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/YaleSpinup/stars-api/apierror"
	"github.com/YaleSpinup/stars-api/star"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteRepositoryOption is a function to set repository options
type SQLiteRepositoryOption func(*SQLiteRepository)

// SQLiteRepository is an implementation of a repo repository in SQLite.  Tags
// are stored as a JSON array in a text column, so tag filtering and the
// substring search happen after the scan while language/status filtering and
// the stats rollup are pushed into SQL.
type SQLiteRepository struct {
	DB   *sql.DB
	Path string
}

// NewDefaultRepository creates a new repository from the default config data
func NewDefaultRepository(config map[string]interface{}) (*SQLiteRepository, error) {
	var path string
	if v, ok := config["path"].(string); ok {
		path = v
	}

	opts := []SQLiteRepositoryOption{}

	if path != "" {
		opts = append(opts, WithPath(path))
	}

	return New(opts...)
}

// New creates a SQLiteRepository from a list of SQLiteRepositoryOption functions
func New(opts ...SQLiteRepositoryOption) (*SQLiteRepository, error) {
	log.Info("creating new sqlite repository provider")

	s := SQLiteRepository{
		Path: "stars.db",
	}

	for _, opt := range opts {
		opt(&s)
	}

	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite", s.Path+"?mode=rwc")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}

	s.DB = db

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create tables")
	}

	return &s, nil
}

// WithPath sets the database file path for the SQLiteRepository
func WithPath(path string) SQLiteRepositoryOption {
	return func(s *SQLiteRepository) {
		log.Debugf("setting database path %s", path)
		s.Path = path
	}
}

// Close closes the database connection
func (s *SQLiteRepository) Close() error {
	return s.DB.Close()
}

func (s *SQLiteRepository) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS repos (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		modified_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_repos_language ON repos(language);
	CREATE INDEX IF NOT EXISTS idx_repos_status ON repos(status);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		repo_id TEXT NOT NULL,
		action TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_repo ON events(repo_id);
	`

	_, err := s.DB.ExecContext(context.Background(), schema)
	return err
}

// Create stores a new repo with the given id
func (s *SQLiteRepository) Create(ctx context.Context, id string, repo *star.Repo) (*star.Repo, error) {
	if id == "" || repo == nil {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	log.Debugf("creating repo %s in sqlite", id)

	tagsJSON, err := marshalTags(repo.Tags)
	if err != nil {
		return nil, apierror.New(apierror.ErrInternalError, "failed to serialize tags", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	ts := now.Format(time.RFC3339)

	query := `
	INSERT INTO repos (id, url, name, description, language, tags, notes, status, priority, created_at, modified_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.DB.ExecContext(ctx, query,
		id,
		repo.URL,
		repo.Name,
		repo.Description,
		repo.Language,
		tagsJSON,
		repo.Notes,
		repo.Status,
		repo.Priority,
		ts,
		ts,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			msg := fmt.Sprintf("repo %s already exists", id)
			return nil, apierror.New(apierror.ErrConflict, msg, err)
		}
		msg := fmt.Sprintf("failed to insert repo %s", id)
		return nil, apierror.New(apierror.ErrServiceUnavailable, msg, err)
	}

	return s.Get(ctx, id)
}

// Get returns the repo with the given id
func (s *SQLiteRepository) Get(ctx context.Context, id string) (*star.Repo, error) {
	if id == "" {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	query := `
	SELECT id, url, name, description, language, tags, notes, status, priority, created_at, modified_at
	FROM repos WHERE id = ?
	`

	repo, err := scanRepo(s.DB.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		msg := fmt.Sprintf("repo %s not found", id)
		return nil, apierror.New(apierror.ErrNotFound, msg, err)
	}
	if err != nil {
		msg := fmt.Sprintf("failed to get repo %s", id)
		return nil, apierror.New(apierror.ErrServiceUnavailable, msg, err)
	}

	return repo, nil
}

// List returns the repos matching the filter, ordered by creation time.
// Language and status narrow the query, the tag filter is applied to the
// scanned rows.
func (s *SQLiteRepository) List(ctx context.Context, filter star.Filter) ([]*star.Repo, error) {
	query := `
	SELECT id, url, name, description, language, tags, notes, status, priority, created_at, modified_at
	FROM repos
	`

	where := []string{}
	args := []interface{}{}

	if filter.Language != "" {
		where = append(where, "LOWER(language) = LOWER(?)")
		args = append(args, filter.Language)
	}

	if filter.Status != "" {
		where = append(where, "LOWER(status) = LOWER(?)")
		args = append(args, filter.Status)
	}

	if len(where) > 0 {
		query = query + " WHERE " + strings.Join(where, " AND ")
	}
	query = query + " ORDER BY created_at, id"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.New(apierror.ErrServiceUnavailable, "failed to list repos", err)
	}
	defer rows.Close()

	repos := []*star.Repo{}
	for rows.Next() {
		repo, err := scanRepo(rows)
		if err != nil {
			return nil, apierror.New(apierror.ErrServiceUnavailable, "failed to scan repo row", err)
		}

		if repo.Matches(star.Filter{Tag: filter.Tag}) {
			repos = append(repos, repo)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, apierror.New(apierror.ErrServiceUnavailable, "failed to list repos", err)
	}

	return repos, nil
}

// Search returns the repos matching the query by name, description or tag
func (s *SQLiteRepository) Search(ctx context.Context, query string) ([]*star.Repo, error) {
	if query == "" {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	all, err := s.List(ctx, star.Filter{})
	if err != nil {
		return nil, err
	}

	repos := []*star.Repo{}
	for _, repo := range all {
		if repo.MatchesQuery(query) {
			repos = append(repos, repo)
		}
	}

	return repos, nil
}

// Update applies a partial update to the repo with the given id
func (s *SQLiteRepository) Update(ctx context.Context, id string, update *star.RepoUpdate) (*star.Repo, error) {
	if id == "" || update == nil {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	log.Debugf("updating repo %s in sqlite", id)

	repo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	update.Apply(repo)

	tagsJSON, err := marshalTags(repo.Tags)
	if err != nil {
		return nil, apierror.New(apierror.ErrInternalError, "failed to serialize tags", err)
	}

	now := time.Now().UTC().Truncate(time.Second)

	query := `
	UPDATE repos
	SET url = ?, name = ?, description = ?, language = ?, tags = ?, notes = ?, status = ?, priority = ?, modified_at = ?
	WHERE id = ?
	`

	_, err = s.DB.ExecContext(ctx, query,
		repo.URL,
		repo.Name,
		repo.Description,
		repo.Language,
		tagsJSON,
		repo.Notes,
		repo.Status,
		repo.Priority,
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		msg := fmt.Sprintf("failed to update repo %s", id)
		return nil, apierror.New(apierror.ErrServiceUnavailable, msg, err)
	}

	repo.ModifiedAt = &now

	return repo, nil
}

// Delete removes the repo with the given id.  The audit trail is kept so the
// deletion itself can be recorded.
func (s *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	log.Debugf("deleting repo %s from sqlite", id)

	result, err := s.DB.ExecContext(ctx, "DELETE FROM repos WHERE id = ?", id)
	if err != nil {
		msg := fmt.Sprintf("failed to delete repo %s", id)
		return apierror.New(apierror.ErrServiceUnavailable, msg, err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		msg := fmt.Sprintf("failed to delete repo %s", id)
		return apierror.New(apierror.ErrServiceUnavailable, msg, err)
	}

	if count == 0 {
		msg := fmt.Sprintf("repo %s not found", id)
		return apierror.New(apierror.ErrNotFound, msg, nil)
	}

	return nil
}

// Stats summarizes the stored repos by language and status
func (s *SQLiteRepository) Stats(ctx context.Context) (*star.Stats, error) {
	stats := &star.Stats{
		ByLanguage: map[string]int{},
		ByStatus:   map[string]int{},
	}

	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM repos").Scan(&stats.TotalRepos); err != nil {
		return nil, apierror.New(apierror.ErrServiceUnavailable, "failed to count repos", err)
	}

	byLanguage := `
	SELECT CASE WHEN language = '' THEN 'Unknown' ELSE language END AS lang, COUNT(*)
	FROM repos GROUP BY lang
	`
	if err := s.scanCounts(ctx, byLanguage, stats.ByLanguage); err != nil {
		return nil, apierror.New(apierror.ErrServiceUnavailable, "failed to count repos by language", err)
	}

	byStatus := `
	SELECT CASE WHEN status = '' THEN 'unknown' ELSE status END AS st, COUNT(*)
	FROM repos GROUP BY st
	`
	if err := s.scanCounts(ctx, byStatus, stats.ByStatus); err != nil {
		return nil, apierror.New(apierror.ErrServiceUnavailable, "failed to count repos by status", err)
	}

	return stats, nil
}

// Tags returns the sorted list of distinct tags in use
func (s *SQLiteRepository) Tags(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT tags FROM repos")
	if err != nil {
		return nil, apierror.New(apierror.ErrServiceUnavailable, "failed to list tags", err)
	}
	defer rows.Close()

	seen := map[string]struct{}{}
	for rows.Next() {
		var tagsJSON string
		if err := rows.Scan(&tagsJSON); err != nil {
			return nil, apierror.New(apierror.ErrServiceUnavailable, "failed to scan tags row", err)
		}

		var tags []string
		if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
			return nil, apierror.New(apierror.ErrInternalError, "failed to deserialize tags", err)
		}

		for _, tag := range tags {
			seen[tag] = struct{}{}
		}
	}

	if err := rows.Err(); err != nil {
		return nil, apierror.New(apierror.ErrServiceUnavailable, "failed to list tags", err)
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return tags, nil
}

// CreateEvent appends an event to the audit trail of a repo
func (s *SQLiteRepository) CreateEvent(ctx context.Context, event *star.Event) error {
	if event == nil || event.RepoID == "" || event.Action == "" {
		return apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	now := time.Now().UTC().Truncate(time.Second)

	query := "INSERT INTO events (repo_id, action, message, created_at) VALUES (?, ?, ?, ?)"
	_, err := s.DB.ExecContext(ctx, query, event.RepoID, event.Action, event.Message, now.Format(time.RFC3339))
	if err != nil {
		msg := fmt.Sprintf("failed to insert event for repo %s", event.RepoID)
		return apierror.New(apierror.ErrServiceUnavailable, msg, err)
	}

	return nil
}

// ListEvents returns the audit trail of a repo, oldest first
func (s *SQLiteRepository) ListEvents(ctx context.Context, repoID string) ([]*star.Event, error) {
	if repoID == "" {
		return nil, apierror.New(apierror.ErrBadRequest, "invalid input", nil)
	}

	query := "SELECT id, repo_id, action, message, created_at FROM events WHERE repo_id = ? ORDER BY id"

	rows, err := s.DB.QueryContext(ctx, query, repoID)
	if err != nil {
		msg := fmt.Sprintf("failed to list events for repo %s", repoID)
		return nil, apierror.New(apierror.ErrServiceUnavailable, msg, err)
	}
	defer rows.Close()

	events := []*star.Event{}
	for rows.Next() {
		var event star.Event
		var createdAt string

		if err := rows.Scan(&event.ID, &event.RepoID, &event.Action, &event.Message, &createdAt); err != nil {
			return nil, apierror.New(apierror.ErrServiceUnavailable, "failed to scan event row", err)
		}

		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			event.CreatedAt = &t
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		msg := fmt.Sprintf("failed to list events for repo %s", repoID)
		return nil, apierror.New(apierror.ErrServiceUnavailable, msg, err)
	}

	return events, nil
}

func (s *SQLiteRepository) scanCounts(ctx context.Context, query string, counts map[string]int) error {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		counts[key] = count
	}

	return rows.Err()
}

// scanner covers both sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRepo(row scanner) (*star.Repo, error) {
	var repo star.Repo
	var tagsJSON, createdAt, modifiedAt string

	err := row.Scan(
		&repo.ID,
		&repo.URL,
		&repo.Name,
		&repo.Description,
		&repo.Language,
		&tagsJSON,
		&repo.Notes,
		&repo.Status,
		&repo.Priority,
		&createdAt,
		&modifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &repo.Tags); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize tags")
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		repo.CreatedAt = &t
	}

	if t, err := time.Parse(time.RFC3339, modifiedAt); err == nil {
		repo.ModifiedAt = &t
	}

	return &repo, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}

	j, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}

	return string(j), nil
}
