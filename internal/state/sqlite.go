package state

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore implements Store over a SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates an unopened store.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens the database at path. Use ":memory:" for an in-memory store.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema applies the embedded schema script.
func (s *SQLiteStore) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func generateID() string {
	return uuid.New().String()
}

// --- Artifact operations ---

// SaveArtifact inserts or replaces the artifact for a.Path, tags included.
func (s *SQLiteStore) SaveArtifact(a *Artifact) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if a.ID == "" {
		a.ID = generateID()
	}
	a.SavedAt = time.Now().UTC()

	if _, err := tx.Exec(`DELETE FROM artifacts WHERE path = ?`, a.Path); err != nil {
		return fmt.Errorf("failed to replace artifact: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO artifacts (id, path, mtime, source, prologue, theme, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Path, a.MTime.UTC(), a.Source, a.Prologue, a.Theme, a.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	for _, tag := range a.Tags {
		_, err = tx.Exec(
			`INSERT INTO tags (artifact_id, name, line, attrs) VALUES (?, ?, ?, ?)`,
			a.ID, tag.Name, tag.Line, strings.Join(tag.DeclaredAttrs, ","),
		)
		if err != nil {
			return fmt.Errorf("failed to save tag %q: %w", tag.Name, err)
		}
	}
	return tx.Commit()
}

// GetArtifact retrieves the artifact stored for path.
func (s *SQLiteStore) GetArtifact(path string) (*Artifact, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	a := &Artifact{}
	err := s.db.QueryRow(
		`SELECT id, path, mtime, source, prologue, theme, saved_at
		 FROM artifacts WHERE path = ?`, path,
	).Scan(&a.ID, &a.Path, &a.MTime, &a.Source, &a.Prologue, &a.Theme, &a.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	if a.Tags, err = s.artifactTags(a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

// ListArtifacts returns all stored artifacts ordered by path.
func (s *SQLiteStore) ListArtifacts() ([]*Artifact, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, path, mtime, source, prologue, theme, saved_at
		 FROM artifacts ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var out []*Artifact
	for rows.Next() {
		a := &Artifact{}
		if err := rows.Scan(&a.ID, &a.Path, &a.MTime, &a.Source, &a.Prologue, &a.Theme, &a.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate artifacts: %w", err)
	}
	for _, a := range out {
		if a.Tags, err = s.artifactTags(a.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) artifactTags(artifactID string) ([]TagRecord, error) {
	rows, err := s.db.Query(
		`SELECT name, line, attrs FROM tags WHERE artifact_id = ? ORDER BY name`, artifactID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []TagRecord
	for rows.Next() {
		var t TagRecord
		var attrs string
		if err := rows.Scan(&t.Name, &t.Line, &attrs); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		if attrs != "" {
			t.DeclaredAttrs = strings.Split(attrs, ",")
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// DeleteArtifact removes the artifact for path, if present.
func (s *SQLiteStore) DeleteArtifact(path string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(`DELETE FROM artifacts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// Clear removes every stored artifact. Build history is kept.
func (s *SQLiteStore) Clear() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if _, err := s.db.Exec(`DELETE FROM artifacts`); err != nil {
		return fmt.Errorf("failed to clear artifacts: %w", err)
	}
	return nil
}

// --- Build operations ---

// StartBuild records the start of a compile run.
func (s *SQLiteStore) StartBuild() (*Build, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	b := &Build{
		ID:        generateID(),
		StartedAt: time.Now().UTC(),
		Status:    "running",
	}
	_, err := s.db.Exec(
		`INSERT INTO builds (id, started_at, status) VALUES (?, ?, ?)`,
		b.ID, b.StartedAt, string(b.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start build: %w", err)
	}
	return b, nil
}

// CompleteBuild finishes a recorded build.
func (s *SQLiteStore) CompleteBuild(id string, status BuildStatus, errMsg string, templates int) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errPtr *string
	if errMsg != "" {
		errPtr = &errMsg
	}
	result, err := s.db.Exec(
		`UPDATE builds SET status = ?, completed_at = ?, error = ?, templates = ? WHERE id = ?`,
		string(status), now, errPtr, templates, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete build: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("build not found: %s", id)
	}
	return nil
}

// ListBuilds returns the most recent builds, newest first.
func (s *SQLiteStore) ListBuilds(limit int) ([]*Build, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, started_at, completed_at, status, error, templates
		 FROM builds ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer rows.Close()

	var out []*Build
	for rows.Next() {
		b := &Build{}
		var completedAt sql.NullTime
		var errMsg sql.NullString
		var status string
		if err := rows.Scan(&b.ID, &b.StartedAt, &completedAt, &status, &errMsg, &b.Templates); err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		b.Status = BuildStatus(status)
		if completedAt.Valid {
			b.CompletedAt = &completedAt.Time
		}
		if errMsg.Valid {
			b.Error = errMsg.String
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
