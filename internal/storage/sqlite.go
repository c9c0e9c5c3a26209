// Package storage persists classification run history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/salespatriot/fscflow/internal/common"
	"github.com/salespatriot/fscflow/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the history Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage opens (or creates) the history database at dbPath.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("%w: database path is required", common.ErrInvalidConfig)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Migrate creates the runs table if needed.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			company_name TEXT NOT NULL,
			website_url TEXT NOT NULL DEFAULT '',
			email_domain TEXT NOT NULL DEFAULT '',
			attachment_refs TEXT NOT NULL DEFAULT '[]',
			description TEXT NOT NULL DEFAULT '',
			matches TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate runs table: %w", err)
	}
	return nil
}

// SaveRun persists one classification run.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run with an id is required")
	}

	refs, err := json.Marshal(run.AttachmentRefs)
	if err != nil {
		return fmt.Errorf("failed to marshal attachment refs: %w", err)
	}
	matches, err := json.Marshal(run.Result.Matches)
	if err != nil {
		return fmt.Errorf("failed to marshal matches: %w", err)
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, company_name, website_url, email_domain, attachment_refs, description, matches, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CompanyName, run.WebsiteURL, run.EmailDomain, string(refs), run.Result.CompanyDescription, string(matches), createdAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun loads one run by id.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, company_name, website_url, email_domain, attachment_refs, description, matches, created_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_name, website_url, email_domain, attachment_refs, description, matches, created_at
		FROM runs ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var refs, matches string
	if err := row.Scan(&run.ID, &run.CompanyName, &run.WebsiteURL, &run.EmailDomain, &refs, &run.Result.CompanyDescription, &matches, &run.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(refs), &run.AttachmentRefs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attachment refs: %w", err)
	}
	if err := json.Unmarshal([]byte(matches), &run.Result.Matches); err != nil {
		return nil, fmt.Errorf("failed to unmarshal matches: %w", err)
	}
	return &run, nil
}
