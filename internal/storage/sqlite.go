// Package storage provides the export journal.
// It records every run and the terminal state of each visited page in a
// SQLite database, so exports can be audited and compared later.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/masahif/notion2md/internal/crawler"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("export run not found")

// RunInfo is a stored export run
type RunInfo struct {
	ID            int64
	StartURL      string
	Mode          string
	Status        string
	StartedAt     time.Time
	FinishedAt    sql.NullTime
	PagesExported int
	PagesSkipped  int
	FilesWritten  int
	BytesWritten  int64
	Failures      int
	Duration      time.Duration
}

// SQLiteJournal implements crawler.Journal using SQLite
type SQLiteJournal struct {
	db *sql.DB
}

var _ crawler.Journal = (*SQLiteJournal)(nil)

// NewSQLiteJournal opens or creates the journal database at dbPath
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	journal := &SQLiteJournal{db: db}

	if err := journal.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return journal, nil
}

// InitSchema creates the database schema
func (j *SQLiteJournal) InitSchema() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}

	for _, pragma := range pragmas {
		if _, err := j.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := j.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return j.SetMeta("schema_version", schemaVersion)
}

// Close closes the database connection
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// StartRun inserts a running export run and returns its id
func (j *SQLiteJournal) StartRun(startURL, mode string) (int64, error) {
	result, err := j.db.Exec(`
		INSERT INTO export_runs (start_url, mode, status, started_at)
		VALUES (?, ?, 'running', ?)
	`, startURL, mode, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return id, nil
}

// RecordPage stores the state of a page. A page recorded twice in the same
// run keeps the latest state.
func (j *SQLiteJournal) RecordPage(runID int64, rec *crawler.PageRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO page_visits (
			run_id, url, page_id, title, parent_id, state, output_path,
			status_code, content_hash, bytes_written, download_time_ms,
			failure_kind, error_message, visited_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, url) DO UPDATE SET
			page_id = excluded.page_id,
			title = excluded.title,
			parent_id = excluded.parent_id,
			state = excluded.state,
			output_path = excluded.output_path,
			status_code = excluded.status_code,
			content_hash = excluded.content_hash,
			bytes_written = excluded.bytes_written,
			download_time_ms = excluded.download_time_ms,
			failure_kind = excluded.failure_kind,
			error_message = excluded.error_message,
			visited_at = excluded.visited_at
	`,
		runID,
		rec.URL,
		nullString(rec.PageID),
		nullString(rec.Title),
		nullString(rec.ParentID),
		string(rec.State),
		nullString(rec.OutputPath),
		rec.StatusCode,
		nullString(rec.ContentHash),
		rec.BytesWritten,
		rec.DownloadTime.Milliseconds(),
		nullString(rec.FailureKind),
		nullString(rec.ErrorMessage),
		rec.VisitedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record page %s: %w", rec.URL, err)
	}
	return nil
}

// FinishRun marks a run completed and stores its totals
func (j *SQLiteJournal) FinishRun(runID int64, summary *crawler.Summary) error {
	result, err := j.db.Exec(`
		UPDATE export_runs SET
			status = 'completed',
			finished_at = ?,
			pages_exported = ?,
			pages_skipped = ?,
			files_written = ?,
			bytes_written = ?,
			failures = ?,
			duration_ms = ?
		WHERE id = ?
	`,
		time.Now().UTC(),
		summary.PagesExported,
		summary.PagesSkipped,
		summary.FilesWritten,
		summary.BytesWritten,
		len(summary.Failures),
		summary.Duration.Milliseconds(),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun returns a stored run
func (j *SQLiteJournal) GetRun(runID int64) (*RunInfo, error) {
	var (
		run        RunInfo
		durationMS sql.NullInt64
	)
	err := j.db.QueryRow(`
		SELECT id, start_url, mode, status, started_at, finished_at,
			pages_exported, pages_skipped, files_written, bytes_written,
			failures, duration_ms
		FROM export_runs
		WHERE id = ?
	`, runID).Scan(
		&run.ID, &run.StartURL, &run.Mode, &run.Status, &run.StartedAt, &run.FinishedAt,
		&run.PagesExported, &run.PagesSkipped, &run.FilesWritten, &run.BytesWritten,
		&run.Failures, &durationMS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	return &run, nil
}

// ListPages returns the pages recorded for a run in recording order
func (j *SQLiteJournal) ListPages(runID int64) ([]crawler.PageRecord, error) {
	rows, err := j.db.Query(`
		SELECT url, page_id, title, parent_id, state, output_path,
			status_code, content_hash, bytes_written, download_time_ms,
			failure_kind, error_message, visited_at
		FROM page_visits
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []crawler.PageRecord
	for rows.Next() {
		var (
			rec                                          crawler.PageRecord
			pageID, title, parentID, outputPath, hash    sql.NullString
			failureKind, errorMessage                    sql.NullString
			state                                        string
			statusCode, bytesWritten, downloadTimeMillis sql.NullInt64
		)
		if err := rows.Scan(
			&rec.URL, &pageID, &title, &parentID, &state, &outputPath,
			&statusCode, &hash, &bytesWritten, &downloadTimeMillis,
			&failureKind, &errorMessage, &rec.VisitedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		rec.PageID = pageID.String
		rec.Title = title.String
		rec.ParentID = parentID.String
		rec.State = crawler.PageState(state)
		rec.OutputPath = outputPath.String
		rec.StatusCode = int(statusCode.Int64)
		rec.ContentHash = hash.String
		rec.BytesWritten = int(bytesWritten.Int64)
		rec.DownloadTime = time.Duration(downloadTimeMillis.Int64) * time.Millisecond
		rec.FailureKind = failureKind.String
		rec.ErrorMessage = errorMessage.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}

	return records, nil
}

// GetMeta retrieves a metadata value
func (j *SQLiteJournal) GetMeta(key string) (string, error) {
	var value string
	err := j.db.QueryRow("SELECT value FROM journal_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta: %w", err)
	}
	return value, nil
}

// SetMeta stores a metadata value
func (j *SQLiteJournal) SetMeta(key, value string) error {
	_, err := j.db.Exec(
		"INSERT OR REPLACE INTO journal_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set meta: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
