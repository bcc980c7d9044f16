package database

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

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/filterpipe/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "history.db"

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores run reports in SQLite.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		pipeline_name TEXT NOT NULL,
		source TEXT,
		fingerprint TEXT,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		preflight_errors INTEGER DEFAULT 0,
		error_count INTEGER DEFAULT 0,
		warning_count INTEGER DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_pipeline ON runs(pipeline_name);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		pipeline_index INTEGER NOT NULL,
		filter_name TEXT,
		type TEXT NOT NULL,
		code INTEGER DEFAULT 0,
		progress INTEGER DEFAULT 0,
		text TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_messages_run ON run_messages(run_id);
	CREATE INDEX IF NOT EXISTS idx_messages_type ON run_messages(type);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a report and its messages in one transaction.
func (h *HistoryDB) SaveRun(ctx context.Context, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var finished any
	if !report.FinishedAt.IsZero() {
		finished = report.FinishedAt.UTC().Format(timestampLayout)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (run_id, pipeline_name, source, fingerprint, mode, status, started_at,
		finished_at, preflight_errors, error_count, warning_count, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		report.PipelineName,
		report.Source,
		report.Fingerprint,
		string(report.Mode),
		report.Status,
		report.StartedAt.UTC().Format(timestampLayout),
		finished,
		report.PreflightErrors,
		len(report.Errors()),
		len(report.Warnings()),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO run_messages (run_id, seq, pipeline_index, filter_name, type, code, progress, text)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	for seq, m := range report.Messages {
		if _, err := stmt.ExecContext(ctx,
			report.RunID, seq, m.PipelineIndex, m.FilterName, m.Type.String(), m.Code, m.Progress, m.Text,
		); err != nil {
			return fmt.Errorf("failed to save message %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun retrieves the full report of a run.
// It returns ErrRunNotFound if no run has the given ID.
func (h *HistoryDB) GetRun(ctx context.Context, runID string) (*model.RunReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE run_id = ?`, runID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// RunMetadata contains summary information about a stored run.
// It is used for listing history without loading full reports.
type RunMetadata struct {
	ID              int64
	RunID           string
	PipelineName    string
	Source          string
	Mode            model.RunMode
	Status          string
	StartedAt       time.Time
	FinishedAt      time.Time
	PreflightErrors int
	ErrorCount      int
	WarningCount    int
}

// ListRuns returns run metadata, newest first. An empty pipelineName
// lists every pipeline; a non-positive limit lists every run.
func (h *HistoryDB) ListRuns(ctx context.Context, pipelineName string, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, run_id, pipeline_name, source, mode, status, started_at, finished_at,
		preflight_errors, error_count, warning_count
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0)

	if pipelineName != "" {
		query += " AND pipeline_name = ?"
		args = append(args, pipelineName)
	}
	query += " ORDER BY started_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	results := make([]RunMetadata, 0)
	for rows.Next() {
		var meta RunMetadata
		var source sql.NullString
		var mode, started string
		var finished sql.NullString

		if err := rows.Scan(&meta.ID, &meta.RunID, &meta.PipelineName, &source, &mode, &meta.Status,
			&started, &finished, &meta.PreflightErrors, &meta.ErrorCount, &meta.WarningCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.Source = source.String
		meta.Mode = model.RunMode(mode)
		meta.StartedAt = parseTimestamp(started)
		if finished.Valid {
			meta.FinishedAt = parseTimestamp(finished.String)
		}
		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListPipelines returns the distinct names of recorded pipelines.
func (h *HistoryDB) ListPipelines(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT pipeline_name FROM runs ORDER BY pipeline_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetMessages returns the messages of a run in emission order. If types
// is not empty only messages of those types are returned.
func (h *HistoryDB) GetMessages(ctx context.Context, runID string, types ...model.MessageType) ([]model.PipelineMessage, error) {
	query := `
	SELECT pipeline_index, filter_name, type, code, progress, text
	FROM run_messages
	WHERE run_id = ?
	`
	args := []any{runID}
	if len(types) > 0 {
		query += " AND type IN (?" + strings.Repeat(",?", len(types)-1) + ")"
		for _, t := range types {
			args = append(args, t.String())
		}
	}
	query += " ORDER BY seq"

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	messages := make([]model.PipelineMessage, 0)
	for rows.Next() {
		var m model.PipelineMessage
		var filterName, text sql.NullString
		var typ string
		if err := rows.Scan(&m.PipelineIndex, &filterName, &typ, &m.Code, &m.Progress, &text); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.FilterName = filterName.String
		m.Text = text.String
		m.Type = model.ParseMessageType(typ)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// DeleteRun removes a run and its messages.
// It returns ErrRunNotFound if no run has the given ID.
func (h *HistoryDB) DeleteRun(ctx context.Context, runID string) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_messages WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return tx.Commit()
}

// timestampLayout is fixed-width so that stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses a stored timestamp, returning the zero time if
// no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
