package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/mobuild/internal/build"
	"github.com/zjrosen/mobuild/internal/log"
)

const runColumns = `id, project, platform, mode, command, exit_code, status, artifact_path, error, started_at, duration_ms`

// Store persists runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	log.Debug(log.CatHistory, "Opening database", "path", path)
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		log.ErrorErr(log.CatHistory, "Failed to open database", err, "path", path)
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// One writer per CLI invocation.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		log.ErrorErr(log.CatHistory, "Failed to ping database", err, "path", path)
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts run.
func (s *Store) Save(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Project, string(run.Platform), string(run.Mode), run.Command, run.ExitCode,
		string(run.Status), nullString(run.ArtifactPath), nullString(run.Error),
		run.StartedAt.UnixMilli(), run.Duration.Milliseconds(),
	)
	if err != nil {
		log.ErrorErr(log.CatHistory, "Failed to save run", err, "id", run.ID)
		return fmt.Errorf("failed to insert run: %w", err)
	}
	log.Debug(log.CatHistory, "Saved run", "id", run.ID, "status", run.Status)
	return nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Project  string
	Platform build.Platform
	Limit    int
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any
	if filter.Project != "" {
		query += ` AND project = ?`
		args = append(args, filter.Project)
	}
	if filter.Platform != "" {
		query += ` AND platform = ?`
		args = append(args, string(filter.Platform))
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func scanRun(scanner interface{ Scan(...any) error }) (Run, error) {
	var (
		run          Run
		platform     string
		mode         string
		status       string
		artifactPath sql.NullString
		errText      sql.NullString
		startedAt    int64
		durationMs   int64
	)
	err := scanner.Scan(
		&run.ID, &run.Project, &platform, &mode, &run.Command, &run.ExitCode,
		&status, &artifactPath, &errText, &startedAt, &durationMs,
	)
	if err != nil {
		return Run{}, err
	}
	run.Platform = build.Platform(platform)
	run.Mode = build.Mode(mode)
	run.Status = Status(status)
	run.ArtifactPath = artifactPath.String
	run.Error = errText.String
	run.StartedAt = time.UnixMilli(startedAt)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
