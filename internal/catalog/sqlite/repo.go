// Package sqlite is the SQLite catalog backend (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"apiweaver/internal/catalog"
)

// Repo implements catalog.Repository for SQLite.
//
// SQLite has no timestamp type; created_at is stored as RFC3339Nano text so
// it round-trips exactly and sorts lexically.
type Repo struct {
	db *sql.DB
}

func init() {
	catalog.Register("sqlite", New)
}

// New opens the database at cfg.DSN (a file path or ":memory:").
func New(ctx context.Context, cfg catalog.Config) (catalog.Repository, error) {
	dsn := cfg.DSN
	if strings.TrimSpace(dsn) == "" {
		dsn = "apiweaver.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: ":memory:" databases are per connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS ` + catalog.RunsTable + ` (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_url TEXT NOT NULL,
	heading_id TEXT NOT NULL,
	schema_name TEXT NOT NULL,
	output_path TEXT NOT NULL,
	property_count INTEGER NOT NULL,
	created_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS ` + catalog.PropertiesTable + ` (
	run_id INTEGER NOT NULL REFERENCES ` + catalog.RunsTable + `(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	vendor_type TEXT NOT NULL,
	type TEXT NOT NULL,
	format TEXT NOT NULL,
	required INTEGER NOT NULL,
	read_only INTEGER NOT NULL,
	description TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
)`,
}

// EnsureTables is idempotent.
func (r *Repo) EnsureTables(ctx context.Context) error {
	for _, stmt := range ddl {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: ensure catalog tables: %w", err)
		}
	}
	return nil
}

func (r *Repo) SaveRun(ctx context.Context, run *catalog.Run) (id int64, err error) {
	if run == nil {
		return 0, fmt.Errorf("sqlite: nil run")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO `+catalog.RunsTable+` (source_url, heading_id, schema_name, output_path, property_count, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		run.SourceURL, run.HeadingID, run.SchemaName, run.OutputPath, len(run.Properties), formatTime(run.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert run: %w", err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, err
	}

	if len(run.Properties) > 0 {
		q := insertPropertiesSQL(len(run.Properties))
		args := make([]any, 0, len(run.Properties)*len(catalog.PropertyColumns))
		for _, row := range catalog.PropertyRows(id, run) {
			args = append(args, row...)
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return 0, fmt.Errorf("sqlite: insert properties: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repo) ListRuns(ctx context.Context, limit int) ([]catalog.Run, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source_url, heading_id, schema_name, output_path, property_count, created_at
FROM `+catalog.RunsTable+` ORDER BY id DESC LIMIT ?`, catalog.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Run
	for rows.Next() {
		var run catalog.Run
		var created string
		if err := rows.Scan(&run.ID, &run.SourceURL, &run.HeadingID, &run.SchemaName, &run.OutputPath, &run.PropertyCount, &created); err != nil {
			return nil, err
		}
		if run.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("sqlite: run %d: %w", run.ID, err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func insertPropertiesSQL(n int) string {
	cols := make([]string, len(catalog.PropertyColumns))
	for i, c := range catalog.PropertyColumns {
		cols[i] = sqlIdent(c)
	}
	tuple := "(" + strings.TrimRight(strings.Repeat("?,", len(cols)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(catalog.PropertiesTable)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime accepts what formatTime writes plus the layouts other SQLite
// tools commonly produce. Values without a zone are UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}

	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
	} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	if ts, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", s)
}
