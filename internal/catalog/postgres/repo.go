// Package postgres is the PostgreSQL catalog backend (pgx connection pool).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"apiweaver/internal/catalog"
)

func init() {
	catalog.Register("postgres", New)
}

// Repo implements catalog.Repository for PostgreSQL. Properties are loaded
// with COPY inside the same transaction as the run row.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a pool for cfg.DSN and checks connectivity.
func New(ctx context.Context, cfg catalog.Config) (catalog.Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("postgres: empty dsn")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS ` + catalog.RunsTable + ` (
	id BIGSERIAL PRIMARY KEY,
	source_url TEXT NOT NULL,
	heading_id TEXT NOT NULL,
	schema_name TEXT NOT NULL,
	output_path TEXT NOT NULL,
	property_count INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS ` + catalog.PropertiesTable + ` (
	run_id BIGINT NOT NULL REFERENCES ` + catalog.RunsTable + `(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	vendor_type TEXT NOT NULL,
	type TEXT NOT NULL,
	format TEXT NOT NULL,
	required BOOLEAN NOT NULL,
	read_only BOOLEAN NOT NULL,
	description TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
)`,
}

// EnsureTables is idempotent.
func (r *Repo) EnsureTables(ctx context.Context) error {
	for _, stmt := range ddl {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure catalog tables: %w", err)
		}
	}
	return nil
}

const insertRunSQL = `INSERT INTO ` + catalog.RunsTable + ` (source_url, heading_id, schema_name, output_path, property_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

func (r *Repo) SaveRun(ctx context.Context, run *catalog.Run) (int64, error) {
	if run == nil {
		return 0, errors.New("postgres: nil run")
	}

	var id int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertRunSQL,
			run.SourceURL, run.HeadingID, run.SchemaName, run.OutputPath, len(run.Properties), run.CreatedAt.UTC(),
		).Scan(&id); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		if len(run.Properties) == 0 {
			return nil
		}
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{catalog.PropertiesTable},
			catalog.PropertyColumns,
			pgx.CopyFromRows(catalog.PropertyRows(id, run)),
		)
		if err != nil {
			return fmt.Errorf("copy properties: %w", err)
		}
		if int(n) != len(run.Properties) {
			return fmt.Errorf("copy properties: wrote %d of %d rows", n, len(run.Properties))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("postgres: save run: %w", err)
	}
	return id, nil
}

const listRunsSQL = `SELECT id, source_url, heading_id, schema_name, output_path, property_count, created_at
FROM ` + catalog.RunsTable + ` ORDER BY id DESC LIMIT $1`

func (r *Repo) ListRuns(ctx context.Context, limit int) ([]catalog.Run, error) {
	rows, err := r.pool.Query(ctx, listRunsSQL, catalog.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Run, error) {
		var run catalog.Run
		err := row.Scan(&run.ID, &run.SourceURL, &run.HeadingID, &run.SchemaName, &run.OutputPath, &run.PropertyCount, &run.CreatedAt)
		run.CreatedAt = run.CreatedAt.UTC()
		return run, err
	})
}
