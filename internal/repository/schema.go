package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// bootstrap applies the schema statements in a single transaction. Every
// statement is idempotent, so bootstrap is safe to run on every open. There is
// deliberately no migration engine and no declared foreign key from
// run_payloads to runs; ownership is enforced by the delete operation instead.
func bootstrap(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin bootstrap: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS templates (
                id TEXT PRIMARY KEY,
                name TEXT NOT NULL,
                description TEXT NOT NULL DEFAULT '',
                schema_json TEXT NOT NULL DEFAULT '',
                extraction_rules TEXT NOT NULL DEFAULT '',
                is_active BOOLEAN NOT NULL DEFAULT TRUE,
                created_at TEXT NOT NULL DEFAULT '',
                updated_at TEXT NOT NULL DEFAULT ''
        );`,
	`CREATE TABLE IF NOT EXISTS runs (
                id TEXT PRIMARY KEY,
                mode TEXT NOT NULL DEFAULT '',
                template_id TEXT NOT NULL DEFAULT '',
                status TEXT NOT NULL DEFAULT '',
                filename TEXT NOT NULL DEFAULT '',
                mime_type TEXT NOT NULL DEFAULT '',
                byte_size BIGINT NOT NULL DEFAULT 0,
                page_count INTEGER NOT NULL DEFAULT 0,
                timing_json TEXT NOT NULL DEFAULT '{}',
                stats_json TEXT NOT NULL DEFAULT '{}',
                error_message TEXT NOT NULL DEFAULT '',
                created_at TEXT NOT NULL DEFAULT '',
                started_at TEXT NOT NULL DEFAULT '',
                completed_at TEXT NOT NULL DEFAULT '',
                provider TEXT,
                document_key TEXT
        );`,
	`CREATE TABLE IF NOT EXISTS run_payloads (
                run_id TEXT PRIMARY KEY,
                md_results TEXT NOT NULL DEFAULT '',
                layout_details_json TEXT NOT NULL DEFAULT '',
                layout_visualization_json TEXT NOT NULL DEFAULT '',
                extracted_fields_json TEXT NOT NULL DEFAULT '',
                raw_provider_json TEXT NOT NULL DEFAULT ''
        );`,
	`CREATE INDEX IF NOT EXISTS idx_runs_status_created ON runs(status, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_runs_template ON runs(template_id);`,
}
