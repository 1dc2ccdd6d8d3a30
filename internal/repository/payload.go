package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parchlabs/extraction-tracker/internal/common"
	"github.com/parchlabs/extraction-tracker/internal/entity"
)

// upsertPayload writes the full payload row inside the caller's transaction,
// inserting when no row exists for the run id, else replacing every column.
// It runs unconditionally; StorePayload does not gate it on the owning run.
func upsertPayload(ctx context.Context, tc *txContext, p entity.RunPayload) error {
	var existingID string
	found := true
	err := tc.tx.GetContext(ctx, &existingID,
		tc.tx.Rebind(`SELECT run_id FROM run_payloads WHERE run_id = ?`), p.RunID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("find run payload: %w", err)
		}
		found = false
	}

	if found {
		_, err = tc.tx.ExecContext(ctx, tc.tx.Rebind(`
                        UPDATE run_payloads
                        SET md_results = ?, layout_details_json = ?, layout_visualization_json = ?,
                            extracted_fields_json = ?, raw_provider_json = ?
                        WHERE run_id = ?`),
			p.MDResults, p.LayoutDetailsJSON, p.LayoutVisualizationJSON,
			p.ExtractedFieldsJSON, p.RawProviderJSON, p.RunID)
	} else {
		_, err = tc.tx.ExecContext(ctx, tc.tx.Rebind(`
                        INSERT INTO run_payloads (run_id, md_results, layout_details_json,
                                                  layout_visualization_json, extracted_fields_json,
                                                  raw_provider_json)
                        VALUES (?, ?, ?, ?, ?, ?)`),
			p.RunID, p.MDResults, p.LayoutDetailsJSON, p.LayoutVisualizationJSON,
			p.ExtractedFieldsJSON, p.RawProviderJSON)
	}
	if err != nil {
		return fmt.Errorf("write run payload: %w", err)
	}
	return nil
}

func (r *runRepository) GetPayload(ctx context.Context, runID string) (*entity.RunPayload, error) {
	var p entity.RunPayload
	err := r.db.GetContext(ctx, &p, r.db.Rebind(`SELECT * FROM run_payloads WHERE run_id = ?`), runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		r.logger.Error("failed to get run payload", "run_id", runID, "error", err)
		return nil, fmt.Errorf("select run payload: %w", err)
	}
	return &p, nil
}
