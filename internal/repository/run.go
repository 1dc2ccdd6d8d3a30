package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parchlabs/extraction-tracker/constants"
	"github.com/parchlabs/extraction-tracker/internal/common"
	"github.com/parchlabs/extraction-tracker/internal/entity"
)

// RunCreateArgs carries the initial state of a run. CreatedAt is an optional
// override; empty string means "use the transaction timestamp". Status is
// written as supplied, conventionally "pending".
type RunCreateArgs struct {
	ID          string              `json:"id"`
	Mode        constants.RunMode   `json:"mode"`
	TemplateID  string              `json:"template_id"`
	Status      constants.RunStatus `json:"status"`
	Provider    string              `json:"provider"`
	DocumentKey *string             `json:"document_key,omitempty"`
	Filename    string              `json:"filename"`
	MimeType    string              `json:"mime_type"`
	ByteSize    int64               `json:"byte_size"`
	CreatedAt   string              `json:"created_at"`
}

type RunMarkProcessingArgs struct {
	ID        string `json:"id"`
	StartedAt string `json:"started_at"`
}

type RunStorePayloadArgs struct {
	ID                      string `json:"id"`
	MDResults               string `json:"md_results"`
	LayoutDetailsJSON       string `json:"layout_details_json"`
	LayoutVisualizationJSON string `json:"layout_visualization_json"`
	ExtractedFieldsJSON     string `json:"extracted_fields_json"`
	RawProviderJSON         string `json:"raw_provider_json"`
	PageCount               int    `json:"page_count"`
}

type RunMarkCompletedArgs struct {
	ID          string `json:"id"`
	CompletedAt string `json:"completed_at"`
	TimingJSON  string `json:"timing_json"`
	StatsJSON   string `json:"stats_json"`
}

type RunMarkFailedArgs struct {
	ID           string `json:"id"`
	CompletedAt  string `json:"completed_at"`
	TimingJSON   string `json:"timing_json"`
	ErrorMessage string `json:"error_message"`
}

// ListRunsFilter narrows List results. Zero values match everything.
type ListRunsFilter struct {
	Status     constants.RunStatus
	TemplateID string
	Limit      int
}

// RunRepository owns the run lifecycle. Each mutation is one atomic
// transaction; mutations addressing a missing run are silent no-ops rather
// than errors. The store does not validate status transitions: the
// pending -> processing -> completed/failed protocol is enforced by callers.
type RunRepository interface {
	// Create inserts or fully replaces the run row, resetting all progress
	// fields regardless of prior state. Retried creates are therefore safe;
	// the caller owns whether an id reuse is intentional.
	Create(ctx context.Context, args RunCreateArgs) error
	MarkProcessing(ctx context.Context, args RunMarkProcessingArgs) error
	// StorePayload updates the run's page count (no-op when the run is
	// missing) and upserts the payload row unconditionally, both in the same
	// transaction.
	StorePayload(ctx context.Context, args RunStorePayloadArgs) error
	MarkCompleted(ctx context.Context, args RunMarkCompletedArgs) error
	MarkFailed(ctx context.Context, args RunMarkFailedArgs) error
	// Delete removes the payload row and the run row in one transaction. It
	// is total: deleting an absent run succeeds.
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.Run, error)
	List(ctx context.Context, filter ListRunsFilter) ([]entity.Run, error)
	GetPayload(ctx context.Context, runID string) (*entity.RunPayload, error)
}

type runRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewRunRepository(db *DB, logger *slog.Logger) RunRepository {
	return &runRepository{
		db:     db,
		logger: logger,
	}
}

func (r *runRepository) Create(ctx context.Context, args RunCreateArgs) error {
	err := r.db.inTx(ctx, func(tc *txContext) error {
		provider := args.Provider
		row := entity.Run{
			ID:           args.ID,
			Mode:         args.Mode,
			TemplateID:   args.TemplateID,
			Status:       args.Status,
			Filename:     args.Filename,
			MimeType:     args.MimeType,
			ByteSize:     args.ByteSize,
			PageCount:    0,
			TimingJSON:   "{}",
			StatsJSON:    "{}",
			ErrorMessage: "",
			CreatedAt:    resolveTimestamp(args.CreatedAt, "", tc.now),
			StartedAt:    "",
			CompletedAt:  "",
			Provider:     &provider,
			DocumentKey:  args.DocumentKey,
		}

		var existingID string
		found := true
		err := tc.tx.GetContext(ctx, &existingID,
			tc.tx.Rebind(`SELECT id FROM runs WHERE id = ?`), row.ID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("find run: %w", err)
			}
			found = false
		}

		if found {
			_, err = tc.tx.ExecContext(ctx, tc.tx.Rebind(`
                                UPDATE runs
                                SET mode = ?, template_id = ?, status = ?, filename = ?, mime_type = ?,
                                    byte_size = ?, page_count = ?, timing_json = ?, stats_json = ?,
                                    error_message = ?, created_at = ?, started_at = ?, completed_at = ?,
                                    provider = ?, document_key = ?
                                WHERE id = ?`),
				string(row.Mode), row.TemplateID, string(row.Status), row.Filename, row.MimeType,
				row.ByteSize, row.PageCount, row.TimingJSON, row.StatsJSON,
				row.ErrorMessage, row.CreatedAt, row.StartedAt, row.CompletedAt,
				row.Provider, row.DocumentKey, row.ID)
		} else {
			_, err = tc.tx.ExecContext(ctx, tc.tx.Rebind(`
                                INSERT INTO runs (id, mode, template_id, status, filename, mime_type,
                                                  byte_size, page_count, timing_json, stats_json,
                                                  error_message, created_at, started_at, completed_at,
                                                  provider, document_key)
                                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				row.ID, string(row.Mode), row.TemplateID, string(row.Status), row.Filename, row.MimeType,
				row.ByteSize, row.PageCount, row.TimingJSON, row.StatsJSON,
				row.ErrorMessage, row.CreatedAt, row.StartedAt, row.CompletedAt,
				row.Provider, row.DocumentKey)
		}
		if err != nil {
			return fmt.Errorf("write run: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to create run", "run_id", args.ID, "error", err)
		return err
	}
	r.logger.Info("run created", "run_id", args.ID, "mode", args.Mode, "status", args.Status, "filename", args.Filename)
	return nil
}

func (r *runRepository) MarkProcessing(ctx context.Context, args RunMarkProcessingArgs) error {
	err := r.updateExisting(ctx, args.ID, "mark processing",
		`UPDATE runs SET status = ?, started_at = ? WHERE id = ?`,
		constants.RunStatusProcessing.String(), args.StartedAt, args.ID)
	if err != nil {
		r.logger.Error("failed to mark run processing", "run_id", args.ID, "error", err)
		return err
	}
	r.logger.Info("run processing", "run_id", args.ID, "started_at", args.StartedAt)
	return nil
}

func (r *runRepository) StorePayload(ctx context.Context, args RunStorePayloadArgs) error {
	err := r.db.inTx(ctx, func(tc *txContext) error {
		var existingID string
		err := tc.tx.GetContext(ctx, &existingID,
			tc.tx.Rebind(`SELECT id FROM runs WHERE id = ?`), args.ID)
		switch {
		case err == nil:
			if _, err := tc.tx.ExecContext(ctx,
				tc.tx.Rebind(`UPDATE runs SET page_count = ? WHERE id = ?`),
				args.PageCount, args.ID); err != nil {
				return fmt.Errorf("update run page count: %w", err)
			}
		case errors.Is(err, sql.ErrNoRows):
			// The payload write below still happens: it is not re-checked
			// against the owning run.
			r.logger.Debug("store payload for missing run", "run_id", args.ID)
		default:
			return fmt.Errorf("find run: %w", err)
		}

		return upsertPayload(ctx, tc, entity.RunPayload{
			RunID:                   args.ID,
			MDResults:               args.MDResults,
			LayoutDetailsJSON:       args.LayoutDetailsJSON,
			LayoutVisualizationJSON: args.LayoutVisualizationJSON,
			ExtractedFieldsJSON:     args.ExtractedFieldsJSON,
			RawProviderJSON:         args.RawProviderJSON,
		})
	})
	if err != nil {
		r.logger.Error("failed to store run payload", "run_id", args.ID, "error", err)
		return err
	}
	r.logger.Info("run payload stored", "run_id", args.ID, "page_count", args.PageCount)
	return nil
}

func (r *runRepository) MarkCompleted(ctx context.Context, args RunMarkCompletedArgs) error {
	err := r.updateExisting(ctx, args.ID, "mark completed",
		`UPDATE runs SET status = ?, completed_at = ?, timing_json = ?, stats_json = ? WHERE id = ?`,
		constants.RunStatusCompleted.String(), args.CompletedAt, args.TimingJSON, args.StatsJSON, args.ID)
	if err != nil {
		r.logger.Error("failed to mark run completed", "run_id", args.ID, "error", err)
		return err
	}
	r.logger.Info("run completed", "run_id", args.ID, "completed_at", args.CompletedAt)
	return nil
}

func (r *runRepository) MarkFailed(ctx context.Context, args RunMarkFailedArgs) error {
	err := r.updateExisting(ctx, args.ID, "mark failed",
		`UPDATE runs SET status = ?, completed_at = ?, timing_json = ?, error_message = ? WHERE id = ?`,
		constants.RunStatusFailed.String(), args.CompletedAt, args.TimingJSON, args.ErrorMessage, args.ID)
	if err != nil {
		r.logger.Error("failed to mark run failed", "run_id", args.ID, "error", err)
		return err
	}
	r.logger.Warn("run failed", "run_id", args.ID, "error_message", args.ErrorMessage)
	return nil
}

// updateExisting applies a run update guarded by row existence: a missing id
// is a silent no-op, matching the lifecycle contract.
func (r *runRepository) updateExisting(ctx context.Context, id, what, query string, queryArgs ...any) error {
	return r.db.inTx(ctx, func(tc *txContext) error {
		var existingID string
		err := tc.tx.GetContext(ctx, &existingID,
			tc.tx.Rebind(`SELECT id FROM runs WHERE id = ?`), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				r.logger.Debug("update skipped, run not found", "run_id", id, "op", what)
				return nil
			}
			return fmt.Errorf("find run: %w", err)
		}
		if _, err := tc.tx.ExecContext(ctx, tc.tx.Rebind(query), queryArgs...); err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		return nil
	})
}

func (r *runRepository) Delete(ctx context.Context, id string) error {
	err := r.db.inTx(ctx, func(tc *txContext) error {
		if _, err := tc.tx.ExecContext(ctx,
			tc.tx.Rebind(`DELETE FROM run_payloads WHERE run_id = ?`), id); err != nil {
			return fmt.Errorf("delete run payload: %w", err)
		}
		if _, err := tc.tx.ExecContext(ctx,
			tc.tx.Rebind(`DELETE FROM runs WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to delete run", "run_id", id, "error", err)
		return err
	}
	r.logger.Info("run deleted", "run_id", id)
	return nil
}

func (r *runRepository) GetByID(ctx context.Context, id string) (*entity.Run, error) {
	var run entity.Run
	err := r.db.GetContext(ctx, &run, r.db.Rebind(`SELECT * FROM runs WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		r.logger.Error("failed to get run", "run_id", id, "error", err)
		return nil, fmt.Errorf("select run: %w", err)
	}
	return &run, nil
}

func (r *runRepository) List(ctx context.Context, filter ListRunsFilter) ([]entity.Run, error) {
	query := `SELECT * FROM runs`
	conds := []string{}
	args := []any{}
	if filter.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, string(filter.Status))
	}
	if filter.TemplateID != "" {
		conds = append(conds, `template_id = ?`)
		args = append(args, filter.TemplateID)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	runs := []entity.Run{}
	if err := r.db.SelectContext(ctx, &runs, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("failed to list runs", "error", err)
		return nil, fmt.Errorf("select runs: %w", err)
	}
	return runs, nil
}
