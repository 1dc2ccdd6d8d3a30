package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/parchlabs/extraction-tracker/internal/common"
	"github.com/parchlabs/extraction-tracker/internal/entity"
)

// TemplateUpsertArgs carries the full template field set. CreatedAt and
// UpdatedAt are optional overrides; empty string means "not supplied".
type TemplateUpsertArgs struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	SchemaJSON      string `json:"schema_json"`
	ExtractionRules string `json:"extraction_rules"`
	IsActive        bool   `json:"is_active"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type TemplateRepository interface {
	// Upsert creates or fully replaces the template row. It is total over its
	// input domain: no prior row state makes it fail.
	Upsert(ctx context.Context, args TemplateUpsertArgs) error
	// Deactivate flags the template inactive. Missing id is a silent no-op;
	// templates are never hard-deleted.
	Deactivate(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.Template, error)
	List(ctx context.Context, onlyActive bool) ([]entity.Template, error)
}

type templateRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewTemplateRepository(db *DB, logger *slog.Logger) TemplateRepository {
	return &templateRepository{
		db:     db,
		logger: logger,
	}
}

func (r *templateRepository) Upsert(ctx context.Context, args TemplateUpsertArgs) error {
	err := r.db.inTx(ctx, func(tc *txContext) error {
		var existing entity.Template
		found := true
		err := tc.tx.GetContext(ctx, &existing,
			tc.tx.Rebind(`SELECT * FROM templates WHERE id = ?`), args.ID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("find template: %w", err)
			}
			found = false
		}

		prior := ""
		if found {
			prior = existing.CreatedAt
		}
		row := entity.Template{
			ID:              args.ID,
			Name:            args.Name,
			Description:     args.Description,
			SchemaJSON:      args.SchemaJSON,
			ExtractionRules: args.ExtractionRules,
			IsActive:        args.IsActive,
			CreatedAt:       resolveTimestamp(args.CreatedAt, prior, tc.now),
			UpdatedAt:       resolveTimestamp(args.UpdatedAt, "", tc.now),
		}

		if found {
			_, err = tc.tx.ExecContext(ctx, tc.tx.Rebind(`
                                UPDATE templates
                                SET name = ?, description = ?, schema_json = ?, extraction_rules = ?,
                                    is_active = ?, created_at = ?, updated_at = ?
                                WHERE id = ?`),
				row.Name, row.Description, row.SchemaJSON, row.ExtractionRules,
				row.IsActive, row.CreatedAt, row.UpdatedAt, row.ID)
		} else {
			_, err = tc.tx.ExecContext(ctx, tc.tx.Rebind(`
                                INSERT INTO templates (id, name, description, schema_json, extraction_rules,
                                                       is_active, created_at, updated_at)
                                VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
				row.ID, row.Name, row.Description, row.SchemaJSON, row.ExtractionRules,
				row.IsActive, row.CreatedAt, row.UpdatedAt)
		}
		if err != nil {
			return fmt.Errorf("write template: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to upsert template", "template_id", args.ID, "error", err)
		return err
	}
	r.logger.Info("template upserted", "template_id", args.ID, "is_active", args.IsActive)
	return nil
}

func (r *templateRepository) Deactivate(ctx context.Context, id string) error {
	err := r.db.inTx(ctx, func(tc *txContext) error {
		var existingID string
		err := tc.tx.GetContext(ctx, &existingID,
			tc.tx.Rebind(`SELECT id FROM templates WHERE id = ?`), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				r.logger.Debug("deactivate skipped, template not found", "template_id", id)
				return nil
			}
			return fmt.Errorf("find template: %w", err)
		}
		_, err = tc.tx.ExecContext(ctx,
			tc.tx.Rebind(`UPDATE templates SET is_active = ?, updated_at = ? WHERE id = ?`),
			false, tc.now, id)
		if err != nil {
			return fmt.Errorf("deactivate template: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to deactivate template", "template_id", id, "error", err)
		return err
	}
	return nil
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*entity.Template, error) {
	var t entity.Template
	err := r.db.GetContext(ctx, &t, r.db.Rebind(`SELECT * FROM templates WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		r.logger.Error("failed to get template", "template_id", id, "error", err)
		return nil, fmt.Errorf("select template: %w", err)
	}
	return &t, nil
}

func (r *templateRepository) List(ctx context.Context, onlyActive bool) ([]entity.Template, error) {
	query := `SELECT * FROM templates`
	args := []any{}
	if onlyActive {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at, id`

	templates := []entity.Template{}
	if err := r.db.SelectContext(ctx, &templates, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("failed to list templates", "error", err)
		return nil, fmt.Errorf("select templates: %w", err)
	}
	return templates, nil
}
