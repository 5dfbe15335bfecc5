package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	contracts "pipecrm/contracts/mq"
	"pipecrm/internal/catalog"
	"pipecrm/internal/model"
	"pipecrm/pkg/outbox"
	"pipecrm/pkg/trace"
)

type LeadRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	stages *catalog.StatusCatalog
	logger *zap.Logger
}

func NewLeadRepository(db *pgxpool.Pool, ob *outbox.Repository, stages *catalog.StatusCatalog, logger *zap.Logger) *LeadRepository {
	return &LeadRepository{db: db, outbox: ob, stages: stages, logger: logger}
}

func (r *LeadRepository) ListByUser(ctx context.Context, userID int) ([]model.Lead, error) {
	r.logger.Debug("Listing leads for user", zap.Int("user_id", userID))
	query := `
        SELECT id, user_id, name, phone, score, stage_id, created_at
        FROM leads
        WHERE user_id = $1
        ORDER BY created_at ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query leads",
			zap.Error(err),
			zap.Int("user_id", userID),
		)
		return nil, err
	}
	defer rows.Close()

	leads := []model.Lead{}
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(
			&l.ID,
			&l.UserID,
			&l.Name,
			&l.Phone,
			&l.Score,
			&l.StageID,
			&l.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan lead row",
				zap.Error(err),
				zap.Int("user_id", userID),
			)
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) Get(ctx context.Context, leadID int) (model.Lead, error) {
	query := `
        SELECT id, user_id, name, phone, score, stage_id, created_at
        FROM leads
        WHERE id = $1
    `
	var l model.Lead
	err := r.db.QueryRow(ctx, query, leadID).Scan(
		&l.ID,
		&l.UserID,
		&l.Name,
		&l.Phone,
		&l.Score,
		&l.StageID,
		&l.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to get lead",
			zap.Error(err),
			zap.Int("lead_id", leadID),
		)
		return model.Lead{}, err
	}
	return l, nil
}

// UpdateStage persists a stage transition in one transaction: the lead row
// update, a stage-history audit row, and the outbox event.
func (r *LeadRepository) UpdateStage(ctx context.Context, leadID int, stageID string) error {
	r.logger.Debug("Updating lead stage",
		zap.Int("lead_id", leadID),
		zap.String("stage_id", stageID),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID int
	var fromStageID string
	err = tx.QueryRow(ctx, `
        SELECT user_id, stage_id FROM leads WHERE id = $1 FOR UPDATE
    `, leadID).Scan(&userID, &fromStageID)
	if err != nil {
		r.logger.Error("Failed to lock lead for stage update",
			zap.Error(err),
			zap.Int("lead_id", leadID),
		)
		return err
	}

	if _, err := tx.Exec(ctx, `
        UPDATE leads SET stage_id = $1 WHERE id = $2
    `, stageID, leadID); err != nil {
		r.logger.Error("Failed to update lead stage",
			zap.Error(err),
			zap.Int("lead_id", leadID),
			zap.String("stage_id", stageID),
		)
		return err
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO lead_stage_history (lead_id, user_id, from_stage_id, to_stage_id)
        VALUES ($1, $2, $3, $4)
    `, leadID, userID, fromStageID, stageID); err != nil {
		r.logger.Error("Failed to insert stage history",
			zap.Error(err),
			zap.Int("lead_id", leadID),
		)
		return err
	}

	aggregateID := int64(leadID)
	payload := contracts.LeadStageChangedPayload{
		LeadID:      leadID,
		UserID:      userID,
		FromStageID: fromStageID,
		ToStageID:   stageID,
		IsTerminal:  r.stages.IsTerminal(stageID),
		ChangedAt:   time.Now(),
		TraceID:     trace.FromContext(ctx),
	}
	if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "lead", &aggregateID, contracts.KeyLeadStageChanged, payload); err != nil {
		r.logger.Error("Failed to insert stage-changed outbox event",
			zap.Error(err),
			zap.Int("lead_id", leadID),
		)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit stage update: %w", err)
	}

	r.logger.Info("Lead stage updated",
		zap.Int("lead_id", leadID),
		zap.String("from_stage_id", fromStageID),
		zap.String("to_stage_id", stageID),
	)
	return nil
}

// StageHistory returns the audit trail of stage transitions for a lead,
// newest first.
func (r *LeadRepository) StageHistory(ctx context.Context, leadID int) ([]model.StageChange, error) {
	query := `
        SELECT id, lead_id, user_id, from_stage_id, to_stage_id, created_at
        FROM lead_stage_history
        WHERE lead_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, leadID)
	if err != nil {
		r.logger.Error("Failed to query stage history",
			zap.Error(err),
			zap.Int("lead_id", leadID),
		)
		return nil, err
	}
	defer rows.Close()

	changes := []model.StageChange{}
	for rows.Next() {
		var c model.StageChange
		if err := rows.Scan(
			&c.ID,
			&c.LeadID,
			&c.UserID,
			&c.FromStageID,
			&c.ToStageID,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
