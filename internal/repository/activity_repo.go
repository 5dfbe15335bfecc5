package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	contracts "pipecrm/contracts/mq"
	"pipecrm/internal/lifecycle"
	"pipecrm/internal/model"
	"pipecrm/pkg/outbox"
	"pipecrm/pkg/trace"
)

type ActivityRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewActivityRepository(db *pgxpool.Pool, ob *outbox.Repository, logger *zap.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, outbox: ob, logger: logger}
}

const activityColumns = `
        id, lead_id, type_id, description, scheduled_at,
        is_completed, completed_at, result, metadata, created_at
`

func scanActivity(row interface{ Scan(...any) error }) (model.Activity, error) {
	var a model.Activity
	err := row.Scan(
		&a.ID,
		&a.LeadID,
		&a.TypeID,
		&a.Description,
		&a.ScheduledAt,
		&a.IsCompleted,
		&a.CompletedAt,
		&a.Result,
		&a.Metadata,
		&a.CreatedAt,
	)
	return a, err
}

func (r *ActivityRepository) Get(ctx context.Context, activityID int) (model.Activity, error) {
	query := `SELECT` + activityColumns + `FROM activities WHERE id = $1`
	a, err := scanActivity(r.db.QueryRow(ctx, query, activityID))
	if err != nil {
		r.logger.Error("Failed to get activity",
			zap.Error(err),
			zap.Int("activity_id", activityID),
		)
		return model.Activity{}, err
	}
	return a, nil
}

// Complete marks an activity completed in one transaction together with
// the outbox event. It must not be observably partially applied.
func (r *ActivityRepository) Complete(ctx context.Context, activityID int, result string, completedAt time.Time) error {
	r.logger.Debug("Completing activity",
		zap.Int("activity_id", activityID),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var leadID, userID int
	var typeID string
	err = tx.QueryRow(ctx, `
        UPDATE activities a
        SET is_completed = TRUE, completed_at = $1, result = $2
        FROM leads l
        WHERE a.id = $3 AND l.id = a.lead_id AND a.is_completed = FALSE
        RETURNING a.lead_id, l.user_id, a.type_id
    `, completedAt, result, activityID).Scan(&leadID, &userID, &typeID)
	if errors.Is(err, pgx.ErrNoRows) {
		// A concurrent completion won the race between the caller's read
		// and this update.
		return lifecycle.ErrAlreadyCompleted
	}
	if err != nil {
		r.logger.Error("Failed to complete activity",
			zap.Error(err),
			zap.Int("activity_id", activityID),
		)
		return err
	}

	aggregateID := int64(activityID)
	payload := contracts.ActivityCompletedPayload{
		ActivityID:  activityID,
		LeadID:      leadID,
		UserID:      userID,
		TypeID:      typeID,
		Result:      result,
		CompletedAt: completedAt,
		TraceID:     trace.FromContext(ctx),
	}
	if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "activity", &aggregateID, contracts.KeyActivityCompleted, payload); err != nil {
		r.logger.Error("Failed to insert activity-completed outbox event",
			zap.Error(err),
			zap.Int("activity_id", activityID),
		)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}

	r.logger.Info("Activity completed",
		zap.Int("activity_id", activityID),
		zap.Int("lead_id", leadID),
	)
	return nil
}

// SetCompleted flips the completed flag without touching the result. Used
// by the administrative toggle.
func (r *ActivityRepository) SetCompleted(ctx context.Context, activityID int, completed bool, completedAt *time.Time) error {
	result, err := r.db.Exec(ctx, `
        UPDATE activities
        SET is_completed = $1, completed_at = $2
        WHERE id = $3
    `, completed, completedAt, activityID)
	if err != nil {
		r.logger.Error("Failed to toggle activity",
			zap.Error(err),
			zap.Int("activity_id", activityID),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("activity not found: %d", activityID)
	}

	r.logger.Info("Activity toggled",
		zap.Int("activity_id", activityID),
		zap.Bool("is_completed", completed),
	)
	return nil
}

func (r *ActivityRepository) Create(ctx context.Context, a model.Activity) (model.Activity, error) {
	r.logger.Debug("Creating activity",
		zap.Int("lead_id", a.LeadID),
		zap.String("type_id", a.TypeID),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.Activity{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID int
	err = tx.QueryRow(ctx, `
        INSERT INTO activities (lead_id, type_id, description, scheduled_at, metadata)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `, a.LeadID, a.TypeID, a.Description, a.ScheduledAt, a.Metadata).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert activity",
			zap.Error(err),
			zap.Int("lead_id", a.LeadID),
		)
		return model.Activity{}, err
	}

	if err := tx.QueryRow(ctx, `
        SELECT user_id FROM leads WHERE id = $1
    `, a.LeadID).Scan(&userID); err != nil {
		r.logger.Error("Failed to resolve lead owner",
			zap.Error(err),
			zap.Int("lead_id", a.LeadID),
		)
		return model.Activity{}, err
	}

	aggregateID := int64(a.ID)
	payload := contracts.ActivityCreatedPayload{
		ActivityID:  a.ID,
		LeadID:      a.LeadID,
		UserID:      userID,
		TypeID:      a.TypeID,
		Description: a.Description,
		ScheduledAt: a.ScheduledAt,
		TraceID:     trace.FromContext(ctx),
	}
	if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "activity", &aggregateID, contracts.KeyActivityCreated, payload); err != nil {
		r.logger.Error("Failed to insert activity-created outbox event",
			zap.Error(err),
			zap.Int("activity_id", a.ID),
		)
		return model.Activity{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Activity{}, fmt.Errorf("failed to commit creation: %w", err)
	}

	r.logger.Info("Activity created",
		zap.Int("activity_id", a.ID),
		zap.Int("lead_id", a.LeadID),
		zap.String("type_id", a.TypeID),
	)
	return a, nil
}

func (r *ActivityRepository) ListByLead(ctx context.Context, leadID int) ([]model.Activity, error) {
	query := `SELECT` + activityColumns + `
        FROM activities
        WHERE lead_id = $1
        ORDER BY scheduled_at ASC NULLS LAST, created_at ASC
    `
	rows, err := r.db.Query(ctx, query, leadID)
	if err != nil {
		r.logger.Error("Failed to query activities",
			zap.Error(err),
			zap.Int("lead_id", leadID),
		)
		return nil, err
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// ListByUser returns all activities on the user's leads, schedule order.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID int) ([]model.Activity, error) {
	query := `
        SELECT a.id, a.lead_id, a.type_id, a.description, a.scheduled_at,
               a.is_completed, a.completed_at, a.result, a.metadata, a.created_at
        FROM activities a
        JOIN leads l ON l.id = a.lead_id
        WHERE l.user_id = $1
        ORDER BY a.scheduled_at ASC NULLS LAST, a.created_at ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query user activities",
			zap.Error(err),
			zap.Int("user_id", userID),
		)
		return nil, err
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// OverdueActivity is a scan row for the overdue sweep, carrying the
// owning user so notifications can be routed to them.
type OverdueActivity struct {
	ActivityID  int
	LeadID      int
	UserID      int
	ScheduledAt time.Time
}

// ListOverdue returns uncompleted activities scheduled strictly before
// the start of the asOf day.
func (r *ActivityRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]OverdueActivity, error) {
	startOfDay := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())

	query := `SELECT a.id, a.lead_id, l.user_id, a.scheduled_at
        FROM activities a
        JOIN leads l ON l.id = a.lead_id
        WHERE a.is_completed = FALSE
        AND a.scheduled_at IS NOT NULL
        AND a.scheduled_at < $1
        ORDER BY a.scheduled_at ASC
    `
	rows, err := r.db.Query(ctx, query, startOfDay)
	if err != nil {
		r.logger.Error("Failed to query overdue activities", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	overdue := []OverdueActivity{}
	for rows.Next() {
		var o OverdueActivity
		if err := rows.Scan(&o.ActivityID, &o.LeadID, &o.UserID, &o.ScheduledAt); err != nil {
			return nil, err
		}
		overdue = append(overdue, o)
	}
	return overdue, rows.Err()
}
