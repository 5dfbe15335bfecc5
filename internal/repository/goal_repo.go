package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pipecrm/internal/model"
)

type GoalRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewGoalRepository(db *pgxpool.Pool, logger *zap.Logger) *GoalRepository {
	return &GoalRepository{db: db, logger: logger}
}

// ListByUserMonth returns every goal the user has set for the month. A
// metric with no goal row simply has no target; callers treat that as 0.
func (r *GoalRepository) ListByUserMonth(ctx context.Context, userID, year, month int) ([]model.Goal, error) {
	query := `
        SELECT id, user_id, year, month, metric, target
        FROM goals
        WHERE user_id = $1 AND year = $2 AND month = $3
    `
	rows, err := r.db.Query(ctx, query, userID, year, month)
	if err != nil {
		r.logger.Error("Failed to query goals",
			zap.Error(err),
			zap.Int("user_id", userID),
		)
		return nil, err
	}
	defer rows.Close()

	goals := []model.Goal{}
	for rows.Next() {
		var g model.Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.Year, &g.Month, &g.Metric, &g.Target); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}
