package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pipecrm/internal/model"
)

type SaleRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSaleRepository(db *pgxpool.Pool, logger *zap.Logger) *SaleRepository {
	return &SaleRepository{db: db, logger: logger}
}

// ListByUserRange returns the user's sales within [from, to] inclusive.
func (r *SaleRepository) ListByUserRange(ctx context.Context, userID int, from, to time.Time) ([]model.Sale, error) {
	query := `
        SELECT id, lead_id, user_id, amount, sold_at
        FROM sales
        WHERE user_id = $1
        AND sold_at >= $2
        AND sold_at <= $3
        ORDER BY sold_at ASC
    `
	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		r.logger.Error("Failed to query sales",
			zap.Error(err),
			zap.Int("user_id", userID),
		)
		return nil, err
	}
	defer rows.Close()

	sales := []model.Sale{}
	for rows.Next() {
		var s model.Sale
		if err := rows.Scan(&s.ID, &s.LeadID, &s.UserID, &s.Amount, &s.SoldAt); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}
