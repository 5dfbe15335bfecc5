package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pipecrm/internal/model"
)

const (
	stageCacheKey        = "catalog:stages"
	activityTypeCacheKey = "catalog:activity_types"
	catalogCacheTTL      = 10 * time.Minute
)

// CatalogRepository loads the stage and activity-type catalogs. Catalogs
// are read once per session; a redis cache sits in front of Postgres.
type CatalogRepository struct {
	db     *pgxpool.Pool
	rdb    *redis.Client
	logger *zap.Logger
}

func NewCatalogRepository(db *pgxpool.Pool, rdb *redis.Client, logger *zap.Logger) *CatalogRepository {
	return &CatalogRepository{db: db, rdb: rdb, logger: logger}
}

func (r *CatalogRepository) ListStages(ctx context.Context) ([]model.Stage, error) {
	if cached, err := r.rdb.Get(ctx, stageCacheKey).Bytes(); err == nil {
		var stages []model.Stage
		if err := json.Unmarshal(cached, &stages); err == nil {
			return stages, nil
		}
	}

	query := `
        SELECT id, label, color, order_index, is_terminal
        FROM stages
        ORDER BY order_index ASC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query stages", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	stages := []model.Stage{}
	for rows.Next() {
		var s model.Stage
		if err := rows.Scan(&s.ID, &s.Label, &s.Color, &s.OrderIndex, &s.IsTerminal); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stages); err == nil {
		if err := r.rdb.Set(ctx, stageCacheKey, data, catalogCacheTTL).Err(); err != nil {
			r.logger.Warn("Failed to cache stage catalog", zap.Error(err))
		}
	}

	r.logger.Info("Stage catalog loaded", zap.Int("count", len(stages)))
	return stages, nil
}

func (r *CatalogRepository) ListActivityTypes(ctx context.Context) ([]model.ActivityType, error) {
	if cached, err := r.rdb.Get(ctx, activityTypeCacheKey).Bytes(); err == nil {
		var types []model.ActivityType
		if err := json.Unmarshal(cached, &types); err == nil {
			return types, nil
		}
	}

	query := `
        SELECT id, label
        FROM activity_types
        ORDER BY id ASC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query activity types", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	types := []model.ActivityType{}
	for rows.Next() {
		var t model.ActivityType
		if err := rows.Scan(&t.ID, &t.Label); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if data, err := json.Marshal(types); err == nil {
		if err := r.rdb.Set(ctx, activityTypeCacheKey, data, catalogCacheTTL).Err(); err != nil {
			r.logger.Warn("Failed to cache activity-type catalog", zap.Error(err))
		}
	}

	r.logger.Info("Activity-type catalog loaded", zap.Int("count", len(types)))
	return types, nil
}
