package repository

import (
	"context"
	"database/sql"
	"fmt"

	"shopguard-backend/internal/domain"
)

// PostgresDailyStatsRepository 日统计Repository实现
// 计数器是唯一被多个并发写入方共享的状态：自增必须走单条
// INSERT ... ON CONFLICT DO UPDATE（数据库侧原子 upsert-with-addition），
// 禁止应用层读-改-写
type PostgresDailyStatsRepository struct {
	db *sql.DB
}

// NewPostgresDailyStatsRepository 创建日统计Repository
func NewPostgresDailyStatsRepository(db *sql.DB) *PostgresDailyStatsRepository {
	return &PostgresDailyStatsRepository{db: db}
}

// 确保实现了接口
var _ DailyStatsRepo = (*PostgresDailyStatsRepository)(nil)

// Increment 原子自增某 (location, date) 的计数字段
// field 必须在白名单内（字段名拼进 SQL，不能参数化）
func (r *PostgresDailyStatsRepository) Increment(ctx context.Context, locationID, statDate, field string, delta int64) error {
	if locationID == "" {
		return fmt.Errorf("location_id is required")
	}
	if !domain.ValidStatField(field) {
		return fmt.Errorf("invalid stat field: %s", field)
	}

	query := fmt.Sprintf(`
		INSERT INTO daily_stats (location_id, stat_date, %s)
		VALUES ($1, $2, $3)
		ON CONFLICT (location_id, stat_date)
		DO UPDATE SET %s = daily_stats.%s + EXCLUDED.%s`,
		field, field, field, field)

	if _, err := r.db.ExecContext(ctx, query, locationID, statDate, delta); err != nil {
		return fmt.Errorf("failed to increment %s for (%s, %s): %w", field, locationID, statDate, err)
	}
	return nil
}

// GetDailyStat 读取某 (location, date) 的统计行
func (r *PostgresDailyStatsRepository) GetDailyStat(ctx context.Context, locationID, statDate string) (*domain.DailyStat, error) {
	query := `
		SELECT
			location_id::text,
			to_char(stat_date, 'YYYY-MM-DD'),
			detection_count,
			total_alerts,
			alerts_reviewed,
			alerts_confirmed,
			transactions_count,
			items_count,
			estimated_loss
		FROM daily_stats
		WHERE location_id = $1 AND stat_date = $2
	`

	var s domain.DailyStat
	err := r.db.QueryRowContext(ctx, query, locationID, statDate).Scan(
		&s.LocationID,
		&s.StatDate,
		&s.DetectionCount,
		&s.TotalAlerts,
		&s.AlertsReviewed,
		&s.AlertsConfirmed,
		&s.TransactionsCount,
		&s.ItemsCount,
		&s.EstimatedLoss,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("daily stat (%s, %s): %w", locationID, statDate, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get daily stat: %w", err)
	}

	return &s, nil
}
