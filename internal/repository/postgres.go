package repository

import (
	"context"
	"database/sql"
	"fmt"

	"shopguard-backend/internal/config"

	_ "github.com/lib/pq"
)

// 兜底 location 的归属租户（启动引导行）
const bootstrapTenantID = "00000000-0000-0000-0000-000000000001"

// NewPostgresDB 创建PostgreSQL数据库连接
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// EnsureFallbackLocation 保证 fallback location 行存在
// cv_detections / cv_alerts / daily_stats 的 location_id 都有外键约束：
// 没有这一行，未注册摄像头的事件在入库时会直接撞 FK 失败
func EnsureFallbackLocation(ctx context.Context, db *sql.DB, locationID string) error {
	if _, err := db.ExecContext(ctx,
		`INSERT INTO tenants (tenant_id, tenant_name, status)
		 VALUES ($1, 'System', 'active')
		 ON CONFLICT (tenant_id) DO NOTHING`,
		bootstrapTenantID,
	); err != nil {
		return fmt.Errorf("failed to ensure bootstrap tenant: %w", err)
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO locations (location_id, tenant_id, location_name, is_active)
		 VALUES ($1, $2, 'Unassigned', true)
		 ON CONFLICT (location_id) DO NOTHING`,
		locationID, bootstrapTenantID,
	); err != nil {
		return fmt.Errorf("failed to ensure fallback location: %w", err)
	}
	return nil
}
