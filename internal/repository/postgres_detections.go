package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shopguard-backend/internal/domain"
)

// PostgresDetectionsRepository 检测事件Repository实现（append-only，无更新路径）
type PostgresDetectionsRepository struct {
	db *sql.DB
}

// NewPostgresDetectionsRepository 创建检测事件Repository
func NewPostgresDetectionsRepository(db *sql.DB) *PostgresDetectionsRepository {
	return &PostgresDetectionsRepository{db: db}
}

// 确保实现了接口
var _ DetectionsRepo = (*PostgresDetectionsRepository)(nil)

// CreateDetection 写入一条检测记录
// 业务规则：location_id 必填（camera_id 可空）
func (r *PostgresDetectionsRepository) CreateDetection(ctx context.Context, d *domain.Detection) (int64, error) {
	if d.LocationID == "" {
		return 0, fmt.Errorf("location_id is required")
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO cv_detections (
			camera_id, location_id, frame_number, objects, object_count,
			snapshot, event_time, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	objects := d.Objects
	if len(objects) == 0 {
		objects = []byte("[]")
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		d.CameraID,
		d.LocationID,
		d.FrameNumber,
		objects,
		d.ObjectCount,
		d.Snapshot,
		d.EventTime,
		d.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create detection: %w", err)
	}

	d.ID = id
	return id, nil
}
