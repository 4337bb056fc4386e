package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shopguard-backend/internal/domain"
)

// PostgresCameraResolver 身份解析Repository实现
// 以 cameras.external_id 为键查 (camera, location, tenant) 三元组；
// 查不到时降级为进程配置的 fallback location（只读，无副作用）
type PostgresCameraResolver struct {
	db                 *sql.DB
	fallbackLocationID string
}

// NewPostgresCameraResolver 创建身份解析Repository
func NewPostgresCameraResolver(db *sql.DB, fallbackLocationID string) *PostgresCameraResolver {
	return &PostgresCameraResolver{db: db, fallbackLocationID: fallbackLocationID}
}

// 确保实现了接口
var _ CameraResolver = (*PostgresCameraResolver)(nil)

func (r *PostgresCameraResolver) Resolve(ctx context.Context, externalID string) (domain.CameraIdentity, error) {
	query := `
		SELECT c.camera_id::text, c.location_id::text, l.tenant_id::text
		FROM cameras c
		JOIN locations l ON c.location_id = l.location_id
		WHERE c.external_id = $1
	`

	var cameraID, locationID, tenantID string
	err := r.db.QueryRowContext(ctx, query, externalID).Scan(&cameraID, &locationID, &tenantID)
	if err != nil {
		if err == sql.ErrNoRows {
			// 未注册摄像头不是错误：记到兜底 location，保证事件不丢
			return domain.CameraIdentity{LocationID: r.fallbackLocationID}, nil
		}
		return domain.CameraIdentity{}, fmt.Errorf("failed to resolve camera %q: %w", externalID, err)
	}

	return domain.CameraIdentity{
		CameraID:   &cameraID,
		LocationID: locationID,
		TenantID:   &tenantID,
	}, nil
}

// PostgresCamerasRepository 摄像头运行态Repository实现
type PostgresCamerasRepository struct {
	db *sql.DB
}

// NewPostgresCamerasRepository 创建摄像头Repository
func NewPostgresCamerasRepository(db *sql.DB) *PostgresCamerasRepository {
	return &PostgresCamerasRepository{db: db}
}

var _ CamerasRepo = (*PostgresCamerasRepository)(nil)

// TouchCamera 更新 last_seen_at / fps（fps 为 nil 时保留原值）
func (r *PostgresCamerasRepository) TouchCamera(ctx context.Context, cameraID string, seenAt time.Time, fps *float64) error {
	query := `
		UPDATE cameras
		SET last_seen_at = $2,
		    fps = COALESCE($3, fps)
		WHERE camera_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, cameraID, seenAt, fps); err != nil {
		return fmt.Errorf("failed to touch camera %s: %w", cameraID, err)
	}
	return nil
}
