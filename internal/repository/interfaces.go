package repository

import (
	"context"
	"errors"
	"time"

	"shopguard-backend/internal/domain"
)

// ErrNotFound 目标记录不存在（调用方用 errors.Is 判定）
var ErrNotFound = errors.New("record not found")

// CameraResolver 身份解析：external camera id → (camera, location, tenant)
// 未注册的 external_id 必须解析为 fallback location，接入路径不因摄像头未登记而失败
type CameraResolver interface {
	Resolve(ctx context.Context, externalID string) (domain.CameraIdentity, error)
}

// DetectionsRepo 检测事件仓库（append-only）
type DetectionsRepo interface {
	// CreateDetection 写入一条检测记录，返回新记录ID；location_id 必须非空
	CreateDetection(ctx context.Context, d *domain.Detection) (int64, error)
}

// AlertFilters 报警查询过滤条件
type AlertFilters struct {
	LocationID *string    // 门店过滤
	Status     *string    // 状态过滤 (open/reviewed/dismissed/resolved)
	AlertType  *string    // 类型过滤（如 non_scan）
	StartTime  *time.Time // created_at >= StartTime
	EndTime    *time.Time // created_at <= EndTime
}

// AlertUpdate 报警生命周期更新（字段为 nil 表示本次不修改）
type AlertUpdate struct {
	Status     *string
	ReviewedBy *string
	ReviewedAt *time.Time
}

// AlertsRepo 报警仓库
// 创建后唯一的变更路径是 UpdateAlert（生命周期流转）；不提供删除
type AlertsRepo interface {
	// CreateAlert 写入一条报警记录（status=open），返回新报警ID
	CreateAlert(ctx context.Context, a *domain.Alert) (string, error)

	// GetAlert 按ID获取报警；不存在返回 ErrNotFound
	GetAlert(ctx context.Context, alertID string) (*domain.Alert, error)

	// ListAlerts 分页查询报警（按 created_at 倒序），返回 (列表, 总数)
	ListAlerts(ctx context.Context, filters AlertFilters, limit, offset int) ([]*domain.Alert, int, error)

	// UpdateAlert 应用生命周期更新，返回更新前的状态（用于只在首次流转时累加统计）；
	// 不存在返回 ErrNotFound
	UpdateAlert(ctx context.Context, alertID string, upd AlertUpdate) (prevStatus string, alert *domain.Alert, err error)
}

// DailyStatsRepo 日统计仓库
type DailyStatsRepo interface {
	// Increment 原子自增：(location, date) 行不存在则先建全零行，再加 delta。
	// 必须对同 key 的无界并发调用安全（不丢失更新）
	Increment(ctx context.Context, locationID, statDate, field string, delta int64) error

	// GetDailyStat 读取某 (location, date) 的统计行；不存在返回 ErrNotFound
	GetDailyStat(ctx context.Context, locationID, statDate string) (*domain.DailyStat, error)
}

// CamerasRepo 摄像头运行态维护
type CamerasRepo interface {
	// TouchCamera 更新摄像头 last_seen_at / fps（接入成功后的尽力而为更新）
	TouchCamera(ctx context.Context, cameraID string, seenAt time.Time, fps *float64) error
}
