package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Camera 摄像头领域模型（对应 cameras 表）
// CV 引擎以 external_id（字符串，location 内唯一）上报，身份解析以 external_id 为键
type Camera struct {
	// 主键和归属
	CameraID   string `db:"camera_id"`   // UUID, PRIMARY KEY
	LocationID string `db:"location_id"` // UUID, NOT NULL

	// 外部标识（CV 引擎配置中的 camera_id）
	ExternalID string `db:"external_id"` // VARCHAR(255), NOT NULL, UNIQUE(location_id, external_id)

	// 检测区域（多边形顶点 [[x,y], ...]）
	ScanZone json.RawMessage `db:"scan_zone"` // JSONB, nullable
	ExitZone json.RawMessage `db:"exit_zone"` // JSONB, nullable

	// 运行状态
	LastSeenAt sql.NullTime    `db:"last_seen_at"` // TIMESTAMPTZ, nullable
	FPS        sql.NullFloat64 `db:"fps"`          // REAL, nullable（引擎上报的处理帧率）
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (c *Camera) ToJSON() map[string]any {
	m := map[string]any{
		"camera_id":   c.CameraID,
		"location_id": c.LocationID,
		"external_id": c.ExternalID,
	}
	if len(c.ScanZone) > 0 {
		m["scan_zone"] = c.ScanZone
	}
	if len(c.ExitZone) > 0 {
		m["exit_zone"] = c.ExitZone
	}
	if c.LastSeenAt.Valid {
		m["last_seen_at"] = c.LastSeenAt.Time.Format(time.RFC3339)
	}
	if c.FPS.Valid {
		m["fps"] = c.FPS.Float64
	}
	return m
}

// CameraIdentity 身份解析结果
// 未注册的 external_id 解析为 fallback location（CameraID/TenantID 为 nil）,
// 保证摄像头未登记时事件仍可入库，而不是被丢弃
type CameraIdentity struct {
	CameraID   *string // 内部摄像头ID（未注册时为 nil）
	LocationID string  // 始终非空（未注册时为 fallback location）
	TenantID   *string // 租户ID（未注册时为 nil）
}

// Resolved 是否解析到已注册摄像头
func (id CameraIdentity) Resolved() bool {
	return id.CameraID != nil
}
