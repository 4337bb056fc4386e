package domain

import (
	"encoding/json"
	"time"
)

// 报警状态（alert_status CHECK 约束取值）
const (
	AlertStatusOpen      = "open"
	AlertStatusReviewed  = "reviewed"
	AlertStatusDismissed = "dismissed"
	AlertStatusResolved  = "resolved"
)

// 报警级别（由置信度推导，阈值固定）
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// ValidAlertStatus 校验状态取值是否合法
func ValidAlertStatus(s string) bool {
	switch s {
	case AlertStatusOpen, AlertStatusReviewed, AlertStatusDismissed, AlertStatusResolved:
		return true
	}
	return false
}

// SeverityForConfidence 置信度 → 报警级别
// 边界值包含：0.8 → high，0.5 → medium
func SeverityForConfidence(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return SeverityHigh
	case confidence >= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Alert 报警领域模型（对应 cv_alerts 表）
// 由摄像头事件（如 non_scan 漏扫）创建为 open，复核人将其一次性流转到
// reviewed/dismissed/resolved；本服务不做状态回退（如需纠正，产生新事件）
type Alert struct {
	// 主键
	AlertID string `db:"alert_id"` // UUID, PRIMARY KEY

	// 来源
	CameraID   *string `db:"camera_id"`   // UUID, nullable
	LocationID string  `db:"location_id"` // UUID, NOT NULL

	// 报警内容
	AlertType   string          `db:"alert_type"`  // VARCHAR(50), NOT NULL（如 non_scan）
	Severity    string          `db:"severity"`    // VARCHAR(20), NOT NULL (high/medium/low)
	TrackID     *int64          `db:"track_id"`    // BIGINT, nullable
	ClassName   string          `db:"class_name"`  // VARCHAR(100)
	Confidence  float64         `db:"confidence"`  // REAL
	BBox        json.RawMessage `db:"bbox"`        // JSONB, nullable
	Snapshot    *string         `db:"snapshot"`    // TEXT, nullable
	Description string          `db:"description"` // TEXT

	// 生命周期
	AlertStatus string     `db:"alert_status"` // VARCHAR(20), DEFAULT 'open'
	ReviewedBy  *string    `db:"reviewed_by"`  // UUID, nullable
	ReviewedAt  *time.Time `db:"reviewed_at"`  // TIMESTAMPTZ, nullable

	// 时间戳（创建后不可变；日统计归属按 CreatedAt 的 UTC 日期）
	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
}

// ToJSON 转换为JSON格式（用于HTTP响应和实时推送）
func (a *Alert) ToJSON() map[string]any {
	m := map[string]any{
		"alert_id":     a.AlertID,
		"location_id":  a.LocationID,
		"alert_type":   a.AlertType,
		"severity":     a.Severity,
		"class_name":   a.ClassName,
		"confidence":   a.Confidence,
		"description":  a.Description,
		"alert_status": a.AlertStatus,
		"created_at":   a.CreatedAt.Format(time.RFC3339),
	}
	if a.CameraID != nil {
		m["camera_id"] = *a.CameraID
	} else {
		m["camera_id"] = nil
	}
	if a.TrackID != nil {
		m["track_id"] = *a.TrackID
	}
	if len(a.BBox) > 0 {
		var bbox any
		if err := json.Unmarshal(a.BBox, &bbox); err == nil {
			m["bbox"] = bbox
		}
	}
	if a.Snapshot != nil {
		m["snapshot"] = *a.Snapshot
	}
	if a.ReviewedBy != nil {
		m["reviewed_by"] = *a.ReviewedBy
	}
	if a.ReviewedAt != nil {
		m["reviewed_at"] = a.ReviewedAt.Format(time.RFC3339)
	}
	return m
}
