package domain

import (
	"encoding/json"
	"time"
)

// BoundingBox 检测框（与 CV 引擎上报格式一致）
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// DetectedObject 单个检测对象描述
type DetectedObject struct {
	ClassID    int         `json:"class_id"`
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
	TrackID    *int64      `json:"track_id,omitempty"`
}

// Detection 检测事件领域模型（对应 cv_detections 表）
// 一条记录 = 一台摄像头在某一时刻的一批对象观测，创建后不可变
type Detection struct {
	// 主键
	ID int64 `db:"id"` // BIGSERIAL, PRIMARY KEY

	// 来源（camera_id 可空：未注册摄像头的事件记到 fallback location 名下）
	CameraID   *string `db:"camera_id"`   // UUID, nullable
	LocationID string  `db:"location_id"` // UUID, NOT NULL

	// 帧信息
	FrameNumber int64           `db:"frame_number"` // BIGINT
	Objects     json.RawMessage `db:"objects"`      // JSONB, []DetectedObject
	ObjectCount int             `db:"object_count"` // INT, NOT NULL

	// 快照（base64，可空）
	Snapshot *string `db:"snapshot"` // TEXT, nullable

	// 时间戳
	EventTime time.Time `db:"event_time"` // TIMESTAMPTZ, NOT NULL（引擎侧事件时间）
	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL（入库时间）
}

// ToJSON 转换为JSON格式（用于HTTP响应和实时推送）
func (d *Detection) ToJSON() map[string]any {
	m := map[string]any{
		"id":           d.ID,
		"location_id":  d.LocationID,
		"frame_number": d.FrameNumber,
		"object_count": d.ObjectCount,
		"event_time":   d.EventTime.Format(time.RFC3339),
		"created_at":   d.CreatedAt.Format(time.RFC3339),
	}
	if d.CameraID != nil {
		m["camera_id"] = *d.CameraID
	} else {
		m["camera_id"] = nil
	}
	if len(d.Objects) > 0 {
		var objs any
		if err := json.Unmarshal(d.Objects, &objs); err == nil {
			m["objects"] = objs
		}
	}
	return m
}
