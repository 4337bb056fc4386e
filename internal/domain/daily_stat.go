package domain

import "time"

// 日统计可累加的计数字段（白名单，用于拼 SQL 时防注入）
const (
	StatFieldDetectionCount  = "detection_count"
	StatFieldTotalAlerts     = "total_alerts"
	StatFieldAlertsReviewed  = "alerts_reviewed"
	StatFieldAlertsConfirmed = "alerts_confirmed"
)

// ValidStatField 校验计数字段名
func ValidStatField(field string) bool {
	switch field {
	case StatFieldDetectionCount, StatFieldTotalAlerts, StatFieldAlertsReviewed, StatFieldAlertsConfirmed:
		return true
	}
	return false
}

// StatDate (location, 日历日期) 中的日期部分，统一取 UTC 日期
func StatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DailyStat 日统计领域模型（对应 daily_stats 表）
// 每 (location_id, stat_date) 一行；计数器单日内单调不减，
// 且每个贡献事件只允许产生一次逻辑自增（派生数据，禁止手工修改）
type DailyStat struct {
	// 唯一键
	LocationID string `db:"location_id"` // UUID, NOT NULL
	StatDate   string `db:"stat_date"`   // DATE, NOT NULL, UNIQUE(location_id, stat_date)

	// CV 引擎驱动的计数器
	DetectionCount  int64 `db:"detection_count"`
	TotalAlerts     int64 `db:"total_alerts"`
	AlertsReviewed  int64 `db:"alerts_reviewed"`
	AlertsConfirmed int64 `db:"alerts_confirmed"`

	// 非 CV 来源的占位计数器（POS 对账服务负责写入，本服务不填充）
	TransactionsCount int64   `db:"transactions_count"`
	ItemsCount        int64   `db:"items_count"`
	EstimatedLoss     float64 `db:"estimated_loss"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (s *DailyStat) ToJSON() map[string]any {
	return map[string]any{
		"location_id":        s.LocationID,
		"stat_date":          s.StatDate,
		"detection_count":    s.DetectionCount,
		"total_alerts":       s.TotalAlerts,
		"alerts_reviewed":    s.AlertsReviewed,
		"alerts_confirmed":   s.AlertsConfirmed,
		"transactions_count": s.TransactionsCount,
		"items_count":        s.ItemsCount,
		"estimated_loss":     s.EstimatedLoss,
	}
}
