package domain

// Location 门店领域模型（对应 locations 表）
// 一个 location = 租户下的一个物理门店，是日统计聚合的唯一维度
type Location struct {
	// 主键和租户
	LocationID string `db:"location_id"` // UUID, PRIMARY KEY
	TenantID   string `db:"tenant_id"`   // UUID, NOT NULL（反向引用，不代表所有权）

	// 基本信息
	LocationName string `db:"location_name"` // VARCHAR(255), NOT NULL
	Timezone     string `db:"timezone"`      // VARCHAR(64), nullable（预留，本服务统一按 UTC 日期聚合）

	// 状态
	IsActive bool `db:"is_active"` // BOOLEAN, DEFAULT true
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (l *Location) ToJSON() map[string]any {
	return map[string]any{
		"location_id":   l.LocationID,
		"tenant_id":     l.TenantID,
		"location_name": l.LocationName,
		"is_active":     l.IsActive,
	}
}
