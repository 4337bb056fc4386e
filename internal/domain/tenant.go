package domain

import "encoding/json"

// Tenant 租户领域模型（对应 tenants 表）
// 一个租户 = 一个客户组织（连锁超市品牌），是最顶层的隔离边界
type Tenant struct {
	// 主键
	TenantID string `db:"tenant_id"` // UUID, PRIMARY KEY

	// 基本信息
	TenantName string `db:"tenant_name"` // VARCHAR(255), NOT NULL

	// 状态
	Status string `db:"status"` // VARCHAR(50), DEFAULT 'active' (active/suspended/deleted)

	// 扩展配置
	Metadata json.RawMessage `db:"metadata"` // JSONB, nullable
}

// IsActive 租户是否处于激活状态
func (t *Tenant) IsActive() bool {
	return t.Status == "active"
}
