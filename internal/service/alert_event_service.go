package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"shopguard-backend/internal/domain"
	"shopguard-backend/internal/repository"
)

// AlertEventService 报警查询与生命周期服务层
// 职责：
// 1. 业务规则验证（状态合法性、分页上限）
// 2. 生命周期流转 + 首次流转时的日统计累加
// 3. 查询编排（列表/单条/日统计）
type AlertEventService struct {
	alerts repository.AlertsRepo
	stats  repository.DailyStatsRepo
	logger *zap.Logger
}

// NewAlertEventService 创建报警服务
func NewAlertEventService(
	alerts repository.AlertsRepo,
	stats repository.DailyStatsRepo,
	logger *zap.Logger,
) *AlertEventService {
	return &AlertEventService{
		alerts: alerts,
		stats:  stats,
		logger: logger,
	}
}

// ListAlerts 分页查询报警
// 业务规则：limit 默认 20、上限 100；offset < 0 归零
func (s *AlertEventService) ListAlerts(
	ctx context.Context,
	filters repository.AlertFilters,
	limit, offset int,
) ([]*domain.Alert, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	alerts, total, err := s.alerts.ListAlerts(ctx, filters, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list alerts", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, total, nil
}

// GetAlert 按ID获取报警详情；不存在返回 ErrNotFound
func (s *AlertEventService) GetAlert(ctx context.Context, alertID string) (*domain.Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("%w: alert id is required", ErrInvalidPayload)
	}
	return s.alerts.GetAlert(ctx, alertID)
}

// UpdateAlert 应用生命周期更新
// 业务规则：
// - newStatus 非空时必须是合法状态，否则 ErrInvalidStatus（报警不被修改）
// - reviewed_at 只在本次请求确实变更状态、且目标状态是 reviewed/dismissed/resolved 时写入
// - alerts_reviewed / alerts_confirmed 只在首次流转进入对应状态时自增，
//   按报警的创建日期（而非更新时间）归属统计行；dismissed 不影响统计
// - 本路径不做实时推送（读侧轮询回查）
func (s *AlertEventService) UpdateAlert(
	ctx context.Context,
	alertID string,
	newStatus *string,
	reviewedBy *string,
) (*domain.Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("%w: alert id is required", ErrInvalidPayload)
	}
	if newStatus != nil && !domain.ValidAlertStatus(*newStatus) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *newStatus)
	}
	if newStatus == nil && reviewedBy == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidPayload)
	}

	upd := repository.AlertUpdate{
		Status:     newStatus,
		ReviewedBy: reviewedBy,
	}
	if newStatus != nil && *newStatus != domain.AlertStatusOpen {
		now := time.Now().UTC()
		upd.ReviewedAt = &now
	}

	prevStatus, alert, err := s.alerts.UpdateAlert(ctx, alertID, upd)
	if err != nil {
		return nil, err
	}

	// 首次流转进入 reviewed/resolved 时累加统计（重复 PATCH 同一状态不重复累加）
	if newStatus != nil && prevStatus != *newStatus {
		var field string
		switch *newStatus {
		case domain.AlertStatusReviewed:
			field = domain.StatFieldAlertsReviewed
		case domain.AlertStatusResolved:
			field = domain.StatFieldAlertsConfirmed
		}
		if field != "" {
			statDate := domain.StatDate(alert.CreatedAt)
			if err := s.stats.Increment(ctx, alert.LocationID, statDate, field, 1); err != nil {
				// 状态流转已持久化；统计失败只记日志（此处报错会诱导客户端重试 PATCH）
				s.logger.Error("Failed to increment review stat",
					zap.String("alert_id", alertID),
					zap.String("field", field),
					zap.Error(err),
				)
			}
		}
	}

	return alert, nil
}

// GetDailyStat 读取某门店某日的统计行；行不存在时返回全零行（尚无事件 ≠ 错误）
func (s *AlertEventService) GetDailyStat(ctx context.Context, locationID, statDate string) (*domain.DailyStat, error) {
	if locationID == "" {
		return nil, fmt.Errorf("%w: location_id is required", ErrInvalidPayload)
	}
	if statDate == "" {
		statDate = domain.StatDate(time.Now())
	}

	stat, err := s.stats.GetDailyStat(ctx, locationID, statDate)
	if err != nil {
		if isNotFound(err) {
			return &domain.DailyStat{LocationID: locationID, StatDate: statDate}, nil
		}
		s.logger.Error("Failed to get daily stat",
			zap.String("location_id", locationID),
			zap.String("stat_date", statDate),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to get daily stat: %w", err)
	}
	return stat, nil
}
