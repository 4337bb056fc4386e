package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"shopguard-backend/internal/domain"
	"shopguard-backend/internal/repository"
)

type alertFixture struct {
	events *repository.MemoryEventStore
	stats  *repository.MemoryDailyStats
	svc    *AlertEventService
}

func setupAlertService(t *testing.T) *alertFixture {
	t.Helper()
	events := repository.NewMemoryEventStore()
	stats := repository.NewMemoryDailyStats()
	return &alertFixture{
		events: events,
		stats:  stats,
		svc:    NewAlertEventService(events, stats, zap.NewNop()),
	}
}

// seedAlert 造一条 open 状态的报警（创建时间固定在昨天，验证统计按创建日期归属）
func (f *alertFixture) seedAlert(t *testing.T) *domain.Alert {
	t.Helper()
	alert := &domain.Alert{
		LocationID:  testLocationID,
		AlertType:   "non_scan",
		Severity:    domain.SeverityHigh,
		ClassName:   "person",
		Confidence:  0.92,
		AlertStatus: domain.AlertStatusOpen,
		CreatedAt:   time.Now().UTC().Add(-24 * time.Hour),
	}
	_, err := f.events.CreateAlert(context.Background(), alert)
	require.NoError(t, err)
	return alert
}

func strPtr(s string) *string { return &s }

func TestUpdateAlert_ResolveIncrementsConfirmedOnce(t *testing.T) {
	f := setupAlertService(t)
	ctx := context.Background()
	seeded := f.seedAlert(t)
	creationDate := domain.StatDate(seeded.CreatedAt)

	updated, err := f.svc.UpdateAlert(ctx, seeded.AlertID, strPtr(domain.AlertStatusResolved), strPtr("reviewer-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusResolved, updated.AlertStatus)
	require.NotNil(t, updated.ReviewedAt)
	require.NotNil(t, updated.ReviewedBy)
	assert.Equal(t, "reviewer-1", *updated.ReviewedBy)

	// 统计按报警创建日期归属（不是更新当天）
	stat, err := f.stats.GetDailyStat(ctx, testLocationID, creationDate)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stat.AlertsConfirmed)

	// 重复 PATCH 同一状态：幂等，不重复累加
	_, err = f.svc.UpdateAlert(ctx, seeded.AlertID, strPtr(domain.AlertStatusResolved), nil)
	require.NoError(t, err)

	stat, err = f.stats.GetDailyStat(ctx, testLocationID, creationDate)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stat.AlertsConfirmed)
}

func TestUpdateAlert_ReviewedIncrementsReviewed(t *testing.T) {
	f := setupAlertService(t)
	ctx := context.Background()
	seeded := f.seedAlert(t)

	_, err := f.svc.UpdateAlert(ctx, seeded.AlertID, strPtr(domain.AlertStatusReviewed), strPtr("reviewer-1"))
	require.NoError(t, err)

	stat, err := f.stats.GetDailyStat(ctx, testLocationID, domain.StatDate(seeded.CreatedAt))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stat.AlertsReviewed)
	assert.Equal(t, int64(0), stat.AlertsConfirmed)
}

func TestUpdateAlert_DismissedHasNoAggregateEffect(t *testing.T) {
	f := setupAlertService(t)
	ctx := context.Background()
	seeded := f.seedAlert(t)

	updated, err := f.svc.UpdateAlert(ctx, seeded.AlertID, strPtr(domain.AlertStatusDismissed), strPtr("reviewer-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusDismissed, updated.AlertStatus)
	// dismissed 仍写 reviewed_at，但不影响统计
	require.NotNil(t, updated.ReviewedAt)

	_, err = f.stats.GetDailyStat(ctx, testLocationID, domain.StatDate(seeded.CreatedAt))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateAlert_ReviewerOnlyDoesNotSetReviewedAt(t *testing.T) {
	f := setupAlertService(t)
	ctx := context.Background()
	seeded := f.seedAlert(t)

	// 只改处理人、不改状态：不写 reviewed_at、不动统计
	updated, err := f.svc.UpdateAlert(ctx, seeded.AlertID, nil, strPtr("reviewer-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusOpen, updated.AlertStatus)
	assert.Nil(t, updated.ReviewedAt)
}

func TestUpdateAlert_InvalidStatus(t *testing.T) {
	f := setupAlertService(t)
	ctx := context.Background()
	seeded := f.seedAlert(t)

	_, err := f.svc.UpdateAlert(ctx, seeded.AlertID, strPtr("escalated"), nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// 报警不被修改
	alert, err := f.events.GetAlert(ctx, seeded.AlertID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusOpen, alert.AlertStatus)
	assert.Nil(t, alert.ReviewedBy)
}

func TestUpdateAlert_NotFound(t *testing.T) {
	f := setupAlertService(t)

	_, err := f.svc.UpdateAlert(context.Background(), "00000000-0000-0000-0000-00000000dead", strPtr(domain.AlertStatusReviewed), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAlert_NothingToUpdate(t *testing.T) {
	f := setupAlertService(t)
	seeded := f.seedAlert(t)

	_, err := f.svc.UpdateAlert(context.Background(), seeded.AlertID, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestListAlerts_PaginationDefaultsAndCap(t *testing.T) {
	f := setupAlertService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.seedAlert(t)
	}

	// 默认 limit=20
	alerts, total, err := f.svc.ListAlerts(ctx, repository.AlertFilters{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, alerts, 5)

	// limit 上限 100（内存实现直接吞掉超大 limit，总数不受影响）
	alerts, total, err = f.svc.ListAlerts(ctx, repository.AlertFilters{}, 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, alerts, 5)

	// 过滤：按状态
	open := domain.AlertStatusOpen
	alerts, total, err = f.svc.ListAlerts(ctx, repository.AlertFilters{Status: &open}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	resolved := domain.AlertStatusResolved
	_, total, err = f.svc.ListAlerts(ctx, repository.AlertFilters{Status: &resolved}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestGetDailyStat_ZeroRowWhenAbsent(t *testing.T) {
	f := setupAlertService(t)

	stat, err := f.svc.GetDailyStat(context.Background(), testLocationID, "2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, testLocationID, stat.LocationID)
	assert.Equal(t, "2026-08-30", stat.StatDate)
	assert.Equal(t, int64(0), stat.DetectionCount)
	assert.Equal(t, int64(0), stat.TotalAlerts)
}
