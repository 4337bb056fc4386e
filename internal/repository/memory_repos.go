package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"shopguard-backend/internal/domain"
)

// MemoryCameraResolver: 用于 DB 未就绪时的联测和单测
// - external_id -> identity 的静态表
// - 未注册一律落到 fallback location
type MemoryCameraResolver struct {
	mu       sync.RWMutex
	cameras  map[string]domain.CameraIdentity // externalID -> identity
	fallback string
}

func NewMemoryCameraResolver(fallbackLocationID string) *MemoryCameraResolver {
	return &MemoryCameraResolver{
		cameras:  map[string]domain.CameraIdentity{},
		fallback: fallbackLocationID,
	}
}

var _ CameraResolver = (*MemoryCameraResolver)(nil)

// Register 登记一台摄像头（测试/联测用）
func (r *MemoryCameraResolver) Register(externalID, cameraID, locationID, tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := domain.CameraIdentity{CameraID: &cameraID, LocationID: locationID}
	if tenantID != "" {
		id.TenantID = &tenantID
	}
	r.cameras[externalID] = id
}

func (r *MemoryCameraResolver) Resolve(_ context.Context, externalID string) (domain.CameraIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.cameras[externalID]; ok {
		return id, nil
	}
	return domain.CameraIdentity{LocationID: r.fallback}, nil
}

// MemoryEventStore: 检测 + 报警的内存实现（append-only 语义与 DB 版一致）
type MemoryEventStore struct {
	mu         sync.RWMutex
	nextDetID  int64
	detections []*domain.Detection
	alerts     map[string]*domain.Alert
	order      []string // alerts 的插入顺序（列表按 created_at 倒序输出）
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{nextDetID: 1, alerts: map[string]*domain.Alert{}}
}

var (
	_ DetectionsRepo = (*MemoryEventStore)(nil)
	_ AlertsRepo     = (*MemoryEventStore)(nil)
)

func (s *MemoryEventStore) CreateDetection(_ context.Context, d *domain.Detection) (int64, error) {
	if d.LocationID == "" {
		return 0, fmt.Errorf("location_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.ID = s.nextDetID
	s.nextDetID++
	cp := *d
	s.detections = append(s.detections, &cp)
	return d.ID, nil
}

// Detections 返回已写入的检测记录（测试用）
func (s *MemoryEventStore) Detections() []*domain.Detection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Detection, len(s.detections))
	copy(out, s.detections)
	return out
}

func (s *MemoryEventStore) CreateAlert(_ context.Context, a *domain.Alert) (string, error) {
	if a.LocationID == "" {
		return "", fmt.Errorf("location_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.AlertID == "" {
		a.AlertID = uuid.NewString()
	}
	if a.AlertStatus == "" {
		a.AlertStatus = domain.AlertStatusOpen
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	cp := *a
	s.alerts[a.AlertID] = &cp
	s.order = append(s.order, a.AlertID)
	return a.AlertID, nil
}

func (s *MemoryEventStore) GetAlert(_ context.Context, alertID string) (*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func matchAlert(a *domain.Alert, f AlertFilters) bool {
	if f.LocationID != nil && a.LocationID != *f.LocationID {
		return false
	}
	if f.Status != nil && a.AlertStatus != *f.Status {
		return false
	}
	if f.AlertType != nil && a.AlertType != *f.AlertType {
		return false
	}
	if f.StartTime != nil && a.CreatedAt.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && a.CreatedAt.After(*f.EndTime) {
		return false
	}
	return true
}

func (s *MemoryEventStore) ListAlerts(_ context.Context, filters AlertFilters, limit, offset int) ([]*domain.Alert, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Alert
	for _, id := range s.order {
		a := s.alerts[id]
		if matchAlert(a, filters) {
			cp := *a
			matched = append(matched, &cp)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *MemoryEventStore) UpdateAlert(_ context.Context, alertID string, upd AlertUpdate) (string, *domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[alertID]
	if !ok {
		return "", nil, fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}

	prev := a.AlertStatus
	if upd.Status != nil {
		a.AlertStatus = *upd.Status
	}
	if upd.ReviewedBy != nil {
		a.ReviewedBy = upd.ReviewedBy
	}
	if upd.ReviewedAt != nil {
		a.ReviewedAt = upd.ReviewedAt
	}

	cp := *a
	return prev, &cp, nil
}

// MemoryDailyStats: 日统计内存实现
// Increment 在同一把锁下完成“建行+加值”，与 DB 版的原子 upsert 语义一致
type MemoryDailyStats struct {
	mu    sync.Mutex
	stats map[string]*domain.DailyStat // locationID + "|" + statDate -> row
}

func NewMemoryDailyStats() *MemoryDailyStats {
	return &MemoryDailyStats{stats: map[string]*domain.DailyStat{}}
}

var _ DailyStatsRepo = (*MemoryDailyStats)(nil)

func (s *MemoryDailyStats) Increment(_ context.Context, locationID, statDate, field string, delta int64) error {
	if locationID == "" {
		return fmt.Errorf("location_id is required")
	}
	if !domain.ValidStatField(field) {
		return fmt.Errorf("invalid stat field: %s", field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := locationID + "|" + statDate
	row, ok := s.stats[key]
	if !ok {
		row = &domain.DailyStat{LocationID: locationID, StatDate: statDate}
		s.stats[key] = row
	}
	switch field {
	case domain.StatFieldDetectionCount:
		row.DetectionCount += delta
	case domain.StatFieldTotalAlerts:
		row.TotalAlerts += delta
	case domain.StatFieldAlertsReviewed:
		row.AlertsReviewed += delta
	case domain.StatFieldAlertsConfirmed:
		row.AlertsConfirmed += delta
	}
	return nil
}

func (s *MemoryDailyStats) GetDailyStat(_ context.Context, locationID, statDate string) (*domain.DailyStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.stats[locationID+"|"+statDate]
	if !ok {
		return nil, fmt.Errorf("daily stat (%s, %s): %w", locationID, statDate, ErrNotFound)
	}
	cp := *row
	return &cp, nil
}

// MemoryCamerasRepo: TouchCamera 的内存实现（DB 未就绪时丢弃更新）
type MemoryCamerasRepo struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

func NewMemoryCamerasRepo() *MemoryCamerasRepo {
	return &MemoryCamerasRepo{lastSeen: map[string]time.Time{}}
}

var _ CamerasRepo = (*MemoryCamerasRepo)(nil)

func (r *MemoryCamerasRepo) TouchCamera(_ context.Context, cameraID string, seenAt time.Time, _ *float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSeen[cameraID] = seenAt
	return nil
}
