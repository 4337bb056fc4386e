package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"shopguard-backend/internal/domain"
	"shopguard-backend/internal/fanout"
	"shopguard-backend/internal/repository"
	"shopguard-backend/internal/store"
)

// IngestService CV 事件接入服务层
// 职责（每个请求内严格顺序执行，请求之间自由交错）：
// 1. 身份解析（external camera id → camera/location/tenant）
// 2. 事件落库（落库失败则整个接入失败，不做统计、不做推送）
// 3. 日统计原子自增
// 4. 实时推送（fire-and-forget，失败只记日志——数据已落库，订阅端可回查）
type IngestService struct {
	resolver   repository.CameraResolver
	detections repository.DetectionsRepo
	alerts     repository.AlertsRepo
	stats      repository.DailyStatsRepo
	cameras    repository.CamerasRepo // 可为 nil（内存模式）
	hub        *fanout.Hub
	kv         store.KV // 可为 nil（无 redis 时心跳只记日志）
	logger     *zap.Logger
}

// NewIngestService 创建接入服务
func NewIngestService(
	resolver repository.CameraResolver,
	detections repository.DetectionsRepo,
	alerts repository.AlertsRepo,
	stats repository.DailyStatsRepo,
	cameras repository.CamerasRepo,
	hub *fanout.Hub,
	kv store.KV,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		resolver:   resolver,
		detections: detections,
		alerts:     alerts,
		stats:      stats,
		cameras:    cameras,
		hub:        hub,
		kv:         kv,
		logger:     logger,
	}
}

// DetectionInput 检测事件接入参数（已完成 JSON 解码的强类型形态）
type DetectionInput struct {
	CameraID       string // 引擎侧 external camera id，必填
	LocationIDHint string // 引擎配置里的 location，必填（仅作校验提示，实际归属以解析结果为准）
	Timestamp      time.Time
	FrameNumber    int64
	Objects        []domain.DetectedObject // 必填（可为空列表，不可缺字段）
	Snapshot       *string
	FPS            *float64
}

// IngestDetection 接入一条检测事件，返回新记录ID
func (s *IngestService) IngestDetection(ctx context.Context, in DetectionInput) (int64, error) {
	if in.CameraID == "" || in.LocationIDHint == "" || in.Timestamp.IsZero() || in.Objects == nil {
		return 0, fmt.Errorf("%w: camera_id, location_id, timestamp and detections are required", ErrInvalidPayload)
	}

	// 1. 身份解析（未注册摄像头降级到 fallback location，不报错）
	identity, err := s.resolver.Resolve(ctx, in.CameraID)
	if err != nil {
		return 0, fmt.Errorf("identity resolution failed: %w", err)
	}

	objects, err := json.Marshal(in.Objects)
	if err != nil {
		return 0, fmt.Errorf("%w: detections not serializable", ErrInvalidPayload)
	}

	detection := &domain.Detection{
		CameraID:    identity.CameraID,
		LocationID:  identity.LocationID,
		FrameNumber: in.FrameNumber,
		Objects:     objects,
		ObjectCount: len(in.Objects),
		Snapshot:    in.Snapshot,
		EventTime:   in.Timestamp,
		CreatedAt:   time.Now().UTC(),
	}

	// 2. 落库（失败则中止：不自增、不推送）
	id, err := s.detections.CreateDetection(ctx, detection)
	if err != nil {
		return 0, fmt.Errorf("detection store write failed: %w", err)
	}

	// 3. 日统计：按接入日期自增 len(objects)
	statDate := domain.StatDate(detection.CreatedAt)
	if err := s.stats.Increment(ctx, identity.LocationID, statDate, domain.StatFieldDetectionCount, int64(len(in.Objects))); err != nil {
		return 0, fmt.Errorf("detection count increment failed: %w", err)
	}

	// 摄像头运行态（尽力而为，不影响接入结果）
	s.touchCamera(ctx, identity, in.Timestamp, in.FPS)

	// 4. 推送：location 房间 + 全局（detection 事件始终广播到全局）
	s.hub.Publish(ctx, fanout.Event{
		Name:    "detection",
		Payload: detection.ToJSON(),
		Rooms:   []string{fanout.LocationRoom(identity.LocationID)},
		Global:  true,
	})

	return id, nil
}

// AlertInput 报警接入参数
type AlertInput struct {
	CameraID       string // 必填
	LocationIDHint string // 必填
	Timestamp      time.Time
	AlertType      string // 缺省 non_scan
	TrackID        *int64
	ClassName      string
	Confidence     float64
	BBox           *domain.BoundingBox
	Snapshot       *string
	Description    string
}

// IngestAlert 接入一条报警，返回新报警ID
func (s *IngestService) IngestAlert(ctx context.Context, in AlertInput) (string, error) {
	if in.CameraID == "" || in.LocationIDHint == "" || in.Timestamp.IsZero() {
		return "", fmt.Errorf("%w: camera_id, location_id and timestamp are required", ErrInvalidPayload)
	}

	identity, err := s.resolver.Resolve(ctx, in.CameraID)
	if err != nil {
		return "", fmt.Errorf("identity resolution failed: %w", err)
	}

	alertType := in.AlertType
	if alertType == "" {
		alertType = "non_scan"
	}

	var bbox json.RawMessage
	if in.BBox != nil {
		bbox, _ = json.Marshal(in.BBox)
	}

	alert := &domain.Alert{
		CameraID:    identity.CameraID,
		LocationID:  identity.LocationID,
		AlertType:   alertType,
		Severity:    domain.SeverityForConfidence(in.Confidence),
		TrackID:     in.TrackID,
		ClassName:   in.ClassName,
		Confidence:  in.Confidence,
		BBox:        bbox,
		Snapshot:    in.Snapshot,
		Description: in.Description,
		AlertStatus: domain.AlertStatusOpen,
		CreatedAt:   time.Now().UTC(),
	}

	alertID, err := s.alerts.CreateAlert(ctx, alert)
	if err != nil {
		return "", fmt.Errorf("alert store write failed: %w", err)
	}

	statDate := domain.StatDate(alert.CreatedAt)
	if err := s.stats.Increment(ctx, identity.LocationID, statDate, domain.StatFieldTotalAlerts, 1); err != nil {
		return "", fmt.Errorf("alert count increment failed: %w", err)
	}

	s.touchCamera(ctx, identity, in.Timestamp, nil)

	// alert:new 推给租户房间（租户已知时）+ 门店房间
	rooms := []string{fanout.LocationRoom(identity.LocationID)}
	if identity.TenantID != nil {
		rooms = append(rooms, fanout.TenantRoom(*identity.TenantID))
	}
	s.hub.Publish(ctx, fanout.Event{
		Name:    "alert:new",
		Payload: alert.ToJSON(),
		Rooms:   rooms,
	})

	// alert:count_update 全局广播，只带 location_id：
	// 订阅端收到后自行回查，避免推送体积不可控
	s.hub.Publish(ctx, fanout.Event{
		Name:    "alert:count_update",
		Payload: map[string]any{"location_id": identity.LocationID},
		Global:  true,
	})

	return alertID, nil
}

// HeartbeatInput CV 引擎心跳
type HeartbeatInput struct {
	CameraCount   int
	ActiveStreams int
	UptimeSeconds float64
}

// Heartbeat 接收引擎心跳：仅作为 liveness 信号写入带 TTL 的 redis key
// （无持久化、无推送副作用）；redis 不可用时只记日志，心跳照常应答
func (s *IngestService) Heartbeat(ctx context.Context, in HeartbeatInput) {
	s.logger.Debug("CV engine heartbeat",
		zap.Int("camera_count", in.CameraCount),
		zap.Int("active_streams", in.ActiveStreams),
		zap.Float64("uptime_seconds", in.UptimeSeconds),
	)

	if s.kv == nil {
		return
	}
	hb := store.EngineHeartbeat{
		CameraCount:   in.CameraCount,
		ActiveStreams: in.ActiveStreams,
		UptimeSeconds: in.UptimeSeconds,
		ReceivedAt:    time.Now().Unix(),
	}
	if err := store.SetEngineHeartbeat(ctx, s.kv, hb); err != nil {
		s.logger.Warn("Failed to record engine heartbeat", zap.Error(err))
	}
}

func (s *IngestService) touchCamera(ctx context.Context, identity domain.CameraIdentity, seenAt time.Time, fps *float64) {
	if s.cameras == nil || identity.CameraID == nil {
		return
	}
	if err := s.cameras.TouchCamera(ctx, *identity.CameraID, seenAt, fps); err != nil {
		s.logger.Warn("Failed to update camera last_seen",
			zap.String("camera_id", *identity.CameraID),
			zap.Error(err),
		)
	}
}
