package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"shopguard-backend/internal/domain"
	"shopguard-backend/internal/service"

	"go.uber.org/zap"
)

// CVBroker CV 引擎 MQTT 上报通道（HTTP 上报的可选替代，默认禁用）
// 主题布局：<prefix>/detections、<prefix>/alerts、<prefix>/heartbeat，
// 消息体与 HTTP 上报的 JSON 格式一致
type CVBroker struct {
	ingestService *service.IngestService
	logger        *zap.Logger
}

func NewCVBroker(ingestService *service.IngestService, logger *zap.Logger) *CVBroker {
	return &CVBroker{
		ingestService: ingestService,
		logger:        logger,
	}
}

// 引擎侧消息格式（与 HTTP 上报一致）

type detectionMessage struct {
	CameraID    string                   `json:"camera_id"`
	LocationID  string                   `json:"location_id"`
	Timestamp   string                   `json:"timestamp"`
	FrameNumber int64                    `json:"frame_number"`
	FPS         *float64                 `json:"fps,omitempty"`
	Detections  *[]domain.DetectedObject `json:"detections"`
	SnapshotB64 *string                  `json:"snapshot_b64,omitempty"`
}

type alertMessage struct {
	CameraID    string              `json:"camera_id"`
	LocationID  string              `json:"location_id"`
	Timestamp   string              `json:"timestamp"`
	AlertType   string              `json:"alert_type"`
	TrackID     *int64              `json:"track_id,omitempty"`
	ClassName   string              `json:"class_name"`
	Confidence  float64             `json:"confidence"`
	BBox        *domain.BoundingBox `json:"bbox,omitempty"`
	Description string              `json:"description,omitempty"`
	SnapshotB64 *string             `json:"snapshot_b64,omitempty"`
}

type heartbeatMessage struct {
	Cameras int     `json:"cameras"`
	Active  int     `json:"active"`
	Uptime  float64 `json:"uptime"`
}

// HandleMessage 处理 MQTT 消息，按主题后缀路由
func (b *CVBroker) HandleMessage(topic string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch {
	case strings.HasSuffix(topic, "/detections"):
		return b.handleDetection(ctx, payload)
	case strings.HasSuffix(topic, "/alerts"):
		return b.handleAlert(ctx, payload)
	case strings.HasSuffix(topic, "/heartbeat"):
		return b.handleHeartbeat(ctx, payload)
	default:
		b.logger.Debug("Unhandled MQTT topic", zap.String("topic", topic))
		return nil
	}
}

func (b *CVBroker) handleDetection(ctx context.Context, payload []byte) error {
	var msg detectionMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal detection message: %w", err)
	}

	input := service.DetectionInput{
		CameraID:       msg.CameraID,
		LocationIDHint: msg.LocationID,
		Timestamp:      parseTimestamp(msg.Timestamp),
		FrameNumber:    msg.FrameNumber,
		Snapshot:       msg.SnapshotB64,
		FPS:            msg.FPS,
	}
	if msg.Detections != nil {
		input.Objects = *msg.Detections
	}

	if _, err := b.ingestService.IngestDetection(ctx, input); err != nil {
		return fmt.Errorf("failed to ingest detection: %w", err)
	}
	return nil
}

func (b *CVBroker) handleAlert(ctx context.Context, payload []byte) error {
	var msg alertMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal alert message: %w", err)
	}

	input := service.AlertInput{
		CameraID:       msg.CameraID,
		LocationIDHint: msg.LocationID,
		Timestamp:      parseTimestamp(msg.Timestamp),
		AlertType:      msg.AlertType,
		TrackID:        msg.TrackID,
		ClassName:      msg.ClassName,
		Confidence:     msg.Confidence,
		BBox:           msg.BBox,
		Snapshot:       msg.SnapshotB64,
		Description:    msg.Description,
	}

	if _, err := b.ingestService.IngestAlert(ctx, input); err != nil {
		return fmt.Errorf("failed to ingest alert: %w", err)
	}
	return nil
}

func (b *CVBroker) handleHeartbeat(ctx context.Context, payload []byte) error {
	var msg heartbeatMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal heartbeat message: %w", err)
	}

	b.ingestService.Heartbeat(ctx, service.HeartbeatInput{
		CameraCount:   msg.Cameras,
		ActiveStreams: msg.Active,
		UptimeSeconds: msg.Uptime,
	})
	return nil
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
