package httpapi

import (
	"errors"
	"net/http"
	"time"

	"shopguard-backend/internal/domain"
	"shopguard-backend/internal/service"

	"go.uber.org/zap"
)

// CVIngestHandler CV 引擎上报入口（检测事件 / 异常告警 / 心跳）
// 请求体字段与引擎侧客户端保持一致，认证使用 X-API-Key
type CVIngestHandler struct {
	ingestService *service.IngestService
	auth          *ProducerAuth
	logger        *zap.Logger
}

func NewCVIngestHandler(ingestService *service.IngestService, auth *ProducerAuth, logger *zap.Logger) *CVIngestHandler {
	return &CVIngestHandler{
		ingestService: ingestService,
		auth:          auth,
		logger:        logger,
	}
}

// maxIngestBody 上报体上限（snapshot_b64 含整帧截图）
const maxIngestBody = 8 << 20

// ============================================
// 引擎侧 wire 格式
// ============================================

type detectionPayload struct {
	CameraID    string   `json:"camera_id"`
	LocationID  string   `json:"location_id"`
	Timestamp   string   `json:"timestamp"`
	FrameNumber int64    `json:"frame_number"`
	FPS         *float64 `json:"fps,omitempty"`
	// 指针区分"缺字段"与"空帧"：空帧合法，缺字段 400
	Detections  *[]detectedObjectPayload `json:"detections"`
	SnapshotB64 *string                  `json:"snapshot_b64,omitempty"`
}

type detectedObjectPayload struct {
	ClassID    int                `json:"class_id"`
	ClassName  string             `json:"class_name"`
	Confidence float64            `json:"confidence"`
	BBox       domain.BoundingBox `json:"bbox"`
	TrackID    *int64             `json:"track_id,omitempty"`
}

type alertPayload struct {
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

type heartbeatPayload struct {
	Cameras int     `json:"cameras"`
	Active  int     `json:"active"`
	Uptime  float64 `json:"uptime"`
}

// parseEventTime 引擎侧时间戳统一 RFC3339
func parseEventTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// ============================================
// Handlers
// ============================================

// IngestDetection POST /cv/api/v1/detections
func (h *CVIngestHandler) IngestDetection(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Check(w, r) {
		return
	}

	var payload detectionPayload
	if err := readBodyJSON(r, maxIngestBody, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	input := service.DetectionInput{
		CameraID:       payload.CameraID,
		LocationIDHint: payload.LocationID,
		Timestamp:      parseEventTime(payload.Timestamp),
		FrameNumber:    payload.FrameNumber,
		Snapshot:       payload.SnapshotB64,
		FPS:            payload.FPS,
	}
	if payload.Detections != nil {
		objects := make([]domain.DetectedObject, 0, len(*payload.Detections))
		for _, o := range *payload.Detections {
			objects = append(objects, domain.DetectedObject{
				ClassID:    o.ClassID,
				ClassName:  o.ClassName,
				Confidence: o.Confidence,
				BBox:       o.BBox,
				TrackID:    o.TrackID,
			})
		}
		input.Objects = objects
	}

	detectionID, err := h.ingestService.IngestDetection(r.Context(), input)
	if err != nil {
		h.writeIngestError(w, r, "ingest detection failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"detection_id": detectionID})
}

// IngestAlert POST /cv/api/v1/alerts
func (h *CVIngestHandler) IngestAlert(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Check(w, r) {
		return
	}

	var payload alertPayload
	if err := readBodyJSON(r, maxIngestBody, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	input := service.AlertInput{
		CameraID:       payload.CameraID,
		LocationIDHint: payload.LocationID,
		Timestamp:      parseEventTime(payload.Timestamp),
		AlertType:      payload.AlertType,
		TrackID:        payload.TrackID,
		ClassName:      payload.ClassName,
		Confidence:     payload.Confidence,
		BBox:           payload.BBox,
		Snapshot:       payload.SnapshotB64,
		Description:    payload.Description,
	}

	alertID, err := h.ingestService.IngestAlert(r.Context(), input)
	if err != nil {
		h.writeIngestError(w, r, "ingest alert failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"alert_id": alertID})
}

// Heartbeat POST /cv/api/v1/heartbeat
func (h *CVIngestHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Check(w, r) {
		return
	}

	var payload heartbeatPayload
	if err := readBodyJSON(r, maxIngestBody, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	h.ingestService.Heartbeat(r.Context(), service.HeartbeatInput{
		CameraCount:   payload.Cameras,
		ActiveStreams: payload.Active,
		UptimeSeconds: payload.Uptime,
	})

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *CVIngestHandler) writeIngestError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, service.ErrInvalidPayload) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	h.logger.Error(msg,
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
}
