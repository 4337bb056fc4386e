package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopguard-backend/internal/domain"
	"shopguard-backend/internal/fanout"
	"shopguard-backend/internal/repository"
	"shopguard-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testAPIKey      = "cv-engine-secret"
	testFallbackLoc = "00000000-0000-0000-0000-000000000000"
	testLocation    = "11111111-1111-1111-1111-111111111111"
	testCamera      = "22222222-2222-2222-2222-222222222222"
)

type cvTestEnv struct {
	router *Router
	events *repository.MemoryEventStore
	stats  *repository.MemoryDailyStats
}

func newCVTestEnv(t *testing.T) *cvTestEnv {
	t.Helper()
	logger := zap.NewNop()

	resolver := repository.NewMemoryCameraResolver(testFallbackLoc)
	resolver.Register("cam-entrance-01", testCamera, testLocation, "")
	events := repository.NewMemoryEventStore()
	stats := repository.NewMemoryDailyStats()
	hub := fanout.NewHub(nil, logger)

	ingest := service.NewIngestService(resolver, events, events, stats, nil, hub, nil, logger)
	handler := NewCVIngestHandler(ingest, NewProducerAuth(testAPIKey), logger)

	router := NewRouter(logger)
	router.RegisterCVRoutes(handler)

	return &cvTestEnv{router: router, events: events, stats: stats}
}

func postJSON(t *testing.T, router *Router, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func detectionBody(cameraID string, objects []map[string]any) map[string]any {
	return map[string]any{
		"camera_id":    cameraID,
		"location_id":  testLocation,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"frame_number": 42,
		"detections":   objects,
	}
}

func TestCVIngest_Detection_Created(t *testing.T) {
	env := newCVTestEnv(t)

	rec := postJSON(t, env.router, "/cv/api/v1/detections", testAPIKey, detectionBody("cam-entrance-01", []map[string]any{
		{"class_id": 0, "class_name": "person", "confidence": 0.91, "bbox": map[string]float64{"x1": 1, "y1": 2, "x2": 3, "y2": 4}},
		{"class_id": 39, "class_name": "bottle", "confidence": 0.74, "bbox": map[string]float64{"x1": 5, "y1": 6, "x2": 7, "y2": 8}},
	}))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp["detection_id"])

	detections := env.events.Detections()
	require.Len(t, detections, 1)
	assert.Equal(t, testLocation, detections[0].LocationID)
	assert.Equal(t, 2, detections[0].ObjectCount)

	// detection_count 按检测对象数累加
	stat, err := env.stats.GetDailyStat(context.Background(), testLocation, domain.StatDate(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(2), stat.DetectionCount)
}

func TestCVIngest_Detection_EmptyFrameAccepted(t *testing.T) {
	env := newCVTestEnv(t)

	rec := postJSON(t, env.router, "/cv/api/v1/detections", testAPIKey, detectionBody("cam-entrance-01", []map[string]any{}))
	require.Equal(t, http.StatusCreated, rec.Code)

	detections := env.events.Detections()
	require.Len(t, detections, 1)
	assert.Equal(t, 0, detections[0].ObjectCount)
}

func TestCVIngest_Detection_MissingDetectionsField(t *testing.T) {
	env := newCVTestEnv(t)

	body := detectionBody("cam-entrance-01", nil)
	delete(body, "detections")

	rec := postJSON(t, env.router, "/cv/api/v1/detections", testAPIKey, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.events.Detections())
}

func TestCVIngest_Detection_UnknownCameraUsesFallback(t *testing.T) {
	env := newCVTestEnv(t)

	rec := postJSON(t, env.router, "/cv/api/v1/detections", testAPIKey, detectionBody("cam-unknown", []map[string]any{}))
	require.Equal(t, http.StatusCreated, rec.Code)

	detections := env.events.Detections()
	require.Len(t, detections, 1)
	assert.Equal(t, testFallbackLoc, detections[0].LocationID)
}

func TestCVIngest_Unauthorized(t *testing.T) {
	env := newCVTestEnv(t)

	for _, key := range []string{"", "wrong-key"} {
		rec := postJSON(t, env.router, "/cv/api/v1/detections", key, detectionBody("cam-entrance-01", []map[string]any{}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "key=%q", key)
	}
	assert.Empty(t, env.events.Detections())
}

func TestCVIngest_DevModeSkipsAuth(t *testing.T) {
	logger := zap.NewNop()
	resolver := repository.NewMemoryCameraResolver(testFallbackLoc)
	events := repository.NewMemoryEventStore()
	stats := repository.NewMemoryDailyStats()
	hub := fanout.NewHub(nil, logger)
	ingest := service.NewIngestService(resolver, events, events, stats, nil, hub, nil, logger)
	handler := NewCVIngestHandler(ingest, NewProducerAuth(""), logger)
	router := NewRouter(logger)
	router.RegisterCVRoutes(handler)

	rec := postJSON(t, router, "/cv/api/v1/detections", "", detectionBody("cam-x", []map[string]any{}))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCVIngest_Alert_Created(t *testing.T) {
	env := newCVTestEnv(t)

	rec := postJSON(t, env.router, "/cv/api/v1/alerts", testAPIKey, map[string]any{
		"camera_id":   "cam-entrance-01",
		"location_id": testLocation,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"alert_type":  "non_scan",
		"class_name":  "bottle",
		"confidence":  0.86,
		"description": "item passed scanner without scan event",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["alert_id"])

	alert, err := env.events.GetAlert(context.Background(), resp["alert_id"])
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityHigh, alert.Severity)
	assert.Equal(t, domain.AlertStatusOpen, alert.AlertStatus)

	stat, err := env.stats.GetDailyStat(context.Background(), testLocation, domain.StatDate(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stat.TotalAlerts)
}

func TestCVIngest_Alert_MissingCamera(t *testing.T) {
	env := newCVTestEnv(t)

	rec := postJSON(t, env.router, "/cv/api/v1/alerts", testAPIKey, map[string]any{
		"location_id": testLocation,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"alert_type":  "non_scan",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCVIngest_Heartbeat(t *testing.T) {
	env := newCVTestEnv(t)

	rec := postJSON(t, env.router, "/cv/api/v1/heartbeat", testAPIKey, map[string]any{
		"cameras": 4,
		"active":  3,
		"uptime":  3600.5,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// 引擎侧客户端写死 /api/cv/* 路径，两套前缀都必须可用
func TestCVIngest_EnginePathPrefix(t *testing.T) {
	env := newCVTestEnv(t)

	rec := postJSON(t, env.router, "/api/cv/detections", testAPIKey, detectionBody("cam-entrance-01", []map[string]any{}))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, env.router, "/api/cv/alerts", testAPIKey, map[string]any{
		"camera_id":   "cam-entrance-01",
		"location_id": testLocation,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"alert_type":  "non_scan",
		"confidence":  0.3,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, env.router, "/api/cv/heartbeat", testAPIKey, map[string]any{"cameras": 1, "active": 1, "uptime": 5.0})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCVIngest_MethodNotAllowed(t *testing.T) {
	env := newCVTestEnv(t)

	for _, path := range []string{"/cv/api/v1/detections", "/cv/api/v1/alerts", "/cv/api/v1/heartbeat"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, fmt.Sprintf("path=%s", path))
	}
}
