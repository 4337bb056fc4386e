package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shopguard-backend/internal/repository"
	"shopguard-backend/internal/service"

	"go.uber.org/zap"
)

// AlertHandler 看板侧报警 API（列表 / 详情 / 生命周期流转 / 导出 / 日统计）
type AlertHandler struct {
	alertService *service.AlertEventService
	sessions     *SessionStore
	logger       *zap.Logger
}

func NewAlertHandler(alertService *service.AlertEventService, sessions *SessionStore, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		sessions:     sessions,
		logger:       logger,
	}
}

// parseAlertFilters 解析列表/导出共用的查询参数
func parseAlertFilters(r *http.Request) repository.AlertFilters {
	var filters repository.AlertFilters
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("location_id")); v != "" {
		filters.LocationID = &v
	}
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		filters.Status = &v
	}
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		filters.AlertType = &v
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			utc := ts.UTC()
			filters.StartTime = &utc
		}
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			utc := ts.UTC()
			filters.EndTime = &utc
		}
	}
	return filters
}

// ============================================
// ListAlerts 查询报警列表
// ============================================

// ListAlerts GET /dashboard/api/v1/alerts
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	if _, ok := RequireSession(h.sessions, w, r); !ok {
		return
	}

	filters := parseAlertFilters(r)
	limit := parseInt(r.URL.Query().Get("limit"), 20)
	offset := parseInt(r.URL.Query().Get("offset"), 0)
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	alerts, total, err := h.alertService.ListAlerts(r.Context(), filters, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list alerts", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list alerts"))
		return
	}

	items := make([]map[string]any, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, a.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"alerts": items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}))
}

// GetAlert GET /dashboard/api/v1/alerts/{id}
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request, alertID string) {
	if _, ok := RequireSession(h.sessions, w, r); !ok {
		return
	}

	alert, err := h.alertService.GetAlert(r.Context(), alertID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("alert not found"))
			return
		}
		h.logger.Error("Failed to get alert", zap.String("alert_id", alertID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to get alert"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(alert.ToJSON()))
}

// ============================================
// UpdateAlert 生命周期流转
// ============================================

type alertUpdateRequest struct {
	Status     *string `json:"status"`
	ReviewedBy *string `json:"reviewed_by"`
}

// UpdateAlert PATCH /dashboard/api/v1/alerts/{id}
func (h *AlertHandler) UpdateAlert(w http.ResponseWriter, r *http.Request, alertID string) {
	session, ok := RequireSession(h.sessions, w, r)
	if !ok {
		return
	}

	var req alertUpdateRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	// reviewed_by 缺省取会话用户
	if req.ReviewedBy == nil && req.Status != nil && session.UserID != "" {
		req.ReviewedBy = &session.UserID
	}

	alert, err := h.alertService.UpdateAlert(r.Context(), alertID, req.Status, req.ReviewedBy)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus), errors.Is(err, service.ErrInvalidPayload):
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		case errors.Is(err, service.ErrNotFound):
			writeJSON(w, http.StatusNotFound, Fail("alert not found"))
		default:
			h.logger.Error("Failed to update alert", zap.String("alert_id", alertID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("failed to update alert"))
		}
		return
	}

	writeJSON(w, http.StatusOK, Ok(alert.ToJSON()))
}

// ============================================
// ExportAlerts 导出 Excel
// ============================================

// ExportAlerts GET /dashboard/api/v1/alerts/export
// 按查询条件导出报警明细（最多 exportLimit 条）
func (h *AlertHandler) ExportAlerts(w http.ResponseWriter, r *http.Request) {
	if _, ok := RequireSession(h.sessions, w, r); !ok {
		return
	}

	const exportLimit = 5000

	filters := parseAlertFilters(r)
	alerts, _, err := h.alertService.ListAlerts(r.Context(), filters, exportLimit, 0)
	if err != nil {
		h.logger.Error("Failed to list alerts for export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to export alerts"))
		return
	}

	data, err := GenerateAlertExport(alerts)
	if err != nil {
		h.logger.Error("Failed to generate alert export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to export alerts"))
		return
	}

	filename := fmt.Sprintf("alerts_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ============================================
// GetDailyStats 日统计
// ============================================

// GetDailyStats GET /dashboard/api/v1/stats/daily
func (h *AlertHandler) GetDailyStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := RequireSession(h.sessions, w, r); !ok {
		return
	}

	locationID := strings.TrimSpace(r.URL.Query().Get("location_id"))
	statDate := strings.TrimSpace(r.URL.Query().Get("date"))

	stat, err := h.alertService.GetDailyStat(r.Context(), locationID, statDate)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPayload) {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		h.logger.Error("Failed to get daily stat",
			zap.String("location_id", locationID),
			zap.String("stat_date", statDate),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to get daily stats"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(stat.ToJSON()))
}
