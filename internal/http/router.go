package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterCVRoutes 注册 CV 引擎上报路由
// 引擎客户端写死的是 /api/cv/* 路径；/cv/api/v1/* 按本服务的前缀约定同步注册
func (r *Router) RegisterCVRoutes(h *CVIngestHandler) {
	post := func(handler http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			handler(w, req)
		}
	}

	for _, prefix := range []string{"/api/cv", "/cv/api/v1"} {
		r.Handle(prefix+"/detections", post(h.IngestDetection))
		r.Handle(prefix+"/alerts", post(h.IngestAlert))
		r.Handle(prefix+"/heartbeat", post(h.Heartbeat))
	}
}

// RegisterDashboardRoutes 注册看板侧路由
func (r *Router) RegisterDashboardRoutes(h *AlertHandler) {
	r.Handle("/dashboard/api/v1/alerts", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListAlerts(w, req)
	})

	// alerts/export 与 alerts/{id} 共享前缀，先判后缀
	r.Handle("/dashboard/api/v1/alerts/", func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path
		if path == "/dashboard/api/v1/alerts/export" {
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.ExportAlerts(w, req)
			return
		}

		id := strings.TrimPrefix(path, "/dashboard/api/v1/alerts/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodGet:
			h.GetAlert(w, req, id)
		case http.MethodPatch:
			h.UpdateAlert(w, req, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	r.Handle("/dashboard/api/v1/stats/daily", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetDailyStats(w, req)
	})
}

// RegisterWSRoutes 注册实时推送路由
func (r *Router) RegisterWSRoutes(h *WSHandler) {
	r.Handle("/ws", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Serve(w, req)
	})
}

// RegisterHealthRoutes 注册健康检查路由
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
