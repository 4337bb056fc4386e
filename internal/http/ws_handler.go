package httpapi

import (
	"net/http"

	"shopguard-backend/internal/fanout"
	"shopguard-backend/internal/ws"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler 实时推送入口：升级连接后交给 ws.Client 读写泵
// 鉴权复用看板会话令牌（握手带不了自定义头，支持 ?token= 形态）
type WSHandler struct {
	hub      *fanout.Hub
	sessions *SessionStore
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(hub *fanout.Hub, sessions *SessionStore, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 看板域名由反向代理收敛，这里不做 Origin 白名单
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve GET /ws
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessions.Validate(BearerToken(r))
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("invalid or missing session token"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已写出错误响应
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(uuid.NewString(), conn, h.hub, h.logger)
	client.Run()

	// 会话归属租户的连接自动加入租户房间；门店房间由客户端按需 join
	if session.TenantID != "" {
		h.hub.Join(client, fanout.TenantRoom(session.TenantID))
	}
}
