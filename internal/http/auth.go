package httpapi

import (
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ============================================
// 引擎侧认证（共享密钥）
// ============================================

// ProducerAuth CV 引擎上报认证：校验 X-API-Key 请求头
// apiKey 配置为空时视为 dev 模式（不校验）
type ProducerAuth struct {
	apiKey string
}

func NewProducerAuth(apiKey string) *ProducerAuth {
	return &ProducerAuth{apiKey: apiKey}
}

// Check 通过返回 true；失败时已写出 401
func (a *ProducerAuth) Check(w http.ResponseWriter, r *http.Request) bool {
	if a.apiKey == "" {
		return true
	}
	if r.Header.Get("X-API-Key") != a.apiKey {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return false
	}
	return true
}

// ============================================
// 看板侧认证（会话令牌；签发在外部认证服务）
// ============================================

// Session 一个有效的看板会话
type Session struct {
	UserID   string
	TenantID string
}

// SessionStore 内存会话表（dev/联测用；生产部署由外部认证服务写入）
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session // token -> session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[string]Session{}}
}

// AddToken 注册一个会话令牌，返回令牌本身
func (s *SessionStore) AddToken(token string, session Session) string {
	if token == "" {
		token = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session
	return token
}

// Validate 校验令牌；无效返回 false
func (s *SessionStore) Validate(token string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	return session, ok
}

// BearerToken 从 Authorization 头或 token 查询参数取令牌
// （websocket 握手无法带自定义头，放行查询参数形态）
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// RequireSession 通过返回 true；失败时已写出 401
func RequireSession(store *SessionStore, w http.ResponseWriter, r *http.Request) (Session, bool) {
	session, ok := store.Validate(BearerToken(r))
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("invalid or missing session token"))
		return Session{}, false
	}
	return session, true
}
