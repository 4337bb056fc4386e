package fanout

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// 房间命名约定（客户端按租户/门店加入，全局房间隐式存在）
func TenantRoom(tenantID string) string     { return "tenant:" + tenantID }
func LocationRoom(locationID string) string { return "location:" + locationID }

// Subscriber 一个已连接的实时订阅端
// Send 必须不阻塞：投递失败/缓冲满返回 false（消息丢弃，由订阅端重连+回查兜底）
type Subscriber interface {
	ID() string
	Send(msg []byte) bool
}

// Event 一次发布
type Event struct {
	Name    string   // 事件名（detection / alert:new / alert:count_update）
	Payload any      // JSON 负载
	Rooms   []string // 目标房间
	Global  bool     // 是否同时投递到全局房间
}

// envelope 推送帧格式
type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Hub 发布/订阅路由：房间名 -> 当前在线订阅端集合
// 房间成员关系不持久化，订阅端重连后自行重新 join。
// 发布是 fire-and-forget：遍历成员快照逐个投递，单个失败静默容忍
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]Subscriber // room -> subscriberID -> subscriber
	global map[string]Subscriber            // 全部在线订阅端（全局房间）

	bridge *RedisBridge // 可选：跨实例事件总线
	logger *zap.Logger
}

// NewHub 创建 Hub；bridge 可为 nil（单实例部署）
func NewHub(bridge *RedisBridge, logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  map[string]map[string]Subscriber{},
		global: map[string]Subscriber{},
		bridge: bridge,
		logger: logger,
	}
}

// Register 订阅端连接后登记（自动成为全局房间成员）
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.global[sub.ID()] = sub
}

// Unregister 订阅端断开后从所有房间移除
func (h *Hub) Unregister(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.global, sub.ID())
	for room, members := range h.rooms {
		delete(members, sub.ID())
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Join 加入房间（任意时刻可调用）
func (h *Hub) Join(sub Subscriber, room string) {
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = map[string]Subscriber{}
	}
	h.rooms[room][sub.ID()] = sub
}

// Leave 离开房间
func (h *Hub) Leave(sub Subscriber, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, sub.ID())
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// RoomSize 房间当前成员数（监控/测试用）
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish 把事件投递到目标房间成员（去重后每个订阅端只收一次），
// 并镜像到 redis 事件总线（如配置）。对单个订阅端的投递结果不上报、不重试
func (h *Hub) Publish(ctx context.Context, ev Event) {
	msg, err := json.Marshal(envelope{Event: ev.Name, Payload: ev.Payload})
	if err != nil {
		h.logger.Error("Failed to marshal fanout event",
			zap.String("event", ev.Name),
			zap.Error(err),
		)
		return
	}

	// 成员快照（持锁收集，投递在锁外）
	h.mu.RLock()
	targets := map[string]Subscriber{}
	for _, room := range ev.Rooms {
		for id, sub := range h.rooms[room] {
			targets[id] = sub
		}
	}
	if ev.Global {
		for id, sub := range h.global {
			targets[id] = sub
		}
	}
	h.mu.RUnlock()

	dropped := 0
	for _, sub := range targets {
		if !sub.Send(msg) {
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Debug("Dropped fanout messages for slow subscribers",
			zap.String("event", ev.Name),
			zap.Int("dropped", dropped),
		)
	}

	// 跨实例总线：失败只记日志（事件已落库，订阅端可通过查询接口回查）
	if h.bridge != nil {
		if err := h.bridge.Publish(ctx, ev.Name, ev.Payload); err != nil {
			h.logger.Warn("Failed to publish event to redis bridge",
				zap.String("event", ev.Name),
				zap.Error(err),
			)
		}
	}
}
