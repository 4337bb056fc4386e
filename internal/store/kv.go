package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrMiss = errors.New("cache miss")

type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type RedisKV struct {
	c *redis.Client
}

func NewRedisKV(c *redis.Client) *RedisKV { return &RedisKV{c: c} }

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.c.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

// ============================================
// CV 引擎心跳（liveness 信号，供外部监控消费）
// ============================================

// 心跳 key 带 TTL：引擎停止上报后自动过期，监控侧据此判定引擎离线
const (
	engineHeartbeatKey = "shopguard:cv:heartbeat"
	engineHeartbeatTTL = 90 * time.Second
)

// EngineHeartbeat CV 引擎心跳内容
type EngineHeartbeat struct {
	CameraCount   int     `json:"camera_count"`
	ActiveStreams int     `json:"active_streams"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	ReceivedAt    int64   `json:"received_at"`
}

// SetEngineHeartbeat 写入引擎心跳（覆盖写，带 TTL）
func SetEngineHeartbeat(ctx context.Context, kv KV, hb EngineHeartbeat) error {
	data, err := json.Marshal(hb)
	if err != nil {
		return err
	}
	return kv.Set(ctx, engineHeartbeatKey, string(data), engineHeartbeatTTL)
}

// GetEngineHeartbeat 读取最近一次引擎心跳；过期/不存在返回 ErrMiss
func GetEngineHeartbeat(ctx context.Context, kv KV) (*EngineHeartbeat, error) {
	val, err := kv.Get(ctx, engineHeartbeatKey)
	if err != nil {
		return nil, err
	}
	var hb EngineHeartbeat
	if err := json.Unmarshal([]byte(val), &hb); err != nil {
		return nil, err
	}
	return &hb, nil
}
