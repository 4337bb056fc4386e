package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultEventStream 事件总线默认 stream 名
const DefaultEventStream = "shopguard:cv:events"

// RedisBridge 把实时事件镜像到 Redis Streams，供其它服务（POS 对账、
// 通知推送等）以 consumer group 方式消费
type RedisBridge struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisBridge 创建事件总线；stream 为空时用默认值
func NewRedisBridge(client *redis.Client, stream string) *RedisBridge {
	if stream == "" {
		stream = DefaultEventStream
	}
	return &RedisBridge{
		client: client,
		stream: stream,
		maxLen: 100000, // 近似裁剪，防止 stream 无限增长
	}
}

// Publish 发布一条事件到 stream
func (b *RedisBridge) Publish(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event":     event,
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", b.stream, err)
	}
	return nil
}
