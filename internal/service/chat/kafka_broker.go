// Package chat 实现长连接实时投递
// kafka_broker.go
// 核心职责：多实例模式下的投递代理
// 1. Publish 序列化 Delivery 写入 Kafka，按目标用户分区
// 2. Start 消费全量投递，只写入本实例持有的连接
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// KafkaBroker 基于 Kafka 的投递代理
type KafkaBroker struct {
	client    *KafkaClient
	registry  *Registry
	closeOnce sync.Once
}

// NewKafkaBroker 创建 Kafka 代理
func NewKafkaBroker(client *KafkaClient, registry *Registry) *KafkaBroker {
	return &KafkaBroker{client: client, registry: registry}
}

// Publish 写入 Kafka
func (k *KafkaBroker) Publish(ctx context.Context, d Delivery) error {
	value, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return k.client.SendMessage(ctx, []byte(d.TargetUserId), value)
}

// Start 消费循环，读取失败时短暂等待后重试
func (k *KafkaBroker) Start(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("kafka broker panic", zap.Any("recover", r))
		}
	}()
	for {
		kafkaMessage, err := k.client.Consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			zap.L().Error("读取 Kafka 投递失败", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		var d Delivery
		if err := json.Unmarshal(kafkaMessage.Value, &d); err != nil {
			zap.L().Error("解析 Kafka 投递失败", zap.Int64("offset", kafkaMessage.Offset), zap.Error(err))
			continue
		}
		deliverLocal(k.registry, d)
	}
}

// Close 关闭 Kafka 连接，Start 中阻塞的读取随之返回
func (k *KafkaBroker) Close() {
	k.closeOnce.Do(k.client.Close)
}
