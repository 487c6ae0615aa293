// Package chat 实现长连接实时投递
// kafka_client.go
// 核心职责：Kafka 基础设施管理
// 1. 封装 Kafka 底层连接 (Writer/Reader)
// 2. 提供消息写入接口 (SendMessage)
// 3. 纯技术组件，不包含聊天业务逻辑
package chat

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	myconfig "chatkuy_server/internal/config"
)

// KafkaClient Kafka 客户端结构
type KafkaClient struct {
	Producer *kafka.Writer // 生产者：负责写入投递
	Consumer *kafka.Reader // 消费者：负责读取投递
}

// NewKafkaClient 创建 Kafka 客户端
// 每个实例使用独立的消费组，保证每个实例都能收到全量投递
func NewKafkaClient(kafkaConfig myconfig.KafkaConfig, nodeId string) *KafkaClient {
	timeout := kafkaConfig.Timeout * time.Second
	if timeout <= 0 {
		timeout = time.Second
	}
	return &KafkaClient{
		Producer: &kafka.Writer{
			Addr:                   kafka.TCP(kafkaConfig.HostPort),
			Topic:                  kafkaConfig.DeliveryTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           timeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		Consumer: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{kafkaConfig.HostPort},
			Topic:          kafkaConfig.DeliveryTopic,
			CommitInterval: timeout,
			GroupID:        kafkaConfig.ConsumerGroup + "-" + nodeId,
			StartOffset:    kafka.LastOffset,
		}),
	}
}

// SendMessage 写入一条消息，key 相同的消息落在同一分区，保持顺序
func (k *KafkaClient) SendMessage(ctx context.Context, key, value []byte) error {
	return k.Producer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

// Close 关闭生产者和消费者
func (k *KafkaClient) Close() {
	if err := k.Producer.Close(); err != nil {
		zap.L().Error("关闭 Kafka 生产者失败", zap.Error(err))
	}
	if err := k.Consumer.Close(); err != nil {
		zap.L().Error("关闭 Kafka 消费者失败", zap.Error(err))
	}
}
