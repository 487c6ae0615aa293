// Package chat 实现长连接实时投递
// broker.go
// 核心职责：定义投递代理接口
// 业务侧只发布 Delivery，由代理把它送到持有目标连接的实例上再写入本地连接
// 支持 Channel（单机）和 Kafka（多实例）两种实现
package chat

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Delivery 一次投递
type Delivery struct {
	// TargetUserId 目标用户，为空表示广播给全部在线连接
	TargetUserId string `json:"targetUserId,omitempty"`
	// ExcludeConnId 广播时跳过的连接
	ExcludeConnId string `json:"excludeConnId,omitempty"`
	// MessageUuid 非 0 时表示这是一条消息的投递，写出后记录送达
	MessageUuid int64 `json:"messageUuid,omitempty"`
	// Frame 完整的下行帧
	Frame json.RawMessage `json:"frame"`
}

// MessageBroker 投递代理
type MessageBroker interface {
	// Publish 发布投递
	Publish(ctx context.Context, d Delivery) error
	// Start 启动消费循环，阻塞直到 ctx 取消或代理关闭
	Start(ctx context.Context)
	// Close 关闭代理资源
	Close()
}

// deliverLocal 把投递写入本实例的目标连接，返回成功入队的连接数
func deliverLocal(registry *Registry, d Delivery) int {
	var targets []*UserConn
	if d.TargetUserId == "" {
		targets = registry.Sessions()
	} else {
		targets = registry.SessionsFor(d.TargetUserId)
	}
	delivered := 0
	for _, c := range targets {
		if c.Id == d.ExcludeConnId {
			continue
		}
		if c.Enqueue(d.Frame, d.MessageUuid) {
			delivered++
		}
	}
	if d.TargetUserId != "" && len(targets) > 0 {
		zap.L().Debug("投递完成", zap.String("user_id", d.TargetUserId), zap.Int("conns", delivered))
	}
	return delivered
}
