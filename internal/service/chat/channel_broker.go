// Package chat 实现长连接实时投递
// channel_broker.go
// 核心职责：单机模式下的投递代理
// 1. Publish 写入 Transmit 通道
// 2. Start 单协程顺序消费，写入本地连接
// 3. 不依赖外部消息队列，适合小规模或开发环境
package chat

import (
	"context"
	"errors"
	"sync"

	"chatkuy_server/pkg/constants"
)

// ErrBrokerClosed 代理已关闭
var ErrBrokerClosed = errors.New("broker closed")

// StandaloneBroker 单机投递代理
type StandaloneBroker struct {
	// Transmit 投递转发通道
	Transmit  chan Delivery
	registry  *Registry
	done      chan struct{}
	closeOnce sync.Once
}

// NewStandaloneBroker 创建单机代理
func NewStandaloneBroker(registry *Registry) *StandaloneBroker {
	return &StandaloneBroker{
		Transmit: make(chan Delivery, constants.CHANNEL_SIZE),
		registry: registry,
		done:     make(chan struct{}),
	}
}

// Publish 通道满时阻塞，直到 ctx 取消或代理关闭
func (s *StandaloneBroker) Publish(ctx context.Context, d Delivery) error {
	select {
	case <-s.done:
		return ErrBrokerClosed
	default:
	}
	select {
	case s.Transmit <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrBrokerClosed
	}
}

// Start 消费循环
func (s *StandaloneBroker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case d := <-s.Transmit:
			deliverLocal(s.registry, d)
		}
	}
}

// Close 停止消费，通道不关闭，避免并发 Publish 写入已关闭的通道
func (s *StandaloneBroker) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
