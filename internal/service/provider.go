// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"context"

	"chatkuy_server/internal/dto/respond"
	"chatkuy_server/internal/service/message"
	"chatkuy_server/internal/service/readstate"
)

// Services 聚合所有 Service 实例
// 作为依赖注入的入口，Handler 层通过此结构访问各个 Service
type Services struct {
	Chat     ChatService     // 私聊 Service
	Presence PresenceService // 在线状态 Service
	Auth     AuthService     // 身份校验 Service
}

// chatService 组合消息存储与已读状态服务
type chatService struct {
	*readstate.Service
	store *message.Store
}

// ListConversations 会话列表直接读取消息存储
func (c *chatService) ListConversations(ctx context.Context, userId string) ([]respond.ConversationSummaryRespond, error) {
	return c.store.ListConversations(ctx, userId)
}

// NewServices 创建并注入所有 Service 实例
// 依赖注入流程：
//  1. 接收已构造好的消息存储、已读状态、在线状态和认证服务
//  2. 组合出 Handler 层需要的接口
//  3. 返回 Services 聚合
func NewServices(store *message.Store, reads *readstate.Service, presence PresenceService, auth AuthService) *Services {
	return &Services{
		Chat:     &chatService{Service: reads, store: store},
		Presence: presence,
		Auth:     auth,
	}
}
