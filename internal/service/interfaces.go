// Package service 定义业务层接口
// 本文件定义 Handler 层依赖的 Service 接口
// 接口设计遵循依赖倒置原则，便于测试和解耦
package service

import (
	"context"

	"chatkuy_server/internal/dto/respond"
	"chatkuy_server/internal/service/auth"
)

// ChatService 私聊业务接口
// 处理会话列表、历史消息和已读状态
type ChatService interface {
	// ListConversations 获取用户的会话列表，按最新消息时间倒序
	ListConversations(ctx context.Context, userId string) ([]respond.ConversationSummaryRespond, error)
	// ReadHistoryPage 分页获取与好友的聊天记录
	ReadHistoryPage(ctx context.Context, userId, friendId string, limit int, cursor string) (*respond.MessageHistoryRespond, error)
	// MarkMessageRead 将单条消息标为已读
	MarkMessageRead(ctx context.Context, userId, conversationId, messageId string) error
	// MarkConversationRead 将与好友会话中的全部未读消息标为已读
	MarkConversationRead(ctx context.Context, userId, friendId string) (*respond.MarkAllReadRespond, error)
}

// PresenceService 在线状态接口
type PresenceService interface {
	// GetOnlineStatus 查询自己或好友是否在线
	GetOnlineStatus(ctx context.Context, userId, targetId string) (*respond.OnlineStatusRespond, error)
}

// AuthService 身份校验接口，供认证中间件使用
type AuthService interface {
	// Verify 校验 Access Token 并返回调用方身份
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}
