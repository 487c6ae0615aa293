// Package presence 提供好友在线状态查询
// 在线状态来自本实例的连接注册表，只反映连接到本实例的会话
package presence

import (
	"context"

	"chatkuy_server/internal/dto/respond"
	"chatkuy_server/pkg/errorx"
)

// FriendChecker 好友校验
type FriendChecker interface {
	AreFriends(ctx context.Context, userA, userB string) bool
}

// OnlineChecker 在线判断
type OnlineChecker interface {
	IsOnline(userId string) bool
}

// Service 在线状态服务
type Service struct {
	gate   FriendChecker
	online OnlineChecker
}

// NewService 构造函数
func NewService(gate FriendChecker, online OnlineChecker) *Service {
	return &Service{gate: gate, online: online}
}

// GetOnlineStatus 只允许查询好友或自己的在线状态
func (s *Service) GetOnlineStatus(ctx context.Context, userId, targetId string) (*respond.OnlineStatusRespond, error) {
	if targetId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "userId 不能为空")
	}
	if targetId != userId && !s.gate.AreFriends(ctx, userId, targetId) {
		return nil, errorx.ErrNotFriends
	}
	return &respond.OnlineStatusRespond{
		UserId:   targetId,
		IsOnline: s.online.IsOnline(targetId),
	}, nil
}
