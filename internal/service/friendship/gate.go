// Package friendship 判断两个用户是否为好友，是发送消息和读取历史的前置条件
package friendship

import (
	"context"

	"go.uber.org/zap"

	"chatkuy_server/internal/dao/mysql/repository"
	"chatkuy_server/pkg/enum/contact_status_enum"
	"chatkuy_server/pkg/errorx"
	"chatkuy_server/pkg/util/conversation"
)

// Gate 好友关系校验
type Gate struct {
	contacts repository.ContactRepository
}

// NewGate 构造函数
func NewGate(contacts repository.ContactRepository) *Gate {
	return &Gate{contacts: contacts}
}

// AreFriends userB 在 userA 的好友列表中且状态正常时返回 true
// 查询出错、关系不存在或用户 ID 非法一律返回 false，错误只记录日志
func (g *Gate) AreFriends(ctx context.Context, userA, userB string) bool {
	if !conversation.ValidUserId(userA) || !conversation.ValidUserId(userB) || userA == userB {
		return false
	}
	contact, err := g.contacts.FindByUserIdAndContactId(ctx, userA, userB)
	if err != nil {
		if !errorx.IsNotFound(err) {
			zap.L().Error("查询好友关系失败", zap.String("user_id", userA), zap.String("contact_id", userB), zap.Error(err))
		}
		return false
	}
	return contact.Status == contact_status_enum.NORMAL
}
