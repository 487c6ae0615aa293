// Package readstate 组合好友校验、消息存储和实时通知，
// 提供分页读取历史以及单条/整体已读，供 REST 接口和长连接共同使用
package readstate

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"chatkuy_server/internal/dto/respond"
	"chatkuy_server/internal/model"
	"chatkuy_server/internal/service/message"
	"chatkuy_server/pkg/constants"
	"chatkuy_server/pkg/errorx"
)

// FriendChecker 好友校验
type FriendChecker interface {
	AreFriends(ctx context.Context, userA, userB string) bool
}

// Store 依赖的消息存储能力
type Store interface {
	GetHistory(ctx context.Context, userA, userB string, limit int, cursor string) (*message.HistoryPage, error)
	MarkAllRead(ctx context.Context, userId, friendId string) (*respond.MarkAllReadRespond, error)
	GetMessage(ctx context.Context, messageId string) (*model.Message, error)
	MarkMessageRead(ctx context.Context, messageUuid int64, conversationId string) (*model.Message, error)
}

// Notifier 向某个用户的全部在线连接推送事件
type Notifier interface {
	NotifyUser(ctx context.Context, userId, event string, data any) error
}

// Service 已读状态服务
type Service struct {
	gate     FriendChecker
	store    Store
	notifier Notifier
	now      func() time.Time
}

// NewService 构造函数，notifier 为 nil 时不推送
func NewService(gate FriendChecker, store Store, notifier Notifier) *Service {
	return &Service{
		gate:     gate,
		store:    store,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ReadHistoryPage 好友校验后读取一页历史消息
func (s *Service) ReadHistoryPage(ctx context.Context, userId, friendId string, limit int, cursor string) (*respond.MessageHistoryRespond, error) {
	if friendId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "friendId 不能为空")
	}
	if !s.gate.AreFriends(ctx, userId, friendId) {
		return nil, errorx.ErrNotFriends
	}
	page, err := s.store.GetHistory(ctx, userId, friendId, limit, cursor)
	if err != nil {
		return nil, err
	}
	return &respond.MessageHistoryRespond{
		FriendId: friendId,
		Messages: message.ToMessageRespondList(page.Messages),
		HasMore:  page.HasMore,
		Cursor:   page.Cursor,
	}, nil
}

// MarkConversationRead 将好友发来的未读消息全部置为已读，并通知好友
func (s *Service) MarkConversationRead(ctx context.Context, userId, friendId string) (*respond.MarkAllReadRespond, error) {
	if friendId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "friendId 不能为空")
	}
	if !s.gate.AreFriends(ctx, userId, friendId) {
		return nil, errorx.ErrNotFriends
	}
	res, err := s.store.MarkAllRead(ctx, userId, friendId)
	if err != nil {
		return nil, err
	}
	if res.Updated > 0 {
		s.notify(ctx, friendId, respond.MessageReadEvent{
			ConversationId: res.ConversationId,
			ReadBy:         userId,
			ReadAt:         s.now(),
			Count:          res.Updated,
		})
	}
	return res, nil
}

// MarkMessageRead 接收者将单条消息置为已读，首次置为已读时通知发送者
func (s *Service) MarkMessageRead(ctx context.Context, userId, conversationId, messageId string) error {
	if conversationId == "" || messageId == "" {
		return errorx.New(errorx.CodeInvalidParam, "conversationId 和 messageId 不能为空")
	}
	msg, err := s.store.GetMessage(ctx, messageId)
	if err != nil {
		return err
	}
	if msg.ConversationId != conversationId {
		return errorx.Newf(errorx.CodeNotFound, "消息 %s 不属于会话 %s", messageId, conversationId)
	}
	if msg.ReceiverId != userId {
		return errorx.New(errorx.CodeForbidden, "只有接收者可以将消息标为已读")
	}
	if !s.gate.AreFriends(ctx, userId, msg.SenderId) {
		return errorx.ErrNotFriends
	}
	wasRead := msg.IsRead
	updated, err := s.store.MarkMessageRead(ctx, msg.Uuid, conversationId)
	if err != nil {
		return err
	}
	if !wasRead && updated.IsRead {
		readAt := s.now()
		if updated.ReadAt.Valid {
			readAt = updated.ReadAt.Time.UTC()
		}
		s.notify(ctx, msg.SenderId, respond.MessageReadEvent{
			MessageId:      strconv.FormatInt(msg.Uuid, 10),
			ConversationId: conversationId,
			ReadBy:         userId,
			ReadAt:         readAt,
		})
	}
	return nil
}

// notify 推送失败只记录日志，不影响已提交的已读状态
func (s *Service) notify(ctx context.Context, userId string, event respond.MessageReadEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyUser(ctx, userId, constants.EVENT_MESSAGE_READ, event); err != nil {
		zap.L().Warn("推送已读通知失败", zap.String("user_id", userId), zap.Error(err))
	}
}
