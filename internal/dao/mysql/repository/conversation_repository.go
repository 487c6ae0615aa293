package repository

import (
	"context"
	"time"

	"chatkuy_server/internal/model"
	"chatkuy_server/pkg/errorx"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建会话 Repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// CreateIfAbsent 依赖 conversation_id 唯一索引实现"不存在才创建"
// 并发调用时只有一个插入生效，其余调用的 RowsAffected 为 0
func (r *conversationRepository) CreateIfAbsent(ctx context.Context, conversation *model.Conversation) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}},
		DoNothing: true,
	}).Create(conversation)
	if result.Error != nil {
		return false, wrapDBErrorf(result.Error, "创建会话 %s", conversation.ConversationId)
	}
	return result.RowsAffected > 0, nil
}

// FindByConversationId 根据会话 ID 查找
func (r *conversationRepository) FindByConversationId(ctx context.Context, conversationId string) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := r.db.WithContext(ctx).First(&conversation, "conversation_id = ?", conversationId).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话 %s", conversationId)
	}
	return &conversation, nil
}

// FindByParticipant 查找用户参与的全部会话
func (r *conversationRepository) FindByParticipant(ctx context.Context, userId string) ([]model.Conversation, error) {
	var conversations []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", userId, userId).
		Find(&conversations).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询用户会话列表 user_id=%s", userId)
	}
	return conversations, nil
}

// IncrementUnread 用单条 UPDATE 完成自增，不读取旧值
// receiverId 不是会话参与者时视为会话不存在
func (r *conversationRepository) IncrementUnread(ctx context.Context, conversationId, receiverId string) error {
	result := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("conversation_id = ? AND (participant_a = ? OR participant_b = ?)", conversationId, receiverId, receiverId).
		Updates(map[string]interface{}{
			"unread_a": gorm.Expr("CASE WHEN participant_a = ? THEN unread_a + 1 ELSE unread_a END", receiverId),
			"unread_b": gorm.Expr("CASE WHEN participant_b = ? THEN unread_b + 1 ELSE unread_b END", receiverId),
		})
	if result.Error != nil {
		return wrapDBErrorf(result.Error, "增加未读数 %s", conversationId)
	}
	if result.RowsAffected == 0 {
		return errorx.New(errorx.CodeNotFound, "会话不存在")
	}
	return nil
}

// DecrementUnread 未读数减 n，不会小于 0
func (r *conversationRepository) DecrementUnread(ctx context.Context, conversationId, receiverId string, n int64) error {
	if n <= 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("conversation_id = ?", conversationId).
		Updates(map[string]interface{}{
			"unread_a": gorm.Expr("CASE WHEN participant_a = ? THEN (CASE WHEN unread_a > ? THEN unread_a - ? ELSE 0 END) ELSE unread_a END", receiverId, n, n),
			"unread_b": gorm.Expr("CASE WHEN participant_b = ? THEN (CASE WHEN unread_b > ? THEN unread_b - ? ELSE 0 END) ELSE unread_b END", receiverId, n, n),
		}).Error
	if err != nil {
		return wrapDBErrorf(err, "减少未读数 %s", conversationId)
	}
	return nil
}

// UpdateLastMessage 摘要只向前推进，较早消息的迟到更新不会覆盖较新的摘要
func (r *conversationRepository) UpdateLastMessage(ctx context.Context, conversationId, content string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("conversation_id = ? AND (last_message_at IS NULL OR last_message_at <= ?)", conversationId, at).
		Updates(map[string]interface{}{
			"last_message":    content,
			"last_message_at": at,
		}).Error
	if err != nil {
		return wrapDBErrorf(err, "更新会话摘要 %s", conversationId)
	}
	return nil
}
