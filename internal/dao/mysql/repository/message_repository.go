package repository

import (
	"context"
	"time"

	"chatkuy_server/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create 插入消息
func (r *messageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return wrapDBErrorf(err, "写入消息 conversation=%s", message.ConversationId)
	}
	return nil
}

// FindByUuid 根据消息 ID 查找
func (r *messageRepository) FindByUuid(ctx context.Context, uuid int64) (*model.Message, error) {
	var message model.Message
	if err := r.db.WithContext(ctx).First(&message, "uuid = ?", uuid).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 uuid=%d", uuid)
	}
	return &message, nil
}

// FindPage 键集分页：(created_at, uuid) 严格小于游标消息
func (r *messageRepository) FindPage(ctx context.Context, conversationId string, limit int, after *model.Message) ([]model.Message, error) {
	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationId)
	if after != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND uuid < ?))", after.CreatedAt, after.CreatedAt, after.Uuid)
	}
	var messages []model.Message
	if err := query.Order("created_at DESC").Order("uuid DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "分页查询消息 conversation=%s", conversationId)
	}
	return messages, nil
}

// FindUnreadUuids 查找接收者在会话中的全部未读消息
func (r *messageRepository) FindUnreadUuids(ctx context.Context, conversationId, receiverId string) ([]int64, error) {
	var uuids []int64
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conversationId, receiverId, false).
		Order("uuid").
		Pluck("uuid", &uuids).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询未读消息 conversation=%s", conversationId)
	}
	return uuids, nil
}

// MarkRead 只变更仍为未读的消息，返回值即本次真正被标记的条数
func (r *messageRepository) MarkRead(ctx context.Context, conversationId, receiverId string, uuids []int64, readAt time.Time) (int64, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ? AND uuid IN ?", conversationId, receiverId, false, uuids).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": readAt,
		})
	if result.Error != nil {
		return 0, wrapDBErrorf(result.Error, "标记已读 conversation=%s", conversationId)
	}
	return result.RowsAffected, nil
}

// MarkDelivered 记录首次送达时间，重复调用不覆盖
func (r *messageRepository) MarkDelivered(ctx context.Context, uuid int64, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("uuid = ? AND delivered_at IS NULL", uuid).
		Update("delivered_at", at).Error
	if err != nil {
		return wrapDBErrorf(err, "记录送达时间 uuid=%d", uuid)
	}
	return nil
}
