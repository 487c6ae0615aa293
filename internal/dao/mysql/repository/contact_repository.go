package repository

import (
	"context"

	"chatkuy_server/internal/model"
	"chatkuy_server/pkg/enum/contact_status_enum"

	"gorm.io/gorm"
)

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository 创建联系人 Repository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

// FindByUserIdAndContactId 按用户ID和联系人ID查找
func (r *contactRepository) FindByUserIdAndContactId(ctx context.Context, userId, contactId string) (*model.UserContact, error) {
	var contact model.UserContact
	if err := r.db.WithContext(ctx).Where("user_id = ? AND contact_id = ?", userId, contactId).First(&contact).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询联系人 user_id=%s contact_id=%s", userId, contactId)
	}
	return &contact, nil
}

// CreatePair 双向写入好友关系，任一方向失败都会回滚
func (r *contactRepository) CreatePair(ctx context.Context, userId, contactId string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pair := []model.UserContact{
			{UserId: userId, ContactId: contactId, Status: contact_status_enum.NORMAL},
			{UserId: contactId, ContactId: userId, Status: contact_status_enum.NORMAL},
		}
		return tx.Create(&pair).Error
	})
	if err != nil {
		return wrapDBErrorf(err, "创建好友关系 %s <-> %s", userId, contactId)
	}
	return nil
}

// UpdatePairStatus 双向更新关系状态，例如删除好友时 (DELETE, BE_DELETE)
func (r *contactRepository) UpdatePairStatus(ctx context.Context, userId, contactId string, status, reverseStatus int8) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.UserContact{}).
			Where("user_id = ? AND contact_id = ?", userId, contactId).
			Update("status", status).Error; err != nil {
			return err
		}
		return tx.Model(&model.UserContact{}).
			Where("user_id = ? AND contact_id = ?", contactId, userId).
			Update("status", reverseStatus).Error
	})
	if err != nil {
		return wrapDBErrorf(err, "更新好友关系 %s <-> %s", userId, contactId)
	}
	return nil
}
