// Package repository 定义数据访问层接口和聚合结构
// 所有 Repository 接口在此文件定义，具体实现在各自的文件中
package repository

import (
	"context"
	"time"

	"chatkuy_server/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户资料只读访问
type UserRepository interface {
	// FindByUuid 根据用户 ID 查找资料
	FindByUuid(ctx context.Context, uuid string) (*model.UserInfo, error)
	// FindByUuids 批量查找资料，不存在的用户被忽略
	FindByUuids(ctx context.Context, uuids []string) ([]model.UserInfo, error)
	// Save 按用户 ID 写入或更新资料
	Save(ctx context.Context, user *model.UserInfo) error
}

// ContactRepository 好友关系访问接口
type ContactRepository interface {
	// FindByUserIdAndContactId 查找 userId 名下的 contactId 关系
	FindByUserIdAndContactId(ctx context.Context, userId, contactId string) (*model.UserContact, error)
	// CreatePair 在同一事务中写入双向好友关系
	CreatePair(ctx context.Context, userId, contactId string) error
	// UpdatePairStatus 在同一事务中更新双向关系的状态
	UpdatePairStatus(ctx context.Context, userId, contactId string, status, reverseStatus int8) error
}

// ConversationRepository 会话摘要访问接口
type ConversationRepository interface {
	// CreateIfAbsent 条件插入，已存在时不做任何修改，返回是否新建
	CreateIfAbsent(ctx context.Context, conversation *model.Conversation) (bool, error)
	// FindByConversationId 根据会话 ID 查找
	FindByConversationId(ctx context.Context, conversationId string) (*model.Conversation, error)
	// FindByParticipant 查找用户参与的全部会话
	FindByParticipant(ctx context.Context, userId string) ([]model.Conversation, error)
	// IncrementUnread 接收者未读数原子加一，会话不存在时返回 NotFound
	IncrementUnread(ctx context.Context, conversationId, receiverId string) error
	// DecrementUnread 接收者未读数原子减 n，最低为 0
	DecrementUnread(ctx context.Context, conversationId, receiverId string, n int64) error
	// UpdateLastMessage 仅当 at 不早于现有最新消息时间时更新摘要
	UpdateLastMessage(ctx context.Context, conversationId, content string, at time.Time) error
}

// MessageRepository 消息访问接口
type MessageRepository interface {
	// Create 插入消息
	Create(ctx context.Context, message *model.Message) error
	// FindByUuid 根据消息 ID 查找
	FindByUuid(ctx context.Context, uuid int64) (*model.Message, error)
	// FindPage 按 (created_at, uuid) 倒序取一页，after 不为空时从其之后开始（不含）
	FindPage(ctx context.Context, conversationId string, limit int, after *model.Message) ([]model.Message, error)
	// FindUnreadUuids 查找会话中接收者的全部未读消息 ID
	FindUnreadUuids(ctx context.Context, conversationId, receiverId string) ([]int64, error)
	// MarkRead 把指定的未读消息置为已读，返回实际变更的条数
	MarkRead(ctx context.Context, conversationId, receiverId string, uuids []int64, readAt time.Time) (int64, error)
	// MarkDelivered 首次送达时记录送达时间
	MarkDelivered(ctx context.Context, uuid int64, at time.Time) error
}

// ==================== Repository 聚合 ====================

// Repositories 聚合所有 Repository 实例
type Repositories struct {
	db           *gorm.DB
	User         UserRepository
	Contact      ContactRepository
	Conversation ConversationRepository
	Message      MessageRepository
}

// NewRepositories 基于同一个 gorm 实例创建全部 Repository
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		User:         NewUserRepository(db),
		Contact:      NewContactRepository(db),
		Conversation: NewConversationRepository(db),
		Message:      NewMessageRepository(db),
	}
}

// Transaction 在数据库事务中执行 fn，fn 返回错误时整体回滚
func (r *Repositories) Transaction(ctx context.Context, fn func(txRepos *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// DB 返回底层 gorm 实例，供迁移和健康检查使用
func (r *Repositories) DB() *gorm.DB {
	return r.db
}
