package model

import (
	"database/sql"
	"time"
)

// Message 私聊消息，隶属于某个会话
// 对应数据库 message 表
// 插入后只有 is_read/read_at 与 delivered_at 会被修改，且只会从空变为有值
type Message struct {
	ID uint `gorm:"primarykey"`

	// Uuid 雪花算法生成的消息 ID，对外暴露为字符串
	Uuid int64 `gorm:"column:uuid;uniqueIndex;not null;index:idx_message_page,priority:3;comment:消息雪花ID"`

	// ConversationId 所属会话
	ConversationId string `gorm:"column:conversation_id;type:varchar(160);not null;index:idx_message_page,priority:1;index:idx_message_unread,priority:1;comment:会话id"`

	SenderId   string `gorm:"column:sender_id;type:varchar(64);not null;comment:发送者id"`
	ReceiverId string `gorm:"column:receiver_id;type:varchar(64);not null;index:idx_message_unread,priority:2;comment:接收者id"`

	Content     string `gorm:"column:content;type:text;comment:消息内容"`
	MessageType string `gorm:"column:message_type;type:varchar(20);not null;default:text;comment:消息类型"`

	IsRead      bool         `gorm:"column:is_read;not null;default:false;index:idx_message_unread,priority:3;comment:是否已读"`
	DeliveredAt sql.NullTime `gorm:"column:delivered_at;comment:送达时间"`
	ReadAt      sql.NullTime `gorm:"column:read_at;comment:已读时间"`

	// CreatedAt 由消息存储写入，分页按 (created_at, uuid) 倒序
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_message_page,priority:2"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "message"
}
