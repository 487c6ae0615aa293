package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// Conversation 两个用户之间唯一的私聊会话及其摘要
// 对应数据库 conversation 表
type Conversation struct {
	gorm.Model

	// ConversationId 两个参与者按字典序排序后以 "_" 拼接
	ConversationId string `gorm:"column:conversation_id;uniqueIndex;type:varchar(160);not null;comment:会话id"`

	// ParticipantA / ParticipantB 排序后的两个参与者
	ParticipantA string `gorm:"column:participant_a;index;type:varchar(64);not null;comment:参与者A"`
	ParticipantB string `gorm:"column:participant_b;index;type:varchar(64);not null;comment:参与者B"`

	// LastMessage 最新消息内容，用于会话列表展示
	LastMessage string `gorm:"column:last_message;type:text;comment:最新的消息"`

	// LastMessageAt 最新消息时间，没有消息时为 NULL
	LastMessageAt sql.NullTime `gorm:"column:last_message_at;comment:最新消息时间"`

	// UnreadA / UnreadB 对应参与者的未读数
	UnreadA int `gorm:"column:unread_a;not null;default:0;comment:参与者A未读数"`
	UnreadB int `gorm:"column:unread_b;not null;default:0;comment:参与者B未读数"`
}

// TableName 指定表名
func (Conversation) TableName() string {
	return "conversation"
}

// Other 返回另一个参与者
func (c *Conversation) Other(userId string) string {
	if userId == c.ParticipantA {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// UnreadFor 返回用户的未读数，非参与者返回 0
func (c *Conversation) UnreadFor(userId string) int {
	switch userId {
	case c.ParticipantA:
		return c.UnreadA
	case c.ParticipantB:
		return c.UnreadB
	default:
		return 0
	}
}
