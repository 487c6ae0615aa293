// Package model 定义数据库实体模型
package model

import (
	"gorm.io/gorm"
)

// UserInfo 用户资料，由身份/资料服务维护，聊天服务只读
// 对应数据库 user_info 表
type UserInfo struct {
	gorm.Model

	// Uuid 身份提供方给出的用户 ID
	Uuid string `gorm:"column:uuid;uniqueIndex;type:varchar(64);not null;comment:用户唯一id"`

	// Nickname 展示名称
	Nickname string `gorm:"column:nickname;type:varchar(64);not null;comment:昵称"`

	// Email 邮箱
	Email string `gorm:"column:email;type:varchar(128);comment:邮箱"`

	// Avatar 头像地址
	Avatar string `gorm:"column:avatar;type:varchar(255);comment:头像"`
}

// TableName 指定表名
func (UserInfo) TableName() string {
	return "user_info"
}
