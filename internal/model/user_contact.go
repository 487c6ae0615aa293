package model

import (
	"gorm.io/gorm"
)

// UserContact 好友关系，每对好友双向各存一行，由好友服务成对写入
type UserContact struct {
	gorm.Model
	UserId    string `gorm:"column:user_id;uniqueIndex:idx_user_contact,priority:1;type:varchar(64);not null;comment:用户唯一id"`
	ContactId string `gorm:"column:contact_id;uniqueIndex:idx_user_contact,priority:2;type:varchar(64);not null;comment:好友ID"`
	Status    int8   `gorm:"column:status;not null;default:0;comment:联系状态，0.正常，1.拉黑，2.被拉黑，3.删除好友，4.被删除好友"`
}

func (UserContact) TableName() string {
	return "user_contact"
}
