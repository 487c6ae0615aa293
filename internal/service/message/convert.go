package message

import (
	"database/sql"
	"strconv"
	"time"

	"chatkuy_server/internal/dto/respond"
	"chatkuy_server/internal/model"
)

// ToMessageRespond 模型转对外结构，时间统一为 UTC
func ToMessageRespond(m *model.Message) respond.MessageRespond {
	return respond.MessageRespond{
		Id:             strconv.FormatInt(m.Uuid, 10),
		ConversationId: m.ConversationId,
		SenderId:       m.SenderId,
		ReceiverId:     m.ReceiverId,
		Content:        m.Content,
		MessageType:    m.MessageType,
		CreatedAt:      m.CreatedAt.UTC(),
		IsRead:         m.IsRead,
		DeliveredAt:    nullTime(m.DeliveredAt),
		ReadAt:         nullTime(m.ReadAt),
	}
}

// ToMessageRespondList 批量转换，保持顺序
func ToMessageRespondList(messages []model.Message) []respond.MessageRespond {
	rspList := make([]respond.MessageRespond, 0, len(messages))
	for i := range messages {
		rspList = append(rspList, ToMessageRespond(&messages[i]))
	}
	return rspList
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
