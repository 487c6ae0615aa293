package respond

import "time"

// MessageRespond 对外展示的消息，ID 以字符串形式返回避免前端精度丢失
// 使用位置:
//   - internal/service/message/convert.go: ToMessageRespond
//   - internal/service/chat/server.go: handleSendMessage
type MessageRespond struct {
	Id             string     `json:"id"`
	ConversationId string     `json:"conversationId"`
	SenderId       string     `json:"senderId"`
	ReceiverId     string     `json:"receiverId"`
	Content        string     `json:"content"`
	MessageType    string     `json:"messageType"`
	CreatedAt      time.Time  `json:"createdAt"`
	IsRead         bool       `json:"isRead"`
	DeliveredAt    *time.Time `json:"deliveredAt"`
	ReadAt         *time.Time `json:"readAt"`
}

// MessageHistoryRespond 一页历史消息，Messages 按时间升序
// Cursor 为本页最早一条消息的 ID，传回即可获取更早的一页；空页时为空字符串
type MessageHistoryRespond struct {
	FriendId string           `json:"friendId"`
	Messages []MessageRespond `json:"messages"`
	HasMore  bool             `json:"hasMore"`
	Cursor   string           `json:"cursor"`
}

// MarkAllReadRespond 批量已读结果
type MarkAllReadRespond struct {
	ConversationId string `json:"conversationId"`
	Updated        int64  `json:"updated"`
}
