package request

import "encoding/json"

// EventEnvelope 长连接帧的统一外层结构 {"event": "...", "data": {...}}
// 使用位置:
//   - internal/service/chat/server.go: readLoop, dispatch
type EventEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// AuthenticateRequest 首帧认证
type AuthenticateRequest struct {
	Token string `json:"token" binding:"required"`
}

// SendMessageRequest 发送私聊消息 (send_message)
// 使用位置:
//   - internal/service/chat/server.go: handleSendMessage
type SendMessageRequest struct {
	ReceiverId   string `json:"receiverId" binding:"required"`
	Content      string `json:"content" binding:"required,max=4000"`
	MessageType  string `json:"messageType"`
	ClientTempId string `json:"clientTempId"`
}

// GetMessagesRequest 拉取历史消息 (get_messages)
type GetMessagesRequest struct {
	FriendId string `json:"friendId" binding:"required"`
	Limit    int    `json:"limit" binding:"omitempty,min=0"`
	Cursor   string `json:"cursor"`
}

// TypingRequest 输入状态 (typing_start / typing_stop)
type TypingRequest struct {
	ReceiverId string `json:"receiverId" binding:"required"`
}

// MarkAsReadRequest 已读回执 (mark_as_read)
type MarkAsReadRequest struct {
	MessageId string `json:"messageId" binding:"required"`
	SenderId  string `json:"senderId" binding:"required"`
}
