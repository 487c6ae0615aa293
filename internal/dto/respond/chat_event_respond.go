package respond

import "time"

// 长连接下行事件的负载
// 使用位置:
//   - internal/service/chat/server.go
//   - internal/service/readstate/service.go

// AuthenticatedEvent authenticated
type AuthenticatedEvent struct {
	UserId string `json:"userId"`
}

// MessageSentEvent message_sent，回显客户端临时 ID 供其替换本地乐观消息
type MessageSentEvent struct {
	MessageRespond
	ClientTempId string `json:"clientTempId"`
	Status       string `json:"status"`
}

// ReceiveMessageEvent receive_message
type ReceiveMessageEvent struct {
	MessageRespond
	SenderName  string `json:"senderName"`
	SenderPhoto string `json:"senderPhoto"`
}

// MessageErrorEvent message_error
type MessageErrorEvent struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	ClientTempId string `json:"clientTempId,omitempty"`
}

// MessagesErrorEvent messages_error
type MessagesErrorEvent struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	FriendId string `json:"friendId"`
}

// UserTypingEvent user_typing
type UserTypingEvent struct {
	UserId   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

// MessageReadEvent message_read，单条已读时带 messageId，整体已读时带 count
type MessageReadEvent struct {
	MessageId      string    `json:"messageId,omitempty"`
	ConversationId string    `json:"conversationId,omitempty"`
	ReadBy         string    `json:"readBy"`
	ReadAt         time.Time `json:"readAt"`
	Count          int64     `json:"count,omitempty"`
}

// UserStatusEvent user_status
type UserStatusEvent struct {
	UserId    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
