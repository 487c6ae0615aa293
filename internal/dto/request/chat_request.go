package request

// GetMessageListRequest 分页获取与好友的聊天记录
// 使用位置:
//   - internal/handler/chat_handler.go: GetMessageList
type GetMessageListRequest struct {
	FriendId string `json:"friendId" form:"friendId" binding:"required"`
	Limit    int    `json:"limit" form:"limit" binding:"omitempty,min=0"`
	Cursor   string `json:"cursor" form:"cursor"`
}

// MarkMessageReadRequest 单条消息已读
// 使用位置:
//   - internal/handler/chat_handler.go: MarkMessageRead
type MarkMessageReadRequest struct {
	ConversationId string `json:"conversationId" binding:"required"`
	MessageId      string `json:"messageId" binding:"required"`
}

// MarkAllReadRequest 将与好友会话中的全部消息标为已读
// 使用位置:
//   - internal/handler/chat_handler.go: MarkAllRead
type MarkAllReadRequest struct {
	FriendId string `json:"friendId" binding:"required"`
}

// GetOnlineStatusRequest 查询好友在线状态
// 使用位置:
//   - internal/handler/chat_handler.go: GetOnlineStatus
type GetOnlineStatusRequest struct {
	UserId string `json:"userId" form:"userId" binding:"required"`
}
