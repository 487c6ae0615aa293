package respond

import "time"

// ConversationSummaryRespond 会话列表中的一项
// 使用位置:
//   - internal/service/message/store.go: ListConversations
type ConversationSummaryRespond struct {
	ConversationId string     `json:"conversationId"`
	FriendId       string     `json:"friendId"`
	FriendName     string     `json:"friendName"`
	FriendAvatar   string     `json:"friendAvatar"`
	LastMessage    string     `json:"lastMessage"`
	LastMessageAt  *time.Time `json:"lastMessageAt"`
	UnreadCount    int        `json:"unreadCount"`
	Participants   []string   `json:"participants"`
}

// OnlineStatusRespond 在线状态查询结果
// 使用位置:
//   - internal/service/presence/service.go: GetOnlineStatus
type OnlineStatusRespond struct {
	UserId   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}
