// Package handler 提供 HTTP 请求处理器
// 本文件处理私聊相关的查询与已读接口，调用方身份由认证中间件写入上下文
package handler

import (
	"strings"

	"chatkuy_server/internal/dto/request"
	"chatkuy_server/internal/service"
	"chatkuy_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// ContextUserIdKey 认证中间件写入的用户 ID
const ContextUserIdKey = "user_id"

// ChatHandler 私聊 Handler
type ChatHandler struct {
	chat     service.ChatService
	presence service.PresenceService
}

// NewChatHandler 构造函数
func NewChatHandler(chat service.ChatService, presence service.PresenceService) *ChatHandler {
	return &ChatHandler{chat: chat, presence: presence}
}

// currentUserId 从上下文取出调用方 ID
func currentUserId(c *gin.Context) (string, bool) {
	userId := c.GetString(ContextUserIdKey)
	if userId == "" {
		HandleError(c, errorx.ErrUnauthorized)
		return "", false
	}
	return userId, true
}

// GetConversationList 获取会话列表
// GET /chat/getConversationList
// 响应: []respond.ConversationSummaryRespond，按最新消息时间倒序
func (h *ChatHandler) GetConversationList(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	data, err := h.chat.ListConversations(c.Request.Context(), userId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetMessageList 分页获取聊天记录
// GET /chat/getMessageList?friendId=xxx&limit=50&cursor=xxx
// 查询参数: request.GetMessageListRequest
// 响应: respond.MessageHistoryRespond
func (h *ChatHandler) GetMessageList(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	var req request.GetMessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.chat.ReadHistoryPage(c.Request.Context(), userId, strings.TrimSpace(req.FriendId), req.Limit, strings.TrimSpace(req.Cursor))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// MarkMessageRead 单条消息已读
// POST /chat/markMessageRead
// 请求体: request.MarkMessageReadRequest
func (h *ChatHandler) MarkMessageRead(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	var req request.MarkMessageReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.chat.MarkMessageRead(c.Request.Context(), userId, req.ConversationId, req.MessageId); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// MarkAllRead 将与好友会话中的全部消息标为已读
// POST /chat/markAllRead
// 请求体: request.MarkAllReadRequest
// 响应: respond.MarkAllReadRespond
func (h *ChatHandler) MarkAllRead(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	var req request.MarkAllReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.chat.MarkConversationRead(c.Request.Context(), userId, strings.TrimSpace(req.FriendId))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetOnlineStatus 查询好友在线状态
// GET /chat/getOnlineStatus?userId=xxx
// 响应: respond.OnlineStatusRespond
func (h *ChatHandler) GetOnlineStatus(c *gin.Context) {
	userId, ok := currentUserId(c)
	if !ok {
		return
	}
	var req request.GetOnlineStatusRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.presence.GetOnlineStatus(c.Request.Context(), userId, req.UserId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
