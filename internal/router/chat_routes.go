// Package router 提供 HTTP 路由注册
// 本文件定义私聊查询相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes 注册私聊相关路由（需要认证）
func (rt *Router) RegisterChatRoutes(rg *gin.RouterGroup) {
	chatGroup := rg.Group("/chat")
	{
		// ===== 查询 =====
		chatGroup.GET("/getConversationList", rt.handlers.Chat.GetConversationList) // 会话列表
		chatGroup.GET("/getMessageList", rt.handlers.Chat.GetMessageList)           // 分页聊天记录
		chatGroup.GET("/getOnlineStatus", rt.handlers.Chat.GetOnlineStatus)         // 好友在线状态

		// ===== 已读 =====
		chatGroup.POST("/markMessageRead", rt.handlers.Chat.MarkMessageRead) // 单条已读
		chatGroup.POST("/markAllRead", rt.handlers.Chat.MarkAllRead)         // 整个会话已读
	}
}
