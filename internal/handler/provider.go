// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
// 遵循依赖倒置原则，通过构造函数注入 Service 依赖
package handler

import (
	"chatkuy_server/internal/service"
)

// Handlers 聚合所有 Handler 实例
// 作为依赖注入的入口，Router 层通过此结构访问各个 Handler
type Handlers struct {
	Chat *ChatHandler
	Ws   *WsHandler
}

// NewHandlers 创建并注入所有 Handler 实例
// svc: Service 层聚合实例
// live: 长连接入口
func NewHandlers(svc *service.Services, live LiveServer) *Handlers {
	return &Handlers{
		Chat: NewChatHandler(svc.Chat, svc.Presence),
		Ws:   NewWsHandler(live),
	}
}
