// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"chatkuy_server/internal/handler"
	"chatkuy_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// Router 路由管理器
type Router struct {
	handlers *handler.Handlers
	verifier middleware.Verifier
}

// NewRouter 创建路由管理器
func NewRouter(handlers *handler.Handlers, verifier middleware.Verifier) *Router {
	return &Router{handlers: handlers, verifier: verifier}
}

// RegisterRoutes 注册所有路由
// 在 https_server.Init() 中调用
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	// WebSocket 在握手阶段自行认证，不经过认证中间件
	rt.RegisterWebSocketRoutes(&r.RouterGroup)

	authed := r.Group("/")
	authed.Use(middleware.Auth(rt.verifier))
	rt.RegisterChatRoutes(authed)
}
