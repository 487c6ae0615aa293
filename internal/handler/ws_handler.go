// Package handler 提供 HTTP 请求处理器
// 本文件处理 WebSocket 连接入口
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LiveServer 长连接服务器
type LiveServer interface {
	HandleConnection(w http.ResponseWriter, r *http.Request)
}

// WsHandler WebSocket Handler
type WsHandler struct {
	live LiveServer
}

// NewWsHandler 构造函数
func NewWsHandler(live LiveServer) *WsHandler {
	return &WsHandler{live: live}
}

// WsLoginHandler 升级为 WebSocket 连接
// GET /wss?token=xxx 或携带 Authorization: Bearer xxx
// 两者都没有时，连接建立后首帧必须是 authenticate 事件
// 认证失败时以 1008 关闭帧断开
func (h *WsHandler) WsLoginHandler(c *gin.Context) {
	h.live.HandleConnection(c.Writer, c.Request)
}
