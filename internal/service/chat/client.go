// Package chat 实现长连接实时投递
// client.go
// 核心职责：单个 WebSocket 连接的生命周期
// 1. 发送缓冲：业务侧只入队，不直接写 socket
// 2. 写协程：串行写帧、定时 ping、接收方帧写出后记录送达
// 3. 关闭：只执行一次，先发关闭帧再断开
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatkuy_server/pkg/constants"
)

// outbound 待写出的一帧，messageUuid 非 0 表示这是投递给接收方的消息
type outbound struct {
	frame       []byte
	messageUuid int64
}

// UserConn 一个已认证的连接
type UserConn struct {
	Id          string
	UserId      string
	DisplayName string
	PhotoRef    string

	conn      *websocket.Conn
	send      chan outbound
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// onDelivered 接收方帧成功写出后回调
	onDelivered func(messageUuid int64)
}

func newUserConn(conn *websocket.Conn, userId, displayName, photoRef string, buffer int) *UserConn {
	if buffer <= 0 {
		buffer = constants.WS_SEND_BUFFER
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &UserConn{
		Id:          uuid.NewString(),
		UserId:      userId,
		DisplayName: displayName,
		PhotoRef:    photoRef,
		conn:        conn,
		send:        make(chan outbound, buffer),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Context 连接关闭时取消
func (c *UserConn) Context() context.Context {
	return c.ctx
}

// Enqueue 非阻塞入队，连接已关闭返回 false
// 缓冲区满说明对端消费过慢，连接立即失效，关闭帧在后台写出
func (c *UserConn) Enqueue(frame []byte, messageUuid int64) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}
	select {
	case c.send <- outbound{frame: frame, messageUuid: messageUuid}:
		return true
	case <-c.ctx.Done():
		return false
	default:
		zap.L().Warn("发送缓冲已满，断开慢连接", zap.String("user_id", c.UserId), zap.String("conn_id", c.Id))
		// 调用方可能是投递协程，关闭帧的写出不能占用它
		c.cancel()
		go c.Close(websocket.CloseTryAgainLater, "send buffer overflow")
		return false
	}
}

// writePump 唯一的写协程
func (c *UserConn) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case out := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if err := c.conn.WriteMessage(websocket.TextMessage, out.frame); err != nil {
				zap.L().Debug("写出消息失败", zap.String("conn_id", c.Id), zap.Error(err))
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
			if out.messageUuid != 0 && c.onDelivered != nil {
				c.onDelivered(out.messageUuid)
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}

// Close 发送关闭帧并断开连接，可重复调用
func (c *UserConn) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn == nil {
			return
		}
		if code != websocket.CloseAbnormalClosure {
			msg := websocket.FormatCloseMessage(code, reason)
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(constants.WS_WRITE_WAIT))
		}
		_ = c.conn.Close()
	})
}
