// Package chat 实现长连接实时投递
// server.go
// 核心职责：WebSocket 接入与事件分发
// 1. 升级连接并完成认证（查询参数、Bearer 头或首帧 authenticate）
// 2. 注册会话、广播上下线
// 3. 按事件名分发，同一连接的事件按到达顺序串行处理
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatkuy_server/internal/dto/request"
	"chatkuy_server/internal/dto/respond"
	"chatkuy_server/internal/model"
	"chatkuy_server/internal/service/auth"
	"chatkuy_server/internal/service/message"
	"chatkuy_server/pkg/constants"
	"chatkuy_server/pkg/errorx"
)

// Verifier 身份校验
type Verifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// FriendChecker 好友校验
type FriendChecker interface {
	AreFriends(ctx context.Context, userA, userB string) bool
}

// MessageStore 发送消息所需的存储能力
type MessageStore interface {
	GetOrCreateConversation(ctx context.Context, userA, userB string) (string, error)
	AppendMessage(ctx context.Context, req message.AppendRequest) (*model.Message, error)
	MarkDelivered(ctx context.Context, messageUuid int64) error
}

// HistoryReader 读取历史消息
type HistoryReader interface {
	ReadHistoryPage(ctx context.Context, userId, friendId string, limit int, cursor string) (*respond.MessageHistoryRespond, error)
}

// ServerConfig 聊天服务器依赖与参数
type ServerConfig struct {
	Registry    *Registry
	Broker      MessageBroker
	Verifier    Verifier
	Gate        FriendChecker
	Store       MessageStore
	History     HistoryReader
	SendBuffer  int
	PongWait    time.Duration
	AuthTimeout time.Duration
}

type eventHandler func(ctx context.Context, c *UserConn, data json.RawMessage)

// Server 聊天服务器
type Server struct {
	registry *Registry
	broker   MessageBroker
	verifier Verifier
	gate     FriendChecker
	store    MessageStore
	history  HistoryReader

	sendBuffer  int
	pongWait    time.Duration
	pingPeriod  time.Duration
	authTimeout time.Duration

	upgrader websocket.Upgrader
	handlers map[string]eventHandler
	now      func() time.Time

	// 送达时间由后台协程落库，写协程只负责入队
	delivered chan int64
	stop      chan struct{}
	stopOnce  sync.Once
	workers   sync.WaitGroup
}

// NewServer 创建聊天服务器
func NewServer(cfg ServerConfig) *Server {
	if cfg.PongWait <= 0 {
		cfg.PongWait = constants.WS_PONG_WAIT
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = constants.WS_AUTH_TIMEOUT
	}
	s := &Server{
		registry:    cfg.Registry,
		broker:      cfg.Broker,
		verifier:    cfg.Verifier,
		gate:        cfg.Gate,
		store:       cfg.Store,
		history:     cfg.History,
		sendBuffer:  cfg.SendBuffer,
		pongWait:    cfg.PongWait,
		pingPeriod:  cfg.PongWait * 9 / 10,
		authTimeout: cfg.AuthTimeout,
		delivered:   make(chan int64, constants.DELIVERED_QUEUE_SIZE),
		stop:        make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			// 检查连接的Origin头
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	s.handlers = map[string]eventHandler{
		constants.EVENT_SEND_MESSAGE: s.handleSendMessage,
		constants.EVENT_GET_MESSAGES: s.handleGetMessages,
		constants.EVENT_TYPING_START: func(ctx context.Context, c *UserConn, data json.RawMessage) {
			s.handleTyping(ctx, c, data, true)
		},
		constants.EVENT_TYPING_STOP: func(ctx context.Context, c *UserConn, data json.RawMessage) {
			s.handleTyping(ctx, c, data, false)
		},
		constants.EVENT_MARK_AS_READ: s.handleMarkAsRead,
		constants.EVENT_USER_ONLINE:  s.handleUserOnline,
	}
	s.workers.Add(1)
	go s.deliveredLoop()
	return s
}

// Registry 在线会话注册表
func (s *Server) Registry() *Registry {
	return s.registry
}

// HandleConnection 升级为 WebSocket 并处理该连接直到断开
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := credentialFromRequest(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("升级 WebSocket 失败", zap.Error(err))
		return
	}
	conn.SetReadLimit(constants.WS_MAX_MESSAGE_SIZE)

	if token == "" {
		token, err = s.readAuthenticateFrame(conn)
		if err != nil {
			rejectConn(conn, err.Error())
			return
		}
	}
	identity, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		zap.L().Info("长连接认证失败", zap.String("remote", r.RemoteAddr), zap.Error(err))
		rejectConn(conn, "authentication failed")
		return
	}

	c := newUserConn(conn, identity.UserId, identity.DisplayName, identity.PhotoRef, s.sendBuffer)
	c.onDelivered = s.markDelivered
	s.registry.Register(c)
	go c.writePump(s.pingPeriod)
	zap.L().Info("ws连接成功", zap.String("user_id", c.UserId), zap.String("conn_id", c.Id))

	s.reply(c, constants.EVENT_AUTHENTICATED, respond.AuthenticatedEvent{UserId: c.UserId})
	s.broadcastStatus(c, constants.STATUS_ONLINE)

	s.readLoop(c)
	s.disconnect(c)
}

// credentialFromRequest 依次读取 token 查询参数和 Bearer 头
func credentialFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// readAuthenticateFrame 在超时时间内读取首帧 authenticate
func (s *Server) readAuthenticateFrame(conn *websocket.Conn) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(s.authTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", errorx.New(errorx.CodeUnauthorized, "authentication timeout")
	}
	var env request.EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event != constants.EVENT_AUTHENTICATE {
		return "", errorx.New(errorx.CodeUnauthorized, "authenticate required")
	}
	var req request.AuthenticateRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.Token == "" {
		return "", errorx.New(errorx.CodeUnauthorized, "missing token")
	}
	return req.Token, nil
}

// rejectConn 发送带原因的关闭帧后断开
func rejectConn(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(constants.WS_WRITE_WAIT))
	_ = conn.Close()
}

// readLoop 串行读取并处理事件，读取出错即视为断开
func (s *Server) readLoop(c *UserConn) {
	_ = c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("连接异常断开", zap.String("conn_id", c.Id), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
		s.dispatch(c, data)
	}
}

// dispatch 单个事件的 panic 不影响连接
func (s *Server) dispatch(c *UserConn, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("处理事件 panic", zap.String("conn_id", c.Id), zap.Any("recover", r))
		}
	}()
	var env request.EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.reply(c, constants.EVENT_MESSAGE_ERROR, respond.MessageErrorEvent{Code: errorx.EventInvalidInput, Message: "无法解析的消息帧"})
		return
	}
	handler, ok := s.handlers[env.Event]
	if !ok {
		s.reply(c, constants.EVENT_MESSAGE_ERROR, respond.MessageErrorEvent{Code: errorx.EventUnknown, Message: "未知事件: " + env.Event})
		return
	}
	handler(c.Context(), c, env.Data)
}

// disconnect 注销会话，用户最后一个连接断开时广播离线
func (s *Server) disconnect(c *UserConn) {
	_, remaining := s.registry.Unregister(c.Id)
	c.Close(websocket.CloseNormalClosure, "")
	zap.L().Info("用户退出登录", zap.String("user_id", c.UserId), zap.String("conn_id", c.Id))
	if !remaining {
		s.broadcastStatus(c, constants.STATUS_OFFLINE)
	}
}

// Close 关闭全部连接
func (s *Server) Close() {
	for _, c := range s.registry.Sessions() {
		c.Close(websocket.CloseGoingAway, "server shutting down")
	}
	s.stopOnce.Do(func() { close(s.stop) })
	s.workers.Wait()
}

func (s *Server) handleSendMessage(ctx context.Context, c *UserConn, data json.RawMessage) {
	var req request.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendError(c, errorx.EventInvalidInput, "消息格式错误", "")
		return
	}
	req.ReceiverId = strings.TrimSpace(req.ReceiverId)
	req.Content = strings.TrimSpace(req.Content)
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		s.sendError(c, errorx.EventInvalidInput, "receiverId 和 content 不能为空，content 不能超过 4000 个字符", req.ClientTempId)
		return
	}
	if req.ReceiverId == c.UserId {
		s.sendError(c, errorx.EventInvalidInput, "不能给自己发送消息", req.ClientTempId)
		return
	}
	if !s.gate.AreFriends(ctx, c.UserId, req.ReceiverId) {
		s.sendError(c, errorx.EventNotFriends, errorx.ErrNotFriends.Msg, req.ClientTempId)
		return
	}
	conversationId, err := s.store.GetOrCreateConversation(ctx, c.UserId, req.ReceiverId)
	if err != nil {
		s.sendError(c, errorx.EventCode(err, errorx.EventSendFailed), errorx.PublicMessage(err), req.ClientTempId)
		return
	}
	msg, err := s.store.AppendMessage(ctx, message.AppendRequest{
		SenderId:       c.UserId,
		ReceiverId:     req.ReceiverId,
		Content:        req.Content,
		MessageType:    req.MessageType,
		ConversationId: conversationId,
	})
	if err != nil {
		s.sendError(c, errorx.EventCode(err, errorx.EventSendFailed), errorx.PublicMessage(err), req.ClientTempId)
		return
	}

	rsp := message.ToMessageRespond(msg)
	s.reply(c, constants.EVENT_MESSAGE_SENT, respond.MessageSentEvent{
		MessageRespond: rsp,
		ClientTempId:   req.ClientTempId,
		Status:         "sent",
	})
	payload, err := encodeEvent(constants.EVENT_RECEIVE_MESSAGE, respond.ReceiveMessageEvent{
		MessageRespond: rsp,
		SenderName:     c.DisplayName,
		SenderPhoto:    c.PhotoRef,
	})
	if err != nil {
		zap.L().Error("编码消息失败", zap.Error(err))
		return
	}
	if err := s.broker.Publish(ctx, Delivery{TargetUserId: req.ReceiverId, MessageUuid: msg.Uuid, Frame: payload}); err != nil {
		// 消息已持久化，接收方可通过历史记录拉取
		zap.L().Warn("投递消息失败", zap.String("receiver_id", req.ReceiverId), zap.Int64("uuid", msg.Uuid), zap.Error(err))
	}
}

func (s *Server) handleGetMessages(ctx context.Context, c *UserConn, data json.RawMessage) {
	var req request.GetMessagesRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(c, constants.EVENT_MESSAGES_ERROR, respond.MessagesErrorEvent{Code: errorx.EventInvalidInput, Message: "消息格式错误"})
		return
	}
	req.FriendId = strings.TrimSpace(req.FriendId)
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		s.reply(c, constants.EVENT_MESSAGES_ERROR, respond.MessagesErrorEvent{Code: errorx.EventInvalidInput, Message: "friendId 不能为空", FriendId: req.FriendId})
		return
	}
	page, err := s.history.ReadHistoryPage(ctx, c.UserId, req.FriendId, req.Limit, req.Cursor)
	if err != nil {
		s.reply(c, constants.EVENT_MESSAGES_ERROR, respond.MessagesErrorEvent{
			Code:     errorx.EventCode(err, errorx.EventFetchFailed),
			Message:  errorx.PublicMessage(err),
			FriendId: req.FriendId,
		})
		return
	}
	s.reply(c, constants.EVENT_MESSAGES_HISTORY, page)
}

// handleTyping 输入状态只转发不落库，参数不完整时忽略
func (s *Server) handleTyping(ctx context.Context, c *UserConn, data json.RawMessage, isTyping bool) {
	var req request.TypingRequest
	if err := json.Unmarshal(data, &req); err != nil || binding.Validator.ValidateStruct(&req) != nil {
		return
	}
	s.publishTo(ctx, req.ReceiverId, constants.EVENT_USER_TYPING, respond.UserTypingEvent{
		UserId:   c.UserId,
		UserName: c.DisplayName,
		IsTyping: isTyping,
	})
}

// handleMarkAsRead 只转发已读回执，未读数由 REST 的已读接口维护
func (s *Server) handleMarkAsRead(ctx context.Context, c *UserConn, data json.RawMessage) {
	var req request.MarkAsReadRequest
	if err := json.Unmarshal(data, &req); err != nil || binding.Validator.ValidateStruct(&req) != nil {
		return
	}
	s.publishTo(ctx, req.SenderId, constants.EVENT_MESSAGE_READ, respond.MessageReadEvent{
		MessageId: req.MessageId,
		ReadBy:    c.UserId,
		ReadAt:    s.now(),
	})
}

func (s *Server) handleUserOnline(_ context.Context, c *UserConn, _ json.RawMessage) {
	s.broadcastStatus(c, constants.STATUS_ONLINE)
}

// broadcastStatus 向其他全部连接广播上下线
func (s *Server) broadcastStatus(c *UserConn, status string) {
	payload, err := encodeEvent(constants.EVENT_USER_STATUS, respond.UserStatusEvent{
		UserId:    c.UserId,
		UserName:  c.DisplayName,
		Status:    status,
		Timestamp: s.now(),
	})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), constants.WS_WRITE_WAIT)
	defer cancel()
	if err := s.broker.Publish(ctx, Delivery{ExcludeConnId: c.Id, Frame: payload}); err != nil {
		zap.L().Warn("广播在线状态失败", zap.String("user_id", c.UserId), zap.Error(err))
	}
}

func (s *Server) publishTo(ctx context.Context, userId, event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		return
	}
	if err := s.broker.Publish(ctx, Delivery{TargetUserId: userId, Frame: payload}); err != nil {
		zap.L().Warn("转发事件失败", zap.String("event", event), zap.String("user_id", userId), zap.Error(err))
	}
}

// reply 只发给当前连接
func (s *Server) reply(c *UserConn, event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		zap.L().Error("编码事件失败", zap.String("event", event), zap.Error(err))
		return
	}
	c.Enqueue(payload, 0)
}

func (s *Server) sendError(c *UserConn, code, msg, clientTempId string) {
	s.reply(c, constants.EVENT_MESSAGE_ERROR, respond.MessageErrorEvent{Code: code, Message: msg, ClientTempId: clientTempId})
}

// markDelivered 接收方帧写出后调用，只入队不落库，队列满时丢弃
func (s *Server) markDelivered(messageUuid int64) {
	select {
	case s.delivered <- messageUuid:
	default:
		zap.L().Warn("送达队列已满，丢弃送达时间", zap.Int64("uuid", messageUuid))
	}
}

// deliveredLoop 串行落库送达时间，停止前写完已入队的部分
func (s *Server) deliveredLoop() {
	defer s.workers.Done()
	for {
		select {
		case messageUuid := <-s.delivered:
			s.saveDelivered(messageUuid)
		case <-s.stop:
			for {
				select {
				case messageUuid := <-s.delivered:
					s.saveDelivered(messageUuid)
				default:
					return
				}
			}
		}
	}
}

func (s *Server) saveDelivered(messageUuid int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.store.MarkDelivered(ctx, messageUuid); err != nil {
		zap.L().Warn("记录送达时间失败", zap.Int64("uuid", messageUuid), zap.Error(err))
	}
}
