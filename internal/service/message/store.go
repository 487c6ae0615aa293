// Package message 实现私聊消息存储：会话的幂等创建、消息追加、
// 键集分页、会话列表以及已读状态的批量与单条变更
package message

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chatkuy_server/internal/dao/mysql/repository"
	myredis "chatkuy_server/internal/dao/redis"
	"chatkuy_server/internal/dto/respond"
	"chatkuy_server/internal/model"
	"chatkuy_server/pkg/constants"
	"chatkuy_server/pkg/enum/message_type_enum"
	"chatkuy_server/pkg/errorx"
	"chatkuy_server/pkg/util/conversation"
	"chatkuy_server/pkg/util/snowflake"
)

// Options 存储层参数，零值字段使用默认值
type Options struct {
	Now             func() time.Time
	DefaultLimit    int
	MaxLimit        int
	ReadBatchSize   int
	ReadConcurrency int
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = constants.HISTORY_DEFAULT_LIMIT
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = constants.HISTORY_MAX_LIMIT
	}
	if o.DefaultLimit > o.MaxLimit {
		o.DefaultLimit = o.MaxLimit
	}
	if o.ReadBatchSize <= 0 {
		o.ReadBatchSize = constants.READ_BATCH_SIZE
	}
	if o.ReadConcurrency <= 0 {
		o.ReadConcurrency = constants.READ_BATCH_CONCURRENCY
	}
	return o
}

// AppendRequest 追加消息参数
type AppendRequest struct {
	SenderId       string
	ReceiverId     string
	Content        string
	MessageType    string
	ConversationId string
}

// HistoryPage 一页历史消息，Messages 按时间升序
type HistoryPage struct {
	ConversationId string
	Messages       []model.Message
	HasMore        bool
	// Cursor 本页最早一条消息的 ID，空页时为空
	Cursor string
}

// Store 消息存储
type Store struct {
	repos *repository.Repositories
	cache myredis.AsyncCacheService
	opts  Options
}

// NewStore 构造函数，cache 为 nil 时不使用会话列表缓存
func NewStore(repos *repository.Repositories, cache myredis.AsyncCacheService, opts Options) *Store {
	return &Store{repos: repos, cache: cache, opts: opts.withDefaults()}
}

// cachedConversationList 会话列表缓存内容，Gen 为写入时读到的列表版本
type cachedConversationList struct {
	Gen   int64                                `json:"gen"`
	Items []respond.ConversationSummaryRespond `json:"items"`
}

// validPair 两个用户 ID 均合法且不相同
func validPair(userA, userB string) bool {
	return conversation.ValidUserId(userA) && conversation.ValidUserId(userB) && userA != userB
}

// GetOrCreateConversation 幂等地获取两个用户之间的会话 ID
func (s *Store) GetOrCreateConversation(ctx context.Context, userA, userB string) (string, error) {
	if !validPair(userA, userB) {
		return "", errorx.New(errorx.CodeInvalidParam, "会话参与者非法")
	}
	a, b := conversation.Participants(userA, userB)
	conv := &model.Conversation{
		ConversationId: conversation.ID(a, b),
		ParticipantA:   a,
		ParticipantB:   b,
	}
	created, err := s.repos.Conversation.CreateIfAbsent(ctx, conv)
	if err != nil {
		zap.L().Error("创建会话失败", zap.String("conversation_id", conv.ConversationId), zap.Error(err))
		return "", errorx.WithOp("GetOrCreateConversation", err)
	}
	if created {
		zap.L().Debug("新建会话", zap.String("conversation_id", conv.ConversationId))
		return conv.ConversationId, nil
	}
	// 已存在的行必须恰好属于这两个用户
	existing, err := s.repos.Conversation.FindByConversationId(ctx, conv.ConversationId)
	if err != nil {
		return "", errorx.WithOp("GetOrCreateConversation", err)
	}
	if existing.ParticipantA != a || existing.ParticipantB != b {
		zap.L().Warn("会话参与者不匹配", zap.String("conversation_id", conv.ConversationId),
			zap.String("participant_a", existing.ParticipantA), zap.String("participant_b", existing.ParticipantB))
		return "", errorx.New(errorx.CodeInvalidParam, "会话参与者不匹配")
	}
	return conv.ConversationId, nil
}

// AppendMessage 写入消息并推进会话摘要、接收者未读数加一
// 消息写入在前，三步处于同一事务，任一步失败整体回滚
func (s *Store) AppendMessage(ctx context.Context, req AppendRequest) (*model.Message, error) {
	content := strings.TrimSpace(req.Content)
	if !validPair(req.SenderId, req.ReceiverId) {
		return nil, errorx.New(errorx.CodeInvalidParam, "发送者或接收者非法")
	}
	if content == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "消息内容不能为空")
	}
	if utf8.RuneCountInString(content) > constants.MESSAGE_CONTENT_MAX {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "消息内容不能超过 %d 个字符", constants.MESSAGE_CONTENT_MAX)
	}
	messageType, ok := message_type_enum.Normalize(req.MessageType)
	if !ok {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "不支持的消息类型 %s", req.MessageType)
	}
	conversationId := conversation.ID(req.SenderId, req.ReceiverId)
	if req.ConversationId != "" && req.ConversationId != conversationId {
		return nil, errorx.New(errorx.CodeInvalidParam, "会话与收发双方不匹配")
	}

	now := s.opts.Now()
	message := &model.Message{
		Uuid:           snowflake.GenerateID(),
		ConversationId: conversationId,
		SenderId:       req.SenderId,
		ReceiverId:     req.ReceiverId,
		Content:        content,
		MessageType:    messageType,
		CreatedAt:      now,
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Message.Create(ctx, message); err != nil {
			return err
		}
		if err := tx.Conversation.IncrementUnread(ctx, conversationId, req.ReceiverId); err != nil {
			return err
		}
		return tx.Conversation.UpdateLastMessage(ctx, conversationId, content, now)
	})
	if err != nil {
		zap.L().Error("追加消息失败", zap.String("conversation_id", conversationId), zap.Error(err))
		return nil, errorx.WithOp("AppendMessage", err)
	}

	s.invalidateConversationList(req.SenderId, req.ReceiverId)
	return message, nil
}

// GetHistory 从最新消息开始向前分页
// cursor 为上一页返回的最早消息 ID，结果不含 cursor 本身
func (s *Store) GetHistory(ctx context.Context, userA, userB string, limit int, cursor string) (*HistoryPage, error) {
	if !validPair(userA, userB) {
		return nil, errorx.New(errorx.CodeInvalidParam, "会话参与者非法")
	}
	limit = s.clampLimit(limit)
	conversationId := conversation.ID(userA, userB)

	var after *model.Message
	if cursor != "" {
		cursorUuid, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, errorx.Newf(errorx.CodeInvalidParam, "非法游标 %s", cursor)
		}
		after, err = s.repos.Message.FindByUuid(ctx, cursorUuid)
		if err != nil {
			if errorx.IsNotFound(err) {
				err = errorx.Wrap(err, errorx.CodeNotFound, "游标对应的消息不存在")
			}
			return nil, errorx.WithOp("GetHistory", err)
		}
		if after.ConversationId != conversationId {
			return nil, errorx.New(errorx.CodeNotFound, "游标对应的消息不存在")
		}
	}

	messages, err := s.repos.Message.FindPage(ctx, conversationId, limit, after)
	if err != nil {
		zap.L().Error("分页查询消息失败", zap.String("conversation_id", conversationId), zap.Error(err))
		return nil, errorx.WithOp("GetHistory", err)
	}
	// 倒序查询，翻转为升序返回
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	page := &HistoryPage{
		ConversationId: conversationId,
		Messages:       messages,
		HasMore:        len(messages) == limit,
	}
	if len(messages) > 0 {
		page.Cursor = strconv.FormatInt(messages[0].Uuid, 10)
	}
	return page, nil
}

func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		return s.opts.MaxLimit
	}
	return limit
}

// ListConversations 用户参与的全部会话，按最新消息时间倒序，没有消息的排在最后
func (s *Store) ListConversations(ctx context.Context, userId string) ([]respond.ConversationSummaryRespond, error) {
	if !conversation.ValidUserId(userId) {
		return nil, errorx.New(errorx.CodeInvalidParam, "用户 ID 非法")
	}
	cacheKey := constants.CONVERSATION_LIST_KEY_PREFIX + userId
	gen, cacheable := s.listGeneration(ctx, userId)
	if cacheable {
		if rsp, ok := s.cachedList(ctx, cacheKey, gen); ok {
			return rsp, nil
		}
	}

	conversations, err := s.repos.Conversation.FindByParticipant(ctx, userId)
	if err != nil {
		zap.L().Error("查询会话列表失败", zap.String("user_id", userId), zap.Error(err))
		return nil, errorx.WithOp("ListConversations", err)
	}

	friendIds := make([]string, 0, len(conversations))
	for i := range conversations {
		friendIds = append(friendIds, conversations[i].Other(userId))
	}
	profiles := make(map[string]model.UserInfo, len(friendIds))
	users, err := s.repos.User.FindByUuids(ctx, friendIds)
	if err != nil {
		// 资料缺失不影响会话列表本身
		zap.L().Warn("查询好友资料失败", zap.String("user_id", userId), zap.Error(err))
	}
	for _, u := range users {
		profiles[u.Uuid] = u
	}

	rspList := make([]respond.ConversationSummaryRespond, 0, len(conversations))
	for i := range conversations {
		c := &conversations[i]
		friendId := c.Other(userId)
		item := respond.ConversationSummaryRespond{
			ConversationId: c.ConversationId,
			FriendId:       friendId,
			LastMessage:    c.LastMessage,
			UnreadCount:    c.UnreadFor(userId),
			Participants:   []string{c.ParticipantA, c.ParticipantB},
		}
		if c.LastMessageAt.Valid {
			at := c.LastMessageAt.Time.UTC()
			item.LastMessageAt = &at
		}
		if p, ok := profiles[friendId]; ok {
			item.FriendName = p.Nickname
			item.FriendAvatar = p.Avatar
		}
		rspList = append(rspList, item)
	}
	sort.SliceStable(rspList, func(i, j int) bool {
		ti, tj := rspList[i].LastMessageAt, rspList[j].LastMessageAt
		if ti == nil || tj == nil {
			return ti != nil && tj == nil
		}
		return ti.After(*tj)
	})

	if cacheable {
		// 带上读取前的版本号，失效发生在这之后时旧快照不会再被命中
		snapshot := cachedConversationList{Gen: gen, Items: rspList}
		s.cache.SubmitTask(func() {
			jsonBytes, err := json.Marshal(snapshot)
			if err != nil {
				zap.L().Error("json marshal error", zap.Error(err))
				return
			}
			if err := s.cache.Set(context.Background(), cacheKey, string(jsonBytes), time.Duration(constants.REDIS_TIMEOUT)*time.Minute); err != nil {
				zap.L().Error("redis set key error", zap.Error(err))
			}
		})
	}
	return rspList, nil
}

// listGeneration 读取用户会话列表的当前版本，读取失败时本次不使用缓存
func (s *Store) listGeneration(ctx context.Context, userId string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	genKey := constants.CONVERSATION_LIST_GEN_KEY_PREFIX + userId
	value, err := s.cache.Get(ctx, genKey)
	if err != nil {
		zap.L().Warn("读取会话列表版本失败", zap.String("key", genKey), zap.Error(err))
		return 0, false
	}
	if value == "" {
		return 0, true
	}
	gen, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		zap.L().Warn("会话列表版本损坏", zap.String("key", genKey), zap.String("value", value))
		return 0, false
	}
	return gen, true
}

// cachedList 只接受与当前版本一致的缓存
func (s *Store) cachedList(ctx context.Context, cacheKey string, gen int64) ([]respond.ConversationSummaryRespond, bool) {
	rspString, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		zap.L().Warn("读取会话列表缓存失败", zap.String("key", cacheKey), zap.Error(err))
		return nil, false
	}
	if rspString == "" {
		return nil, false
	}
	var entry cachedConversationList
	if err := json.Unmarshal([]byte(rspString), &entry); err != nil {
		zap.L().Warn("会话列表缓存损坏", zap.String("key", cacheKey))
		return nil, false
	}
	if entry.Gen != gen {
		return nil, false
	}
	if entry.Items == nil {
		entry.Items = []respond.ConversationSummaryRespond{}
	}
	return entry.Items, true
}

// MarkAllRead 将 friendId 发给 userId 的未读消息全部置为已读
// 先对未读消息做快照，再按子批次并发提交；每个子批次在自己的事务里
// 同时变更消息和未读数，因此任一子批次失败时未读数仍与实际未读消息一致
func (s *Store) MarkAllRead(ctx context.Context, userId, friendId string) (*respond.MarkAllReadRespond, error) {
	if !validPair(userId, friendId) {
		return nil, errorx.New(errorx.CodeInvalidParam, "会话参与者非法")
	}
	conversationId := conversation.ID(userId, friendId)

	uuids, err := s.repos.Message.FindUnreadUuids(ctx, conversationId, userId)
	if err != nil {
		zap.L().Error("查询未读消息失败", zap.String("conversation_id", conversationId), zap.Error(err))
		return nil, errorx.WithOp("MarkAllRead", err)
	}
	if len(uuids) == 0 {
		return &respond.MarkAllReadRespond{ConversationId: conversationId}, nil
	}

	readAt := s.opts.Now()
	var updated int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ReadConcurrency)
	for start := 0; start < len(uuids); start += s.opts.ReadBatchSize {
		end := start + s.opts.ReadBatchSize
		if end > len(uuids) {
			end = len(uuids)
		}
		batch := uuids[start:end]
		g.Go(func() error {
			return s.repos.Transaction(gctx, func(tx *repository.Repositories) error {
				n, err := tx.Message.MarkRead(gctx, conversationId, userId, batch, readAt)
				if err != nil {
					return err
				}
				if err := tx.Conversation.DecrementUnread(gctx, conversationId, userId, n); err != nil {
					return err
				}
				atomic.AddInt64(&updated, n)
				return nil
			})
		})
	}
	err = g.Wait()
	// 部分子批次可能已经提交，缓存需要失效
	s.invalidateConversationList(userId)
	if err != nil {
		zap.L().Error("批量已读失败", zap.String("conversation_id", conversationId), zap.Int("unread", len(uuids)), zap.Error(err))
		return nil, errorx.WithOp("MarkAllRead", err)
	}
	return &respond.MarkAllReadRespond{ConversationId: conversationId, Updated: updated}, nil
}

// GetMessage 根据字符串形式的消息 ID 查找消息
func (s *Store) GetMessage(ctx context.Context, messageId string) (*model.Message, error) {
	uuid, err := strconv.ParseInt(messageId, 10, 64)
	if err != nil {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "非法消息 ID %s", messageId)
	}
	message, err := s.repos.Message.FindByUuid(ctx, uuid)
	if err != nil {
		if errorx.IsNotFound(err) {
			err = errorx.Wrap(err, errorx.CodeNotFound, "消息不存在")
		}
		return nil, errorx.WithOp("GetMessage", err)
	}
	return message, nil
}

// MarkMessageRead 单条消息置为已读，只有状态真正发生变化时才减少接收者未读数
// 返回变更后的消息
func (s *Store) MarkMessageRead(ctx context.Context, messageUuid int64, conversationId string) (*model.Message, error) {
	var message *model.Message
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		found, err := tx.Message.FindByUuid(ctx, messageUuid)
		if err != nil {
			if errorx.IsNotFound(err) {
				return errorx.Wrap(err, errorx.CodeNotFound, "消息不存在")
			}
			return err
		}
		if found.ConversationId != conversationId {
			return errorx.New(errorx.CodeNotFound, "消息不存在")
		}
		readAt := s.opts.Now()
		n, err := tx.Message.MarkRead(ctx, conversationId, found.ReceiverId, []int64{messageUuid}, readAt)
		if err != nil {
			return err
		}
		if n > 0 {
			if err := tx.Conversation.DecrementUnread(ctx, conversationId, found.ReceiverId, n); err != nil {
				return err
			}
			found.IsRead = true
			found.ReadAt.Time, found.ReadAt.Valid = readAt, true
		}
		message = found
		return nil
	})
	if err != nil {
		if !errorx.IsNotFound(err) {
			zap.L().Error("标记消息已读失败", zap.Int64("uuid", messageUuid), zap.Error(err))
		}
		return nil, errorx.WithOp("MarkMessageRead", err)
	}
	s.invalidateConversationList(message.ReceiverId)
	return message, nil
}

// MarkDelivered 记录消息首次写入接收方连接的时间
func (s *Store) MarkDelivered(ctx context.Context, messageUuid int64) error {
	if err := s.repos.Message.MarkDelivered(ctx, messageUuid, s.opts.Now()); err != nil {
		return errorx.WithOp("MarkDelivered", err)
	}
	return nil
}

// invalidateConversationList 递增会话列表版本，此前写入或仍在排队写入的缓存全部作废
// 在写操作返回前同步完成，调用方随后的读取不会命中旧列表
func (s *Store) invalidateConversationList(userIds ...string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), constants.CACHE_INVALIDATE_TIMEOUT)
	defer cancel()
	for _, id := range userIds {
		genKey := constants.CONVERSATION_LIST_GEN_KEY_PREFIX + id
		if _, err := s.cache.Incr(ctx, genKey); err != nil {
			zap.L().Error("递增会话列表版本失败", zap.String("key", genKey), zap.Error(err))
		}
	}
}
