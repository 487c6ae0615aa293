package constants

import "time"

const (
	CHANNEL_SIZE           = 100  // broker 转发通道大小
	DELIVERED_QUEUE_SIZE   = 1024 // 送达时间落库队列大小
	REDIS_TIMEOUT          = 1    // redis 缓存有效期（分钟）
	HISTORY_DEFAULT_LIMIT  = 50   // 历史消息默认分页大小
	HISTORY_MAX_LIMIT      = 100  // 历史消息单页上限
	READ_BATCH_SIZE        = 450  // 批量已读单个子批次的最大消息数
	READ_BATCH_CONCURRENCY = 4    // 批量已读并发提交的子批次数
	MESSAGE_CONTENT_MAX    = 4000 // 单条消息最大字符数
	CONVERSATION_ID_SEP    = "_"  // 会话 ID 分隔符
)

// 长连接相关参数
const (
	WS_WRITE_WAIT       = 10 * time.Second
	WS_PONG_WAIT        = 60 * time.Second
	WS_MAX_MESSAGE_SIZE = 64 * 1024
	WS_SEND_BUFFER      = 256
	WS_AUTH_TIMEOUT     = 10 * time.Second
)

// 缓存 key 前缀
const (
	CONVERSATION_LIST_KEY_PREFIX     = "conversation_list_"
	CONVERSATION_LIST_GEN_KEY_PREFIX = "conversation_gen_"
)

// 会话列表版本递增的超时时间
const CACHE_INVALIDATE_TIMEOUT = 2 * time.Second

// 长连接事件名
const (
	EVENT_AUTHENTICATE     = "authenticate"
	EVENT_AUTHENTICATED    = "authenticated"
	EVENT_SEND_MESSAGE     = "send_message"
	EVENT_GET_MESSAGES     = "get_messages"
	EVENT_TYPING_START     = "typing_start"
	EVENT_TYPING_STOP      = "typing_stop"
	EVENT_MARK_AS_READ     = "mark_as_read"
	EVENT_USER_ONLINE      = "user_online"
	EVENT_MESSAGE_SENT     = "message_sent"
	EVENT_RECEIVE_MESSAGE  = "receive_message"
	EVENT_MESSAGES_HISTORY = "messages_history"
	EVENT_MESSAGE_ERROR    = "message_error"
	EVENT_MESSAGES_ERROR   = "messages_error"
	EVENT_USER_TYPING      = "user_typing"
	EVENT_MESSAGE_READ     = "message_read"
	EVENT_USER_STATUS      = "user_status"
)

// 用户在线状态
const (
	STATUS_ONLINE  = "online"
	STATUS_OFFLINE = "offline"
)
