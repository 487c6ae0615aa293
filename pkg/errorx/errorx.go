package errorx

import (
	"errors"
	"fmt"
	"net/http"
)

// CodeError 带业务错误码的自定义错误
// 支持 %w 包装底层错误，可被 errors.Is/errors.As 识别
type CodeError struct {
	Code  int    // 业务错误码
	Msg   string // 面向调用方的错误消息
	op    string // 出错的操作名，只出现在日志中
	cause error  // 被包装的底层错误
}

// Error 有底层错误时返回 "消息: 底层错误"，否则仅返回消息
// 带操作名时返回 "操作名: 底层错误"
func (e *CodeError) Error() string {
	if e.op != "" && e.cause != nil {
		return fmt.Sprintf("%s: %v", e.op, e.cause)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap 支持 errors.Is/errors.As 向下追溯
func (e *CodeError) Unwrap() error {
	return e.cause
}

// New 创建一个新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

// Newf 创建一个带格式化消息的 CodeError
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap 包装底层错误，添加业务错误码和消息
// 用法: errorx.Wrap(err, CodeNotFound, "消息不存在")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   msg,
		cause: err,
	}
}

// Wrapf 包装底层错误，支持格式化消息
// 用法: errorx.Wrapf(err, CodeDBError, "AppendMessage 写入消息 %s", id)
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

// WithOp 给错误标注操作名，业务码和面向调用方的消息沿用底层 CodeError
// 底层不是 CodeError 时按服务繁忙处理
// 用法: return errorx.WithOp("GetHistory", err)
func WithOp(op string, err error) error {
	if err == nil {
		return nil
	}
	code, msg := CodeServerBusy, ErrServerBusy.Msg
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		code, msg = codeErr.Code, codeErr.Msg
	}
	return &CodeError{Code: code, Msg: msg, op: op, cause: err}
}

// GetCode 从错误中提取业务错误码，不是 CodeError 时返回服务繁忙
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// 业务状态码常量定义
const (
	CodeSuccess      = 1000 // 成功
	CodeInvalidParam = 1001 // 请求参数错误
	CodeServerBusy   = 1005 // 服务繁忙
	CodeUnauthorized = 1006 // 未授权/认证失败
	CodeNotFound     = 1008 // 资源不存在
	CodeDBError      = 1010 // 数据库错误
	CodeCacheError   = 1011 // 缓存错误
	CodeNotFriends   = 1012 // 双方不是好友
	CodeForbidden    = 1013 // 无权操作该资源
)

// 预定义常用错误实例
var (
	ErrInvalidParam = New(CodeInvalidParam, "请求参数错误")
	ErrServerBusy   = New(CodeServerBusy, "服务繁忙")
	ErrUnauthorized = New(CodeUnauthorized, "认证失败")
	ErrNotFriends   = New(CodeNotFriends, "你们还不是好友")
	ErrForbidden    = New(CodeForbidden, "无权操作")
)

// IsNotFound 检查错误是否为"未找到"类型（包括 gorm.ErrRecordNotFound）
func IsNotFound(err error) bool {
	var codeErr *CodeError
	if errors.As(err, &codeErr) && codeErr.Code == CodeNotFound {
		return true
	}
	return err != nil && err.Error() == "record not found"
}

// HTTPStatus 将业务码映射为 HTTP 状态码
func HTTPStatus(code int) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFriends, CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// 长连接错误事件中使用的错误码
const (
	EventInvalidInput = "INVALID_INPUT"
	EventNotFriends   = "NOT_FRIENDS"
	EventNotFound     = "NOT_FOUND"
	EventForbidden    = "FORBIDDEN"
	EventSendFailed   = "SEND_FAILED"
	EventFetchFailed  = "FETCH_FAILED"
	EventUnknown      = "UNKNOWN_EVENT"
)

// EventCode 将错误映射为长连接错误码，无法归类的错误使用 fallback
func EventCode(err error, fallback string) string {
	switch GetCode(err) {
	case CodeInvalidParam:
		return EventInvalidInput
	case CodeNotFriends:
		return EventNotFriends
	case CodeNotFound:
		return EventNotFound
	case CodeForbidden:
		return EventForbidden
	default:
		return fallback
	}
}

// PublicMessage 返回可以展示给客户端的错误消息，内部错误一律替换为服务繁忙
func PublicMessage(err error) string {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		switch codeErr.Code {
		case CodeDBError, CodeCacheError:
			return ErrServerBusy.Msg
		}
		return codeErr.Msg
	}
	return ErrServerBusy.Msg
}
