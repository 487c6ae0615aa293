package message_type_enum

import "regexp"

// 内置消息类型，其余类型由客户端扩展
const (
	Text  = "text"
	Image = "image"
	File  = "file"
)

var typePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,19}$`)

// Normalize 空类型默认为文本，非法类型返回 false
func Normalize(messageType string) (string, bool) {
	if messageType == "" {
		return Text, true
	}
	if !typePattern.MatchString(messageType) {
		return "", false
	}
	return messageType, true
}
