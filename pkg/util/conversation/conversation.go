// Package conversation 由两个用户 ID 推导会话 ID
package conversation

import (
	"strings"

	"chatkuy_server/pkg/constants"
)

// ValidUserId 用户 ID 非空且不含会话 ID 分隔符
// 含分隔符的 ID 会让不同的用户对拼出相同的会话 ID
func ValidUserId(userId string) bool {
	return userId != "" && !strings.Contains(userId, constants.CONVERSATION_ID_SEP)
}

// Participants 返回按字典序升序排列的两个参与者
func Participants(userA, userB string) (string, string) {
	if userB < userA {
		return userB, userA
	}
	return userA, userB
}

// ID 返回两个用户之间唯一的会话 ID，与参数顺序无关
// 调用方需先用 ValidUserId 校验参与者
func ID(userA, userB string) string {
	a, b := Participants(userA, userB)
	return a + constants.CONVERSATION_ID_SEP + b
}
