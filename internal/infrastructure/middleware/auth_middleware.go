package middleware

import (
	"context"
	"net/http"
	"strings"

	"chatkuy_server/internal/service/auth"
	"chatkuy_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// 认证通过后写入上下文的键
const (
	ContextUserIdKey   = "user_id"
	ContextIdentityKey = "identity"
)

// Verifier 校验 Access Token
type Verifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// Auth 认证中间件
// 验证 Authorization: Bearer 并将调用方身份存入上下文
func Auth(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从 Header 获取 Token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "请先登录",
			})
			return
		}

		// 2. 解析 Bearer Token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "Token 格式错误，请使用 Bearer Token",
			})
			return
		}

		// 3. 校验 Token，只接受 Access Token
		identity, err := verifier.Verify(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "Token 已过期或无效，请重新登录",
			})
			return
		}

		// 4. 将用户信息存入上下文，供后续 Handler 使用
		c.Set(ContextUserIdKey, identity.UserId)
		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}
