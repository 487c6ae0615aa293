// Package auth 校验身份提供方签发的访问令牌，返回调用者身份
package auth

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"chatkuy_server/internal/dao/mysql/repository"
	"chatkuy_server/pkg/errorx"
	"chatkuy_server/pkg/util/conversation"
	"chatkuy_server/pkg/util/jwt"
)

// Identity 已认证的调用者
type Identity struct {
	UserId      string
	Email       string
	DisplayName string
	PhotoRef    string
}

// Service 认证服务实现
type Service struct {
	users repository.UserRepository
}

// NewAuthService 创建认证服务实例
// users 用于令牌中没有昵称或头像时补全资料，可以为 nil
func NewAuthService(users repository.UserRepository) *Service {
	return &Service{users: users}
}

// Verify 校验令牌，任何失败都返回 Unauthorized
func (s *Service) Verify(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errorx.New(errorx.CodeUnauthorized, "缺少访问令牌")
	}
	claims, err := jwt.ParseToken(token)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeUnauthorized, "Token 已过期或无效，请重新登录")
	}
	if claims.Subject != jwt.AccessTokenSubject {
		return nil, errorx.New(errorx.CodeUnauthorized, "请使用 Access Token 访问此接口")
	}
	if !conversation.ValidUserId(claims.UserID) {
		return nil, errorx.New(errorx.CodeUnauthorized, "令牌中的用户 ID 非法")
	}

	identity := &Identity{
		UserId:      claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.Name,
		PhotoRef:    claims.Picture,
	}
	if (identity.DisplayName == "" || identity.PhotoRef == "") && s.users != nil {
		s.fillProfile(ctx, identity)
	}
	if identity.DisplayName == "" {
		identity.DisplayName = identity.Email
	}
	return identity, nil
}

// fillProfile 资料查询失败不影响认证结果
func (s *Service) fillProfile(ctx context.Context, identity *Identity) {
	user, err := s.users.FindByUuid(ctx, identity.UserId)
	if err != nil {
		if !errorx.IsNotFound(err) {
			zap.L().Warn("查询用户资料失败", zap.String("user_id", identity.UserId), zap.Error(err))
		}
		return
	}
	if identity.DisplayName == "" {
		identity.DisplayName = user.Nickname
	}
	if identity.PhotoRef == "" {
		identity.PhotoRef = user.Avatar
	}
	if identity.Email == "" {
		identity.Email = user.Email
	}
}
