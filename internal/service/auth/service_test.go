package auth

import (
	"context"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"chatkuy_server/internal/testutil"
	"chatkuy_server/pkg/errorx"
	"chatkuy_server/pkg/util/jwt"
)

func TestVerify(t *testing.T) {
	jwt.Init("auth-test-secret", 30)
	repos := testutil.NewRepositories(t)
	testutil.SeedUser(t, repos, "bob", "Bobby")
	svc := NewAuthService(repos.User)
	ctx := context.Background()

	token, err := jwt.GenerateAccessToken(jwt.Profile{UserID: "alice", Email: "alice@example.com", Name: "Alice", Picture: "a.png"})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	id, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserId != "alice" || id.DisplayName != "Alice" || id.PhotoRef != "a.png" || id.Email != "alice@example.com" {
		t.Fatalf("identity = %+v", id)
	}

	// 令牌中没有昵称时使用资料表
	token, _ = jwt.GenerateAccessToken(jwt.Profile{UserID: "bob"})
	id, err = svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.DisplayName != "Bobby" || id.PhotoRef == "" {
		t.Fatalf("profile fallback not applied: %+v", id)
	}
}

func TestVerifyRejects(t *testing.T) {
	jwt.Init("auth-test-secret", 30)
	svc := NewAuthService(nil)
	ctx := context.Background()

	refresh := gojwt.NewWithClaims(gojwt.SigningMethodHS256, jwt.Claims{
		UserID: "alice",
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "refresh_token",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	refreshToken, _ := refresh.SignedString([]byte("auth-test-secret"))

	expired := gojwt.NewWithClaims(gojwt.SigningMethodHS256, jwt.Claims{
		UserID: "alice",
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   jwt.AccessTokenSubject,
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, _ := expired.SignedString([]byte("auth-test-secret"))

	forged := gojwt.NewWithClaims(gojwt.SigningMethodHS256, jwt.Claims{
		UserID:           "alice",
		RegisteredClaims: gojwt.RegisteredClaims{Subject: jwt.AccessTokenSubject},
	})
	forgedToken, _ := forged.SignedString([]byte("another-secret"))

	// 用户 ID 含会话分隔符
	separatorToken, _ := jwt.GenerateAccessToken(jwt.Profile{UserID: "a_b", Name: "AB"})

	for name, token := range map[string]string{
		"empty":   "",
		"garbage": "not.a.token",
		"refresh": refreshToken,
		"expired": expiredToken,
		"forged":  forgedToken,
		"sep-id":  separatorToken,
	} {
		if _, err := svc.Verify(ctx, token); errorx.GetCode(err) != errorx.CodeUnauthorized {
			t.Errorf("%s: err = %v, want unauthorized", name, err)
		}
	}
}
