package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"chatkuy_server/internal/dto/respond"
	"chatkuy_server/internal/handler"
	"chatkuy_server/internal/service"
	"chatkuy_server/internal/service/auth"
	"chatkuy_server/pkg/errorx"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	if token != "good" {
		return nil, errorx.ErrUnauthorized
	}
	return &auth.Identity{UserId: "alice", DisplayName: "Alice"}, nil
}

type stubChat struct {
	lastUser   string
	lastFriend string
	lastLimit  int
	lastCursor string
	err        error
}

func (s *stubChat) ListConversations(_ context.Context, userId string) ([]respond.ConversationSummaryRespond, error) {
	s.lastUser = userId
	return []respond.ConversationSummaryRespond{{ConversationId: "alice_bob", FriendId: "bob", UnreadCount: 2}}, s.err
}

func (s *stubChat) ReadHistoryPage(_ context.Context, userId, friendId string, limit int, cursor string) (*respond.MessageHistoryRespond, error) {
	s.lastUser, s.lastFriend, s.lastLimit, s.lastCursor = userId, friendId, limit, cursor
	if s.err != nil {
		return nil, s.err
	}
	return &respond.MessageHistoryRespond{FriendId: friendId, Messages: []respond.MessageRespond{}}, nil
}

func (s *stubChat) MarkMessageRead(_ context.Context, userId, conversationId, messageId string) error {
	s.lastUser = userId
	return s.err
}

func (s *stubChat) MarkConversationRead(_ context.Context, userId, friendId string) (*respond.MarkAllReadRespond, error) {
	s.lastUser, s.lastFriend = userId, friendId
	if s.err != nil {
		return nil, s.err
	}
	return &respond.MarkAllReadRespond{ConversationId: "alice_bob", Updated: 3}, nil
}

type stubPresence struct{}

func (stubPresence) GetOnlineStatus(_ context.Context, userId, targetId string) (*respond.OnlineStatusRespond, error) {
	if targetId != "bob" {
		return nil, errorx.ErrNotFriends
	}
	return &respond.OnlineStatusRespond{UserId: targetId, IsOnline: true}, nil
}

type stubLive struct{ hits int }

func (s *stubLive) HandleConnection(w http.ResponseWriter, _ *http.Request) {
	s.hits++
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func newEngine(chat *stubChat, live *stubLive) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := &service.Services{Chat: chat, Presence: stubPresence{}, Auth: stubVerifier{}}
	engine := gin.New()
	NewRouter(handler.NewHandlers(svc, live), stubVerifier{}).RegisterRoutes(engine)
	return engine
}

type envelope struct {
	Code int             `json:"code"`
	Msg  any             `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func do(t *testing.T, engine *gin.Engine, method, path, body, bearer string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w, env
}

func TestChatRoutesRequireBearer(t *testing.T) {
	engine := newEngine(&stubChat{}, &stubLive{})

	for _, bearer := range []string{"", "bad"} {
		w, env := do(t, engine, http.MethodGet, "/chat/getConversationList", "", bearer)
		if w.Code != http.StatusUnauthorized || env.Code != errorx.CodeUnauthorized {
			t.Fatalf("bearer %q: status=%d code=%d", bearer, w.Code, env.Code)
		}
	}
}

func TestConversationListUsesCaller(t *testing.T) {
	chat := &stubChat{}
	engine := newEngine(chat, &stubLive{})

	w, env := do(t, engine, http.MethodGet, "/chat/getConversationList", "", "good")
	if w.Code != http.StatusOK || env.Code != errorx.CodeSuccess {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if chat.lastUser != "alice" {
		t.Fatalf("caller = %q", chat.lastUser)
	}
	var list []respond.ConversationSummaryRespond
	if err := json.Unmarshal(env.Data, &list); err != nil || len(list) != 1 || list[0].UnreadCount != 2 {
		t.Fatalf("data = %s, %v", env.Data, err)
	}
}

func TestGetMessageListBindsQuery(t *testing.T) {
	chat := &stubChat{}
	engine := newEngine(chat, &stubLive{})

	w, _ := do(t, engine, http.MethodGet, "/chat/getMessageList?friendId=bob&limit=20&cursor=123", "", "good")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if chat.lastFriend != "bob" || chat.lastLimit != 20 || chat.lastCursor != "123" {
		t.Fatalf("bound = %+v", chat)
	}

	w, env := do(t, engine, http.MethodGet, "/chat/getMessageList", "", "good")
	if w.Code != http.StatusBadRequest || env.Code != errorx.CodeInvalidParam {
		t.Fatalf("missing friendId: status=%d code=%d", w.Code, env.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{errorx.ErrNotFriends, http.StatusForbidden},
		{errorx.New(errorx.CodeNotFound, "消息不存在"), http.StatusNotFound},
		{errorx.ErrForbidden, http.StatusForbidden},
		{errorx.New(errorx.CodeDBError, "MarkAllRead 提交失败"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		engine := newEngine(&stubChat{err: c.err}, &stubLive{})
		w, env := do(t, engine, http.MethodPost, "/chat/markAllRead", `{"friendId":"bob"}`, "good")
		if w.Code != c.status {
			t.Fatalf("%v: status=%d want %d", c.err, w.Code, c.status)
		}
		if c.status == http.StatusInternalServerError && env.Msg != errorx.ErrServerBusy.Msg {
			t.Fatalf("internal error leaked: %v", env.Msg)
		}
	}
}

func TestMarkReadEndpoints(t *testing.T) {
	chat := &stubChat{}
	engine := newEngine(chat, &stubLive{})

	w, env := do(t, engine, http.MethodPost, "/chat/markAllRead", `{"friendId":" bob "}`, "good")
	if w.Code != http.StatusOK || chat.lastFriend != "bob" {
		t.Fatalf("markAllRead: status=%d friend=%q", w.Code, chat.lastFriend)
	}
	var res respond.MarkAllReadRespond
	if err := json.Unmarshal(env.Data, &res); err != nil || res.Updated != 3 {
		t.Fatalf("data = %s", env.Data)
	}

	w, _ = do(t, engine, http.MethodPost, "/chat/markMessageRead", `{"conversationId":"alice_bob","messageId":"1"}`, "good")
	if w.Code != http.StatusOK {
		t.Fatalf("markMessageRead: status=%d", w.Code)
	}
	w, _ = do(t, engine, http.MethodPost, "/chat/markMessageRead", `{"conversationId":"alice_bob"}`, "good")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing messageId: status=%d", w.Code)
	}
}

func TestOnlineStatus(t *testing.T) {
	engine := newEngine(&stubChat{}, &stubLive{})

	w, env := do(t, engine, http.MethodGet, "/chat/getOnlineStatus?userId=bob", "", "good")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var res respond.OnlineStatusRespond
	if err := json.Unmarshal(env.Data, &res); err != nil || !res.IsOnline {
		t.Fatalf("data = %s", env.Data)
	}

	w, _ = do(t, engine, http.MethodGet, "/chat/getOnlineStatus?userId=mallory", "", "good")
	if w.Code != http.StatusForbidden {
		t.Fatalf("stranger: status=%d", w.Code)
	}
}

func TestWebSocketRouteSkipsAuthMiddleware(t *testing.T) {
	live := &stubLive{}
	engine := newEngine(&stubChat{}, live)

	req := httptest.NewRequest(http.MethodGet, "/wss", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if live.hits != 1 {
		t.Fatalf("live server not reached, status=%d", w.Code)
	}
}
