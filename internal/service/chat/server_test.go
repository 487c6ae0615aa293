package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chatkuy_server/internal/dao/mysql/repository"
	"chatkuy_server/internal/dto/respond"
	"chatkuy_server/internal/model"
	"chatkuy_server/internal/service/auth"
	"chatkuy_server/internal/service/friendship"
	"chatkuy_server/internal/service/message"
	"chatkuy_server/internal/service/readstate"
	"chatkuy_server/internal/testutil"
	"chatkuy_server/pkg/constants"
	"chatkuy_server/pkg/errorx"
	"chatkuy_server/pkg/util/conversation"
	"chatkuy_server/pkg/util/jwt"
)

type testEnv struct {
	repos *repository.Repositories
	srv   *Server
	ts    *httptest.Server
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	jwt.Init("chat-test-secret", 30)
	repos := testutil.NewRepositories(t)
	testutil.SeedUser(t, repos, "alice", "Alice")
	testutil.SeedUser(t, repos, "bob", "Bob")
	testutil.SeedUser(t, repos, "carol", "Carol")
	testutil.SeedFriends(t, repos, "alice", "bob")

	store := message.NewStore(repos, testutil.NewStubCache(), message.Options{})
	gate := friendship.NewGate(repos.Contact)
	registry := NewRegistry()
	broker := NewStandaloneBroker(registry)
	ctx, cancel := context.WithCancel(context.Background())
	go broker.Start(ctx)

	srv := NewServer(ServerConfig{
		Registry:    registry,
		Broker:      broker,
		Verifier:    auth.NewAuthService(repos.User),
		Gate:        gate,
		Store:       store,
		History:     readstate.NewService(gate, store, NewNotifier(broker)),
		AuthTimeout: 2 * time.Second,
	})
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleConnection))
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		broker.Close()
		cancel()
	})
	return &testEnv{repos: repos, srv: srv, ts: ts}
}

func (e *testEnv) wsURL(query string) string {
	u := "ws" + strings.TrimPrefix(e.ts.URL, "http")
	if query != "" {
		u += "?" + query
	}
	return u
}

func token(t *testing.T, userId, name string) string {
	t.Helper()
	tok, err := jwt.GenerateAccessToken(jwt.Profile{UserID: userId, Name: name})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return tok
}

// connect 建立连接并等待 authenticated
func (e *testEnv) connect(t *testing.T, userId, name string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.wsURL("token="+token(t, userId, name)), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", userId, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	var ev respond.AuthenticatedEvent
	readEvent(t, conn, constants.EVENT_AUTHENTICATED, &ev)
	if ev.UserId != userId {
		t.Fatalf("authenticated as %q, want %q", ev.UserId, userId)
	}
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"event": event, "data": data}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// readEvent 读取直到出现指定事件，跳过其他事件
func readEvent(t *testing.T, conn *websocket.Conn, event string, out any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f inboundFrame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		if f.Event != event {
			continue
		}
		if out != nil {
			if err := json.Unmarshal(f.Data, out); err != nil {
				t.Fatalf("decode %s: %v", event, err)
			}
		}
		return
	}
}

func TestSendMessageBetweenFriends(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect(t, "alice", "Alice")
	bob := env.connect(t, "bob", "Bob")

	emit(t, alice, constants.EVENT_SEND_MESSAGE, map[string]any{
		"receiverId":   "bob",
		"content":      "  hi bob  ",
		"clientTempId": "tmp-1",
	})

	var sent respond.MessageSentEvent
	readEvent(t, alice, constants.EVENT_MESSAGE_SENT, &sent)
	if sent.ClientTempId != "tmp-1" || sent.Status != "sent" || sent.Content != "hi bob" || sent.Id == "" {
		t.Fatalf("message_sent = %+v", sent)
	}

	var recv respond.ReceiveMessageEvent
	readEvent(t, bob, constants.EVENT_RECEIVE_MESSAGE, &recv)
	if recv.Id != sent.Id || recv.SenderId != "alice" || recv.SenderName != "Alice" {
		t.Fatalf("receive_message = %+v", recv)
	}
	if recv.ConversationId != conversation.ID("alice", "bob") {
		t.Fatalf("conversation id = %s", recv.ConversationId)
	}

	conv, err := env.repos.Conversation.FindByConversationId(context.Background(), recv.ConversationId)
	if err != nil {
		t.Fatalf("FindByConversationId: %v", err)
	}
	if conv.UnreadFor("bob") != 1 || conv.UnreadFor("alice") != 0 || conv.LastMessage != "hi bob" {
		t.Fatalf("conversation = %+v", conv)
	}

	// 送达时间由后台协程落库
	uuid, _ := strconv.ParseInt(recv.Id, 10, 64)
	deadline := time.Now().Add(3 * time.Second)
	for {
		stored, err := env.repos.Message.FindByUuid(context.Background(), uuid)
		if err != nil {
			t.Fatalf("FindByUuid: %v", err)
		}
		if stored.DeliveredAt.Valid {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("delivered_at never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// blockingStore MarkDelivered 阻塞直到 release 关闭
type blockingStore struct {
	release chan struct{}
	calls   atomic.Int64
}

func (b *blockingStore) GetOrCreateConversation(context.Context, string, string) (string, error) {
	return "", errors.New("not used")
}

func (b *blockingStore) AppendMessage(context.Context, message.AppendRequest) (*model.Message, error) {
	return nil, errors.New("not used")
}

func (b *blockingStore) MarkDelivered(ctx context.Context, _ int64) error {
	b.calls.Add(1)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func TestMarkDeliveredDoesNotBlockWriter(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	srv := NewServer(ServerConfig{Registry: NewRegistry(), Store: store})

	done := make(chan struct{})
	go func() {
		// 超过队列容量，落库协程卡住时多出的部分直接丢弃
		for i := 1; i <= constants.DELIVERED_QUEUE_SIZE+10; i++ {
			srv.markDelivered(int64(i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("markDelivered blocked behind a slow store")
	}

	close(store.release)
	srv.Close()
	if got := store.calls.Load(); got == 0 || got > constants.DELIVERED_QUEUE_SIZE+1 {
		t.Fatalf("store calls = %d", got)
	}
}

func TestSendMessageRejectsNonFriend(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect(t, "alice", "Alice")

	emit(t, alice, constants.EVENT_SEND_MESSAGE, map[string]any{
		"receiverId":   "carol",
		"content":      "hello",
		"clientTempId": "tmp-2",
	})
	var errEv respond.MessageErrorEvent
	readEvent(t, alice, constants.EVENT_MESSAGE_ERROR, &errEv)
	if errEv.Code != errorx.EventNotFriends || errEv.ClientTempId != "tmp-2" {
		t.Fatalf("message_error = %+v", errEv)
	}
	if _, err := env.repos.Conversation.FindByConversationId(context.Background(), conversation.ID("alice", "carol")); err == nil {
		t.Fatalf("no conversation should be created for non-friends")
	}
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect(t, "alice", "Alice")

	cases := []map[string]any{
		{"receiverId": "bob", "content": "   "},
		{"receiverId": "", "content": "hi"},
		{"receiverId": "alice", "content": "me"},
		{"receiverId": "bob", "content": strings.Repeat("x", constants.MESSAGE_CONTENT_MAX+1)},
	}
	for _, data := range cases {
		emit(t, alice, constants.EVENT_SEND_MESSAGE, data)
		var errEv respond.MessageErrorEvent
		readEvent(t, alice, constants.EVENT_MESSAGE_ERROR, &errEv)
		if errEv.Code != errorx.EventInvalidInput {
			t.Fatalf("payload %v: code = %s", data["receiverId"], errEv.Code)
		}
	}
}

func TestGetMessagesPage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect(t, "alice", "Alice")

	for _, content := range []string{"one", "two", "three"} {
		emit(t, alice, constants.EVENT_SEND_MESSAGE, map[string]any{"receiverId": "bob", "content": content})
		readEvent(t, alice, constants.EVENT_MESSAGE_SENT, nil)
	}

	emit(t, alice, constants.EVENT_GET_MESSAGES, map[string]any{"friendId": "bob", "limit": 2})
	var page respond.MessageHistoryRespond
	readEvent(t, alice, constants.EVENT_MESSAGES_HISTORY, &page)
	if len(page.Messages) != 2 || !page.HasMore {
		t.Fatalf("page = %+v", page)
	}
	if page.Messages[0].Content != "two" || page.Messages[1].Content != "three" {
		t.Fatalf("page order = %s, %s", page.Messages[0].Content, page.Messages[1].Content)
	}
	if page.Cursor != page.Messages[0].Id {
		t.Fatalf("cursor = %s, want oldest id %s", page.Cursor, page.Messages[0].Id)
	}

	emit(t, alice, constants.EVENT_GET_MESSAGES, map[string]any{"friendId": "bob", "limit": 2, "cursor": page.Cursor})
	var older respond.MessageHistoryRespond
	readEvent(t, alice, constants.EVENT_MESSAGES_HISTORY, &older)
	if len(older.Messages) != 1 || older.Messages[0].Content != "one" || older.HasMore {
		t.Fatalf("older page = %+v", older)
	}

	emit(t, alice, constants.EVENT_GET_MESSAGES, map[string]any{"friendId": "carol"})
	var errEv respond.MessagesErrorEvent
	readEvent(t, alice, constants.EVENT_MESSAGES_ERROR, &errEv)
	if errEv.Code != errorx.EventNotFriends || errEv.FriendId != "carol" {
		t.Fatalf("messages_error = %+v", errEv)
	}
}

func TestTypingAndReadReceiptsAreRelayed(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect(t, "alice", "Alice")
	bob := env.connect(t, "bob", "Bob")

	emit(t, alice, constants.EVENT_TYPING_START, map[string]any{"receiverId": "bob"})
	var typing respond.UserTypingEvent
	readEvent(t, bob, constants.EVENT_USER_TYPING, &typing)
	if typing.UserId != "alice" || !typing.IsTyping {
		t.Fatalf("user_typing = %+v", typing)
	}

	emit(t, bob, constants.EVENT_MARK_AS_READ, map[string]any{"messageId": "42", "senderId": "alice"})
	var read respond.MessageReadEvent
	readEvent(t, alice, constants.EVENT_MESSAGE_READ, &read)
	if read.MessageId != "42" || read.ReadBy != "bob" {
		t.Fatalf("message_read = %+v", read)
	}
}

func TestUnknownEvent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect(t, "alice", "Alice")

	emit(t, alice, "dance", nil)
	var errEv respond.MessageErrorEvent
	readEvent(t, alice, constants.EVENT_MESSAGE_ERROR, &errEv)
	if errEv.Code != errorx.EventUnknown {
		t.Fatalf("code = %s", errEv.Code)
	}
}

func TestAuthenticateFirstFrame(t *testing.T) {
	env := newTestEnv(t)
	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL(""), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	emit(t, conn, constants.EVENT_AUTHENTICATE, map[string]any{"token": token(t, "bob", "Bob")})
	var ev respond.AuthenticatedEvent
	readEvent(t, conn, constants.EVENT_AUTHENTICATED, &ev)
	if ev.UserId != "bob" {
		t.Fatalf("authenticated = %+v", ev)
	}
}

func TestRejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	conn, _, err := websocket.DefaultDialer.Dial(env.wsURL("token=not-a-token"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("read err = %v, want close 1008", err)
	}
	if env.srv.Registry().IsOnline("alice") {
		t.Fatalf("unauthenticated connection must not be registered")
	}
}

func TestOfflineBroadcastOnLastSession(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect(t, "alice", "Alice")
	bob1 := env.connect(t, "bob", "Bob")
	bob2 := env.connect(t, "bob", "Bob")

	var status respond.UserStatusEvent
	readEvent(t, alice, constants.EVENT_USER_STATUS, &status)
	if status.UserId != "bob" || status.Status != constants.STATUS_ONLINE {
		t.Fatalf("user_status = %+v", status)
	}

	_ = bob1.Close()
	_ = bob2.Close()

	// 两个连接都断开后才广播一次离线
	for {
		readEvent(t, alice, constants.EVENT_USER_STATUS, &status)
		if status.Status == constants.STATUS_OFFLINE {
			break
		}
	}
	if status.UserId != "bob" {
		t.Fatalf("offline for %s, want bob", status.UserId)
	}
	if env.srv.Registry().IsOnline("bob") {
		t.Fatalf("bob should be offline")
	}
}
