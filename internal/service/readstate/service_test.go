package readstate

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"chatkuy_server/internal/dao/mysql/repository"
	"chatkuy_server/internal/dto/respond"
	"chatkuy_server/internal/model"
	"chatkuy_server/internal/service/friendship"
	"chatkuy_server/internal/service/message"
	"chatkuy_server/internal/testutil"
	"chatkuy_server/pkg/constants"
	"chatkuy_server/pkg/errorx"
)

type notification struct {
	userId string
	event  string
	data   respond.MessageReadEvent
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (r *recordingNotifier) NotifyUser(_ context.Context, userId, event string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{userId: userId, event: event, data: data.(respond.MessageReadEvent)})
	return nil
}

type fixture struct {
	svc      *Service
	store    *message.Store
	repos    *repository.Repositories
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := testutil.NewRepositories(t)
	testutil.SeedFriends(t, repos, "alice", "bob")
	store := message.NewStore(repos, testutil.NewStubCache(), message.Options{Now: testutil.NewClock().Now})
	notifier := &recordingNotifier{}
	return &fixture{
		svc:      NewService(friendship.NewGate(repos.Contact), store, notifier),
		store:    store,
		repos:    repos,
		notifier: notifier,
	}
}

func (f *fixture) send(t *testing.T, from, to, content string) *model.Message {
	t.Helper()
	ctx := context.Background()
	convId, err := f.store.GetOrCreateConversation(ctx, from, to)
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}
	msg, err := f.store.AppendMessage(ctx, message.AppendRequest{SenderId: from, ReceiverId: to, Content: content, ConversationId: convId})
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	return msg
}

func TestReadHistoryPageRequiresFriendship(t *testing.T) {
	f := newFixture(t)
	f.send(t, "alice", "bob", "hi")
	ctx := context.Background()

	page, err := f.svc.ReadHistoryPage(ctx, "bob", "alice", 10, "")
	if err != nil {
		t.Fatalf("ReadHistoryPage: %v", err)
	}
	if page.FriendId != "alice" || len(page.Messages) != 1 || page.Messages[0].Content != "hi" || page.HasMore {
		t.Fatalf("page = %+v", page)
	}
	if page.Cursor != page.Messages[0].Id {
		t.Fatalf("cursor = %q, want %q", page.Cursor, page.Messages[0].Id)
	}

	if _, err := f.svc.ReadHistoryPage(ctx, "bob", "mallory", 10, ""); errorx.GetCode(err) != errorx.CodeNotFriends {
		t.Fatalf("non-friend: err = %v", err)
	}
	if _, err := f.svc.ReadHistoryPage(ctx, "bob", "", 10, ""); errorx.GetCode(err) != errorx.CodeInvalidParam {
		t.Fatalf("missing friend: err = %v", err)
	}
}

func TestMarkConversationReadNotifiesFriend(t *testing.T) {
	f := newFixture(t)
	f.send(t, "alice", "bob", "one")
	f.send(t, "alice", "bob", "two")
	ctx := context.Background()

	res, err := f.svc.MarkConversationRead(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("MarkConversationRead: %v", err)
	}
	if res.Updated != 2 || res.ConversationId != "alice_bob" {
		t.Fatalf("result = %+v", res)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.notifier.sent))
	}
	n := f.notifier.sent[0]
	if n.userId != "alice" || n.event != constants.EVENT_MESSAGE_READ || n.data.ReadBy != "bob" || n.data.Count != 2 {
		t.Fatalf("notification = %+v", n)
	}

	// 没有新的未读消息时不再通知
	if _, err := f.svc.MarkConversationRead(ctx, "bob", "alice"); err != nil {
		t.Fatalf("MarkConversationRead: %v", err)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("no-op read should not notify")
	}

	if _, err := f.svc.MarkConversationRead(ctx, "bob", "mallory"); errorx.GetCode(err) != errorx.CodeNotFriends {
		t.Fatalf("non-friend: err = %v", err)
	}
}

func TestMarkMessageRead(t *testing.T) {
	f := newFixture(t)
	msg := f.send(t, "alice", "bob", "one")
	id := strconv.FormatInt(msg.Uuid, 10)
	ctx := context.Background()

	if err := f.svc.MarkMessageRead(ctx, "alice", "alice_bob", id); errorx.GetCode(err) != errorx.CodeForbidden {
		t.Fatalf("sender marking own message: err = %v", err)
	}
	if err := f.svc.MarkMessageRead(ctx, "bob", "alice_carol", id); !errorx.IsNotFound(err) {
		t.Fatalf("wrong conversation: err = %v", err)
	}
	if err := f.svc.MarkMessageRead(ctx, "bob", "alice_bob", "999"); !errorx.IsNotFound(err) {
		t.Fatalf("unknown message: err = %v", err)
	}
	if err := f.svc.MarkMessageRead(ctx, "bob", "alice_bob", "abc"); errorx.GetCode(err) != errorx.CodeInvalidParam {
		t.Fatalf("malformed id: err = %v", err)
	}

	if err := f.svc.MarkMessageRead(ctx, "bob", "alice_bob", id); err != nil {
		t.Fatalf("MarkMessageRead: %v", err)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].userId != "alice" || f.notifier.sent[0].data.MessageId != id {
		t.Fatalf("notifications = %+v", f.notifier.sent)
	}
	conv, _ := f.repos.Conversation.FindByConversationId(ctx, "alice_bob")
	if conv.UnreadFor("bob") != 0 {
		t.Fatalf("unread = %d, want 0", conv.UnreadFor("bob"))
	}

	// 重复标记不再通知也不再扣减
	if err := f.svc.MarkMessageRead(ctx, "bob", "alice_bob", id); err != nil {
		t.Fatalf("repeat MarkMessageRead: %v", err)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("repeat read notified again")
	}
}
