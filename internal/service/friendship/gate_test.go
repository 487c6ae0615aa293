package friendship

import (
	"context"
	"errors"
	"testing"

	"chatkuy_server/internal/model"
	"chatkuy_server/internal/testutil"
	"chatkuy_server/pkg/enum/contact_status_enum"
)

func TestAreFriends(t *testing.T) {
	repos := testutil.NewRepositories(t)
	testutil.SeedFriends(t, repos, "alice", "bob")
	testutil.SeedFriends(t, repos, "alice", "carol")
	testutil.SeedFriends(t, repos, "a_b", "c")
	if err := repos.Contact.UpdatePairStatus(context.Background(), "alice", "carol", contact_status_enum.DELETE, contact_status_enum.BE_DELETE); err != nil {
		t.Fatalf("UpdatePairStatus: %v", err)
	}
	gate := NewGate(repos.Contact)
	ctx := context.Background()

	cases := []struct {
		a, b string
		want bool
	}{
		{"alice", "bob", true},
		{"bob", "alice", true},
		{"alice", "carol", false},
		{"carol", "alice", false},
		{"alice", "dave", false},
		{"alice", "alice", false},
		{"", "bob", false},
		// 含分隔符的 ID 即使存在好友关系也不放行
		{"a_b", "c", false},
		{"c", "a_b", false},
	}
	for _, tc := range cases {
		if got := gate.AreFriends(ctx, tc.a, tc.b); got != tc.want {
			t.Errorf("AreFriends(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

type failingContacts struct{}

func (failingContacts) FindByUserIdAndContactId(context.Context, string, string) (*model.UserContact, error) {
	return nil, errors.New("connection refused")
}
func (failingContacts) CreatePair(context.Context, string, string) error { return nil }
func (failingContacts) UpdatePairStatus(context.Context, string, string, int8, int8) error {
	return nil
}

func TestAreFriendsFailsClosed(t *testing.T) {
	gate := NewGate(failingContacts{})
	if gate.AreFriends(context.Background(), "alice", "bob") {
		t.Fatalf("lookup error must deny")
	}
}
