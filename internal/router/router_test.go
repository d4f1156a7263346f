package router

import (
	"testing"

	"github.com/npezzotti/blend/internal/presence"
	"github.com/npezzotti/blend/internal/testutil"
	"github.com/npezzotti/blend/internal/types"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(t *testing.T) *Router {
	return New(testutil.TestLogger(t), presence.NewRegistry[Conn]())
}

func TestBroadcastSkipsSender(t *testing.T) {
	r := newTestRouter(t)
	alice := testutil.NewFakeConn("c1", "alice")
	bob := testutil.NewFakeConn("c2", "bob")
	carol := testutil.NewFakeConn("c3", "carol")

	r.JoinGroup(alice, "room-1")
	r.JoinGroup(bob, "room-1")
	r.JoinGroup(carol, "room-2")

	sent := r.Broadcast("room-1", &types.Event{Name: "receive-message"}, alice)

	assert.Equal(t, 1, sent)
	assert.Empty(t, alice.Events())
	assert.Equal(t, []string{"receive-message"}, bob.EventNames())
	assert.Empty(t, carol.Events(), "other rooms are not reached")

	sent = r.Broadcast("room-1", &types.Event{Name: "participants-update"}, nil)
	assert.Equal(t, 2, sent)
}

func TestBroadcastCountsDroppedEvents(t *testing.T) {
	r := newTestRouter(t)
	slow := testutil.NewFakeConn("c1", "alice")
	slow.SetFull(true)
	r.JoinGroup(slow, "room-1")

	assert.Equal(t, 0, r.Broadcast("room-1", &types.Event{Name: "receive-message"}, nil))
}

func TestLeaveAndDisconnect(t *testing.T) {
	r := newTestRouter(t)
	c := testutil.NewFakeConn("c1", "alice")
	r.Register("alice", c)
	r.JoinGroup(c, "room-1")
	r.JoinGroup(c, "room-2")

	assert.ElementsMatch(t, []string{"room-1", "room-2"}, r.Groups(c))
	assert.True(t, r.UserInGroup("room-1", "alice"))

	r.LeaveGroup(c, "room-1")
	assert.False(t, r.UserInGroup("room-1", "alice"))
	assert.Equal(t, 0, r.GroupSize("room-1"))

	r.Disconnect(c)
	assert.True(t, c.Closed())
	assert.Empty(t, r.Groups(c))
	assert.Equal(t, 0, r.GroupSize("room-2"))
	assert.False(t, r.SendToUser("alice", &types.Event{Name: "receive-invite"}))
}

func TestJoinAfterDisconnect(t *testing.T) {
	r := newTestRouter(t)
	c := testutil.NewFakeConn("c1", "alice")
	assert.True(t, r.JoinGroup(c, "room-1"))

	r.Disconnect(c)

	assert.False(t, r.JoinGroup(c, "room-1"), "a closed connection cannot rejoin")
	assert.Empty(t, r.Groups(c))
	assert.Equal(t, 0, r.GroupSize("room-1"))
}

func TestSendToUser(t *testing.T) {
	r := newTestRouter(t)
	old := testutil.NewFakeConn("c1", "bob")
	latest := testutil.NewFakeConn("c2", "bob")

	assert.False(t, r.SendToUser("bob", &types.Event{Name: "receive-invite"}))

	r.Register("bob", old)
	r.Register("bob", latest)
	assert.True(t, r.SendToUser("bob", &types.Event{Name: "receive-invite"}))

	assert.Empty(t, old.Events())
	assert.Equal(t, []string{"receive-invite"}, latest.EventNames())
}

func TestRemoveUserFromGroupAndClose(t *testing.T) {
	r := newTestRouter(t)
	a1 := testutil.NewFakeConn("c1", "alice")
	a2 := testutil.NewFakeConn("c2", "alice")
	b := testutil.NewFakeConn("c3", "bob")
	for _, c := range []Conn{a1, a2, b} {
		r.JoinGroup(c, "room-1")
	}

	r.RemoveUserFromGroup("room-1", "alice")
	assert.Equal(t, 1, r.GroupSize("room-1"))
	assert.False(t, r.UserInGroup("room-1", "alice"))

	r.CloseGroup("room-1", &types.Event{Name: "room-deleted"})
	assert.Equal(t, []string{"room-deleted"}, b.EventNames())
	assert.Empty(t, a1.Events())
	assert.Equal(t, 0, r.GroupSize("room-1"))
	assert.Empty(t, r.Groups(b))
}
