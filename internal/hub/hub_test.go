package hub

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/supchat-io/notifyhub/internal/stats"
	"github.com/supchat-io/notifyhub/internal/testutil"
)

func newTestHub(t *testing.T, auth Authorizer) *Hub {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(2)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	return NewHub(testutil.TestLogger(t), su, auth)
}

func TestHubRegisterUnregister(t *testing.T) {
	h := newTestHub(t, nil)

	c := NewConn("conn-1", "u1", nil, h, testutil.TestLogger(t))
	h.Register(c)

	assert.Len(t, h.ConnectionsFor("u1"), 1, "expected one connection after register")

	h.Unregister("conn-1")
	assert.Empty(t, h.ConnectionsFor("u1"), "expected no connections after unregister")

	// a second unregister is a no-op
	h.Unregister("conn-1")
}

func TestHubMultipleConnectionsPerUser(t *testing.T) {
	h := newTestHub(t, nil)

	desktop := NewConn("conn-desktop", "u1", nil, h, testutil.TestLogger(t))
	phone := NewConn("conn-phone", "u1", nil, h, testutil.TestLogger(t))
	h.Register(desktop)
	h.Register(phone)

	conns := h.ConnectionsFor("u1")
	assert.Len(t, conns, 2, "expected both devices to be registered")

	h.Unregister("conn-phone")
	conns = h.ConnectionsFor("u1")
	assert.Len(t, conns, 1, "expected one connection after phone disconnects")
	assert.Equal(t, "conn-desktop", conns[0].Id(), "expected the desktop connection to remain")
}

func TestHubJoinLeave(t *testing.T) {
	h := newTestHub(t, nil)

	c := NewConn("conn-1", "u1", nil, h, testutil.TestLogger(t))
	h.Register(c)

	assert.NoError(t, h.Join(c, "channel:general"), "expected join to succeed")
	assert.True(t, h.InRoom("conn-1", "channel:general"), "expected connection in room after join")
	assert.Equal(t, []string{"conn-1"}, h.MembersOf("channel:general"), "expected member snapshot to contain connection")

	h.Leave("conn-1", "channel:general")
	assert.False(t, h.InRoom("conn-1", "channel:general"), "expected connection out of room after leave")
	assert.Empty(t, h.MembersOf("channel:general"), "expected empty member snapshot after leave")
}

func TestHubJoinUnauthorized(t *testing.T) {
	h := newTestHub(t, AuthorizerFunc(func(userId, roomId string) bool {
		return false
	}))

	c := NewConn("conn-1", "u1", nil, h, testutil.TestLogger(t))
	h.Register(c)

	assert.Error(t, h.Join(c, "channel:secret"), "expected join to be rejected by the authorizer")
	assert.False(t, h.InRoom("conn-1", "channel:secret"), "expected connection not in room")
}

func TestHubJoinUnregisteredConnection(t *testing.T) {
	h := newTestHub(t, nil)

	c := NewConn("conn-1", "u1", nil, h, testutil.TestLogger(t))
	assert.Error(t, h.Join(c, "channel:general"), "expected join to fail for unregistered connection")
}

// Unregistering a connection must remove it from every room it joined.
func TestHubUnregisterLeavesNoRoomMembership(t *testing.T) {
	const k = 8

	h := newTestHub(t, nil)
	c := NewConn("conn-1", "u1", nil, h, testutil.TestLogger(t))
	h.Register(c)

	rooms := make([]string, 0, k)
	for i := 0; i < k; i++ {
		roomId := fmt.Sprintf("channel:room-%d", i)
		rooms = append(rooms, roomId)
		assert.NoError(t, h.Join(c, roomId))
	}

	h.Unregister("conn-1")

	for _, roomId := range rooms {
		assert.Empty(t, h.MembersOf(roomId), "expected room %q to have no members after unregister", roomId)
	}
}

func TestHubSend(t *testing.T) {
	t.Run("queues on a live connection", func(t *testing.T) {
		h := newTestHub(t, nil)
		c := NewConn("conn-1", "u1", nil, h, testutil.TestLogger(t))
		h.Register(c)

		assert.True(t, h.Send("conn-1", NoErrOK(1, nil)), "expected send to succeed")
		select {
		case msg := <-c.Outbound():
			assert.NotNil(t, msg.Response, "expected the queued frame")
		default:
			t.Error("expected a frame on the outbound queue")
		}
	})

	t.Run("missing connection", func(t *testing.T) {
		h := newTestHub(t, nil)
		assert.False(t, h.Send("nope", NoErrOK(1, nil)), "expected send to a missing connection to fail quietly")
	})

	t.Run("dead connection is lazily unregistered", func(t *testing.T) {
		h := newTestHub(t, nil)
		c := NewConn("conn-1", "u1", nil, h, testutil.TestLogger(t))
		h.Register(c)
		assert.NoError(t, h.Join(c, "channel:general"))

		c.shutdown()

		assert.False(t, h.Send("conn-1", NoErrOK(1, nil)), "expected send to a dead connection to fail")
		assert.Empty(t, h.ConnectionsFor("u1"), "expected dead connection to be unregistered")
		assert.Empty(t, h.MembersOf("channel:general"), "expected dead connection removed from rooms")
	})

	t.Run("full queue drops the frame", func(t *testing.T) {
		h := newTestHub(t, nil)
		c := NewConn("conn-1", "u1", nil, h, testutil.TestLogger(t))
		h.Register(c)

		for i := 0; i < sendQueueSize; i++ {
			c.send <- NoErrOK(i, nil)
		}

		assert.False(t, h.Send("conn-1", NoErrOK(1, nil)), "expected send to a full queue to drop")
		assert.Len(t, h.ConnectionsFor("u1"), 1, "expected a slow connection to stay registered")
	})
}
