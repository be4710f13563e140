package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/supchat-io/notifyhub/internal/testutil"
)

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Conn{
			send: make(chan *ServerMessage, 1),
			stop: make(chan struct{}),
			log:  testutil.TestLogger(t),
		}

		res := c.queueMessage(&ServerMessage{})
		assert.True(t, res, "expected queueMessage to return true when channel is not full")

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg, "expected a message to be queued")
		default:
			t.Error("expected a message to be queued, but none was")
		}
	})

	t.Run("channel full", func(t *testing.T) {
		c := &Conn{
			send: make(chan *ServerMessage, 1),
			stop: make(chan struct{}),
			log:  testutil.TestLogger(t),
		}

		c.send <- &ServerMessage{}
		res := c.queueMessage(&ServerMessage{})
		assert.False(t, res, "expected queueMessage to return false when channel is full")
	})

	t.Run("stopped connection", func(t *testing.T) {
		c := NewConn("conn-1", "u1", nil, nil, testutil.TestLogger(t))
		c.shutdown()

		res := c.queueMessage(&ServerMessage{})
		assert.False(t, res, "expected queueMessage to return false after shutdown")
	})
}

func Test_handleMessage(t *testing.T) {
	newConn := func(t *testing.T, h *Hub) *Conn {
		c := NewConn("conn-1", "u1", nil, h, testutil.TestLogger(t))
		h.Register(c)
		return c
	}

	t.Run("join", func(t *testing.T) {
		h := newTestHub(t, nil)
		c := newConn(t, h)

		c.handleMessage(&ClientMessage{
			BaseMessage: BaseMessage{Id: 1, Timestamp: Now()},
			Join:        &Join{RoomId: "channel:general"},
		})

		assert.True(t, h.InRoom("conn-1", "channel:general"), "expected connection to join the room")
		msg := <-c.Outbound()
		assert.Equal(t, 200, msg.Response.ResponseCode, "expected OK response")
		assert.Equal(t, "channel:general", msg.Response.Data["room_id"], "expected room id echoed back")
	})

	t.Run("join rejected", func(t *testing.T) {
		h := newTestHub(t, AuthorizerFunc(func(string, string) bool { return false }))
		c := newConn(t, h)

		c.handleMessage(&ClientMessage{
			BaseMessage: BaseMessage{Id: 2, Timestamp: Now()},
			Join:        &Join{RoomId: "channel:secret"},
		})

		assert.False(t, h.InRoom("conn-1", "channel:secret"), "expected join to be rejected")
		msg := <-c.Outbound()
		assert.Equal(t, 403, msg.Response.ResponseCode, "expected forbidden response")
	})

	t.Run("leave", func(t *testing.T) {
		h := newTestHub(t, nil)
		c := newConn(t, h)
		assert.NoError(t, h.Join(c, "channel:general"))

		c.handleMessage(&ClientMessage{
			BaseMessage: BaseMessage{Id: 3, Timestamp: Now()},
			Leave:       &Leave{RoomId: "channel:general"},
		})

		assert.False(t, h.InRoom("conn-1", "channel:general"), "expected connection to leave the room")
		msg := <-c.Outbound()
		assert.Equal(t, 200, msg.Response.ResponseCode, "expected OK response")
	})

	t.Run("empty message", func(t *testing.T) {
		h := newTestHub(t, nil)
		c := newConn(t, h)

		c.handleMessage(&ClientMessage{BaseMessage: BaseMessage{Id: 4, Timestamp: Now()}})

		msg := <-c.Outbound()
		assert.Equal(t, 400, msg.Response.ResponseCode, "expected bad request response")
	})
}

func TestErrInvalidMessage(t *testing.T) {
	msg := ErrInvalidMessage(0)
	assert.Equal(t, 0, msg.Id, "expected Id to stay zero")
	assert.Equal(t, 400, msg.Response.ResponseCode, "expected bad request code")
	assert.WithinDuration(t, Now(), msg.Timestamp, time.Second, "expected recent timestamp")

	withId := ErrInvalidMessage(42)
	assert.Equal(t, 42, withId.Id, "expected Id to be set when positive")
}
