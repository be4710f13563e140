package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendQueueSize  = 256
)

// Conn is one live client connection. A user may hold any number of
// them at once (one per device). Frames queued on send are drained by
// a single writer goroutine, so delivery per connection is FIFO.
type Conn struct {
	id     string
	userId string
	ws     *websocket.Conn
	hub    *Hub
	log    *log.Logger
	send   chan *ServerMessage
	stop   chan struct{}
	once   sync.Once
}

func NewConn(id, userId string, ws *websocket.Conn, h *Hub, logger *log.Logger) *Conn {
	return &Conn{
		id:     id,
		userId: userId,
		ws:     ws,
		hub:    h,
		log:    logger,
		send:   make(chan *ServerMessage, sendQueueSize),
		stop:   make(chan struct{}),
	}
}

func (c *Conn) Id() string     { return c.id }
func (c *Conn) UserId() string { return c.userId }

// Outbound exposes the send queue for draining in tests and for the
// writer pump.
func (c *Conn) Outbound() <-chan *ServerMessage { return c.send }

func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		c.log.Printf("write pump exiting for connection %q", c.id)
	}()

	for {
		select {
		case msg := <-c.send:
			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.writeMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Conn) ReadPump() {
	defer func() {
		c.ws.Close()
		c.hub.Unregister(c.id)
		c.log.Printf("read pump exiting for connection %q", c.id)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		c.handleMessage(&msg)
	}
}

func (c *Conn) handleMessage(msg *ClientMessage) {
	switch {
	case msg.Join != nil:
		if err := c.hub.Join(c, msg.Join.RoomId); err != nil {
			c.log.Println("join:", err)
			c.queueMessage(ErrForbidden(msg.Id))
			return
		}
		c.queueMessage(NoErrOK(msg.Id, map[string]any{"room_id": msg.Join.RoomId}))
	case msg.Leave != nil:
		c.hub.Leave(c.id, msg.Leave.RoomId)
		c.queueMessage(NoErrOK(msg.Id, map[string]any{"room_id": msg.Leave.RoomId}))
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (c *Conn) queueMessage(msg *ServerMessage) bool {
	select {
	case <-c.stop:
		return false
	default:
	}

	select {
	case c.send <- msg:
	default:
		c.log.Printf("send queue full for connection %q, dropping message", c.id)
		return false
	}

	return true
}

func (c *Conn) writeMessage(msgType int, msg []byte) bool {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.ws.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Conn) shutdown() {
	c.once.Do(func() {
		close(c.stop)
	})
}

func (c *Conn) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}
