// Package hub tracks live client connections and their room
// subscriptions. It is the delivery side of the notification core: the
// dispatcher resolves recipients elsewhere and uses the hub only to
// find live connections and push frames to them.
package hub

import (
	"fmt"
	"log"
	"sync"

	"github.com/supchat-io/notifyhub/internal/stats"
)

// Authorizer decides whether a user may subscribe to a room. Access
// rights are enforced here, at subscribe time; fan-out later trusts
// the membership index.
type Authorizer interface {
	CanJoin(userId, roomId string) bool
}

type AuthorizerFunc func(userId, roomId string) bool

func (f AuthorizerFunc) CanJoin(userId, roomId string) bool {
	return f(userId, roomId)
}

type Hub struct {
	log   *log.Logger
	stats stats.StatsProvider
	auth  Authorizer

	mu        sync.RWMutex
	conns     map[string]*Conn
	userConns map[string]map[string]*Conn
	rooms     map[string]map[string]*Conn
}

func NewHub(logger *log.Logger, su stats.StatsProvider, auth Authorizer) *Hub {
	su.RegisterMetric(stats.ActiveConnections)
	su.RegisterMetric(stats.PushesDropped)

	return &Hub{
		log:       logger,
		stats:     su,
		auth:      auth,
		conns:     make(map[string]*Conn),
		userConns: make(map[string]map[string]*Conn),
		rooms:     make(map[string]map[string]*Conn),
	}
}

func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c.id] = c
	if h.userConns[c.userId] == nil {
		h.userConns[c.userId] = make(map[string]*Conn)
	}
	h.userConns[c.userId][c.id] = c

	h.stats.Incr(stats.ActiveConnections)
	h.log.Printf("registered connection %q for user %q", c.id, c.userId)
}

// Unregister removes the connection from the registry and from every
// room it joined, and stops its pumps. Safe to call more than once.
func (h *Hub) Unregister(connId string) {
	h.mu.Lock()
	c, ok := h.conns[connId]
	if !ok {
		h.mu.Unlock()
		return
	}

	delete(h.conns, connId)
	if userConns, ok := h.userConns[c.userId]; ok {
		delete(userConns, connId)
		if len(userConns) == 0 {
			delete(h.userConns, c.userId)
		}
	}
	for roomId, members := range h.rooms {
		if _, ok := members[connId]; ok {
			delete(members, connId)
			if len(members) == 0 {
				delete(h.rooms, roomId)
			}
		}
	}
	h.mu.Unlock()

	c.shutdown()
	h.stats.Decr(stats.ActiveConnections)
	h.log.Printf("unregistered connection %q for user %q", connId, c.userId)
}

// ConnectionsFor returns a snapshot of the user's live connections.
func (h *Hub) ConnectionsFor(userId string) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := make([]*Conn, 0, len(h.userConns[userId]))
	for _, c := range h.userConns[userId] {
		conns = append(conns, c)
	}
	return conns
}

func (h *Hub) Join(c *Conn, roomId string) error {
	if h.auth != nil && !h.auth.CanJoin(c.userId, roomId) {
		return fmt.Errorf("user %q may not join room %q", c.userId, roomId)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c.id]; !ok {
		return fmt.Errorf("connection %q is not registered", c.id)
	}
	if h.rooms[roomId] == nil {
		h.rooms[roomId] = make(map[string]*Conn)
	}
	h.rooms[roomId][c.id] = c

	return nil
}

func (h *Hub) Leave(connId, roomId string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomId]; ok {
		delete(members, connId)
		if len(members) == 0 {
			delete(h.rooms, roomId)
		}
	}
}

// MembersOf returns a snapshot of the connection ids subscribed to the
// room. Joins after the snapshot are not seen by an in-flight fan-out;
// a concurrent leave costs at most one wasted push attempt.
func (h *Hub) MembersOf(roomId string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]string, 0, len(h.rooms[roomId]))
	for id := range h.rooms[roomId] {
		members = append(members, id)
	}
	return members
}

func (h *Hub) InRoom(connId, roomId string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.rooms[roomId][connId]
	return ok
}

// Send queues a frame on the connection's outbound queue. A missing or
// dead connection is cleaned up lazily and reported as false, never as
// an error: push delivery is best-effort and clients recover missed
// frames through the reconciliation API.
func (h *Hub) Send(connId string, msg *ServerMessage) bool {
	h.mu.RLock()
	c, ok := h.conns[connId]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	if c.stopped() {
		h.Unregister(connId)
		return false
	}

	if !c.queueMessage(msg) {
		h.stats.Incr(stats.PushesDropped)
		return false
	}

	return true
}
