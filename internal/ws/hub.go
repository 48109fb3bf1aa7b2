package ws

import (
	"context"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sleb/uno/internal/game"
)

// sendBuffer is the per-client outbound event queue depth. A client that
// cannot keep up is dropped rather than allowed to stall the match.
const sendBuffer = 64

// client is one live websocket session for a seated player.
type client struct {
	playerID uuid.UUID
	username string
	conn     *websocket.Conn
	send     chan game.GameEvent
	done     chan struct{}
	once     sync.Once
}

func newClient(playerID uuid.UUID, username string, conn *websocket.Conn) *client {
	return &client{
		playerID: playerID,
		username: username,
		conn:     conn,
		send:     make(chan game.GameEvent, sendBuffer),
		done:     make(chan struct{}),
	}
}

// close shuts the session down once; safe from any goroutine.
func (c *client) close(code websocket.StatusCode, reason string) {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close(code, reason)
	})
}

// enqueue hands an event to the write pump without blocking the match lock.
func (c *client) enqueue(ev game.GameEvent) bool {
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// writePump serializes queued events onto the connection.
func (c *client) writePump(ctx context.Context) {
	for {
		select {
		case ev := <-c.send:
			if err := wsjson.Write(ctx, c.conn, ev); err != nil {
				logrus.Debugf("write to %s failed: %v", c.playerID, err)
				c.close(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// hub fans match events out to the sessions attached to one match.
type hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
}

func newHub() *hub {
	return &hub{clients: make(map[uuid.UUID]*client)}
}

// attach registers a session, displacing any previous session for the same
// player. Returns the displaced session, if any, for the caller to close.
func (h *hub) attach(c *client) *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.clients[c.playerID]
	h.clients[c.playerID] = c
	return prev
}

// detach removes a session if it is still the registered one for its player.
func (h *hub) detach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.playerID] == c {
		delete(h.clients, c.playerID)
	}
}

// broadcast queues an event for every attached session. Sessions with a full
// queue are disconnected; they can reconnect and resync.
func (h *hub) broadcast(ev game.GameEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !c.enqueue(ev) {
			logrus.Warnf("dropping slow client %s", c.playerID)
			go c.close(websocket.StatusPolicyViolation, "client too slow")
		}
	}
}

// sendTo queues an event for one player's session, if attached.
func (h *hub) sendTo(playerID uuid.UUID, ev game.GameEvent) {
	h.mu.RLock()
	c := h.clients[playerID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	if !c.enqueue(ev) {
		logrus.Warnf("dropping slow client %s", playerID)
		go c.close(websocket.StatusPolicyViolation, "client too slow")
	}
}

// closeAll disconnects every session, used when a match ends.
func (h *hub) closeAll(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close(websocket.StatusNormalClosure, reason)
		delete(h.clients, id)
	}
}
