package realtime

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// State tracks a connection through its lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateJoined
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

const (
	writeWait      = 10 * time.Second
	maxFrameSize   = 4096
	defaultSendBuf = 64
)

// Connection is one live WebSocket session. Fan-out never blocks on it: the
// hub enqueues into the buffered send channel and a full buffer drops the
// event for this connection only. The hub owns joinedRooms; it is read and
// written only under the hub lock.
type Connection struct {
	id              string
	userID          int64
	userName        string
	authenticatedAt time.Time

	sock    *websocket.Conn
	send    chan Event
	inbound *rate.Limiter
	state   atomic.Int32

	joinedRooms map[string]struct{}
}

func newConnection(sock *websocket.Conn, sendBuffer int, inbound *rate.Limiter) *Connection {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuf
	}
	c := &Connection{
		id:          uuid.NewString(),
		sock:        sock,
		send:        make(chan Event, sendBuffer),
		inbound:     inbound,
		joinedRooms: make(map[string]struct{}),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

// authenticate binds the verified identity. Must happen before Register.
func (c *Connection) authenticate(claims *Claims, userID int64, now time.Time) {
	c.userID = userID
	c.userName = claims.Name
	c.authenticatedAt = now
	c.setState(StateAuthenticated)
}

// ID returns the session id handed to the client in the connected event.
func (c *Connection) ID() string { return c.id }

// UserID returns the authenticated user.
func (c *Connection) UserID() int64 { return c.userID }

// State returns the current lifecycle state.
func (c *Connection) State() State { return State(c.state.Load()) }

func (c *Connection) setState(s State) { c.state.Store(int32(s)) }

// deliver enqueues one event, preserving per-connection FIFO order. It
// reports false when the buffer is full; the caller accounts the drop.
// Only the hub calls this, while holding at least its read lock, so the
// channel cannot be closed concurrently.
func (c *Connection) deliver(event Event) bool {
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// writePump drains the send channel onto the socket. It exits when the hub
// closes the channel on unregister or when a write fails, and closes the
// socket either way so the read pump unblocks.
func (c *Connection) writePump(hub *Hub, logger *zap.Logger) {
	defer c.sock.Close() // nolint:errcheck // transport teardown

	for event := range c.send {
		_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.sock.WriteJSON(event); err != nil {
			logger.Debug("websocket write failed",
				zap.String("sid", c.id),
				zap.Int64("user_id", c.userID),
				zap.Error(err))
			hub.Unregister(c)
			return
		}
	}
}

// readPump consumes client frames until the transport closes. Disconnect
// detection rides on the read error; there is no hub-owned idle timer.
func (c *Connection) readPump(hub *Hub, logger *zap.Logger) {
	defer hub.Unregister(c)

	c.sock.SetReadLimit(maxFrameSize)
	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			return
		}
		if c.inbound != nil && !c.inbound.Allow() {
			logger.Debug("inbound event throttled",
				zap.String("sid", c.id),
				zap.Int64("user_id", c.userID))
			continue
		}

		var msg ClientEvent
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("discarding malformed client frame",
				zap.String("sid", c.id),
				zap.Error(err))
			continue
		}
		c.handleClientEvent(hub, logger, msg)
	}
}

func (c *Connection) handleClientEvent(hub *Hub, logger *zap.Logger, msg ClientEvent) {
	switch msg.Type {
	case ClientPing:
		hub.pong(c)
	case ClientJoinConversation:
		if msg.ConversationID != "" {
			hub.JoinConversation(c, msg.ConversationID)
		}
	case ClientLeaveConversation:
		if msg.ConversationID != "" {
			hub.LeaveConversation(c, msg.ConversationID)
		}
	case ClientTyping:
		if msg.ConversationID != "" {
			hub.Typing(c, msg.ConversationID, msg.IsTyping)
		}
	default:
		logger.Debug("unknown client event",
			zap.String("sid", c.id),
			zap.String("event", msg.Type))
	}
}
