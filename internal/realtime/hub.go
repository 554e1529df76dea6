// Package realtime is the WebSocket notification hub: an authenticated
// connection registry with room-based fan-out, presence tracking and an
// optional Redis pub/sub bridge that relays events to sibling processes.
package realtime

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/observability"
)

func userRoom(userID int64) string {
	return "user_" + strconv.FormatInt(userID, 10)
}

func conversationRoom(conversationID string) string {
	return "conversation_" + conversationID
}

// Hub owns every live connection and the room index. All membership
// mutations happen under one write lock, atomically with respect to fan-out
// reads, so a connection is either fully registered or not present at all.
type Hub struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	clock   func() time.Time
	bridge  *Bridge

	mu          sync.RWMutex
	connections map[string]*Connection
	rooms       map[string]map[string]*Connection
}

// Option adjusts hub construction.
type Option func(*Hub)

// WithClock substitutes the time source.
func WithClock(clock func() time.Time) Option {
	return func(h *Hub) { h.clock = clock }
}

// NewHub builds an empty hub. Without a bridge attached, fan-out reaches
// only this process's connections.
func NewHub(logger *zap.Logger, metrics *observability.Metrics, opts ...Option) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		logger:      logger,
		metrics:     metrics,
		clock:       time.Now,
		connections: make(map[string]*Connection),
		rooms:       make(map[string]map[string]*Connection),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AttachBridge enables cross-process fan-out. Call before serving traffic.
func (h *Hub) AttachBridge(b *Bridge) {
	h.bridge = b
}

// Register admits an authenticated connection: it joins its own user room,
// receives the connected greeting first, and flips the user's presence to
// online when this is their first connection.
func (h *Hub) Register(c *Connection) {
	room := userRoom(c.userID)

	h.mu.Lock()
	if _, ok := h.connections[c.id]; ok {
		h.mu.Unlock()
		return
	}
	// The greeting is enqueued before the connection becomes visible to
	// fan-out, so the client always sees connected first.
	h.deliverLocked(c, Connected(c.id, c.userID, h.now()))
	h.connections[c.id] = c
	h.joinLocked(c, room)
	first := len(h.rooms[room]) == 1
	c.setState(StateJoined)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
	}
	h.logger.Info("websocket connected",
		zap.String("sid", c.id),
		zap.Int64("user_id", c.userID))

	if first {
		h.emitStatus(c.userID, StatusOnline)
	}
}

// Unregister removes a connection from every room and closes its send
// channel. The user's last connection going away broadcasts offline.
// Safe to call more than once.
func (h *Hub) Unregister(c *Connection) {
	room := userRoom(c.userID)

	h.mu.Lock()
	if _, ok := h.connections[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connections, c.id)
	for joined := range c.joinedRooms {
		h.leaveLocked(c, joined)
	}
	last := h.rooms[room] == nil
	close(c.send)
	c.setState(StateDisconnected)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSConnections.Dec()
	}
	h.logger.Info("websocket disconnected",
		zap.String("sid", c.id),
		zap.Int64("user_id", c.userID))

	if last {
		h.emitStatus(c.userID, StatusOffline)
	}
}

// JoinConversation adds the connection to a conversation room. Joining a
// room twice is a no-op, as is joining after disconnect.
func (h *Hub) JoinConversation(c *Connection, conversationID string) {
	room := conversationRoom(conversationID)

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c.id]; !ok {
		return
	}
	h.joinLocked(c, room)
}

// LeaveConversation removes the connection from a conversation room.
// Leaving a room it never joined is a no-op.
func (h *Hub) LeaveConversation(c *Connection, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, conversationRoom(conversationID))
}

// SendNotification delivers to the user's connections only. Nobody online
// is a silent no-op; persisting the notification is the caller's concern,
// not the hub's.
func (h *Hub) SendNotification(userID int64, payload map[string]any) {
	room := userRoom(userID)
	event := Notification(payload, h.now())
	h.toRoom(room, event)
	h.republish(scopeRoom, room, event)
}

// BroadcastLikeUpdate announces a like counter change to every connection;
// any feed viewer may be displaying that counter.
func (h *Hub) BroadcastLikeUpdate(postID, likeCount, userID int64) {
	event := LikeUpdate(postID, likeCount, userID, h.now())
	h.broadcast(event)
	h.republish(scopeGlobal, "", event)
}

// BroadcastCommentUpdate announces a comment counter change to every
// connection. comment may be nil.
func (h *Hub) BroadcastCommentUpdate(postID, commentCount int64, comment map[string]any) {
	event := CommentUpdate(postID, commentCount, comment, h.now())
	h.broadcast(event)
	h.republish(scopeGlobal, "", event)
}

// SendMessage delivers to the members of one conversation room.
func (h *Hub) SendMessage(conversationID string, payload map[string]any) {
	room := conversationRoom(conversationID)
	event := NewMessage(payload, h.now())
	h.toRoom(room, event)
	h.republish(scopeRoom, room, event)
}

// Typing relays a typing indicator to the rest of the sender's conversation
// room. Senders outside the room are ignored.
func (h *Hub) Typing(sender *Connection, conversationID string, isTyping bool) {
	room := conversationRoom(conversationID)

	h.mu.RLock()
	_, member := h.rooms[room][sender.id]
	h.mu.RUnlock()
	if !member {
		return
	}

	event := TypingEvent(sender.userID, sender.userName, isTyping, conversationID)
	h.toRoomExcept(room, sender.id, event)
	h.republish(scopeRoom, room, event)
}

// ApplyRemote delivers an event received over the bridge to local
// connections, without republishing it.
func (h *Hub) ApplyRemote(scope, room string, event Event) {
	switch scope {
	case scopeGlobal:
		h.broadcast(event)
	case scopeRoom:
		h.toRoom(room, event)
	}
}

func (h *Hub) emitStatus(userID int64, status string) {
	event := UserStatus(userID, status, h.now())
	h.broadcast(event)
	h.republish(scopeGlobal, "", event)
}

func (h *Hub) pong(c *Connection) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[c.id]; !ok {
		return
	}
	h.deliverLocked(c, Pong(h.now()))
}

func (h *Hub) broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.connections {
		h.deliverLocked(c, event)
	}
}

func (h *Hub) toRoom(room string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[room] {
		h.deliverLocked(c, event)
	}
}

func (h *Hub) toRoomExcept(room, exceptID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sid, c := range h.rooms[room] {
		if sid == exceptID {
			continue
		}
		h.deliverLocked(c, event)
	}
}

// deliverLocked enqueues and accounts one delivery. Callers hold at least
// the read lock, which keeps the send channel open for the duration.
func (h *Hub) deliverLocked(c *Connection, event Event) {
	if c.deliver(event) {
		if h.metrics != nil {
			h.metrics.WSEventsDelivered.WithLabelValues(event.Type).Inc()
		}
		return
	}
	if h.metrics != nil {
		h.metrics.WSEventsDropped.Inc()
	}
	h.logger.Debug("send buffer full, dropping event",
		zap.String("sid", c.id),
		zap.Int64("user_id", c.userID),
		zap.String("event", event.Type))
}

func (h *Hub) joinLocked(c *Connection, room string) {
	members := h.rooms[room]
	if members == nil {
		members = make(map[string]*Connection)
		h.rooms[room] = members
	}
	members[c.id] = c
	c.joinedRooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(c *Connection, room string) {
	delete(c.joinedRooms, room)
	if members := h.rooms[room]; members != nil {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) republish(scope, room string, event Event) {
	if h.bridge == nil {
		return
	}
	h.bridge.Publish(context.Background(), scope, room, event)
}

func (h *Hub) now() time.Time {
	return h.clock().UTC()
}
