package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Server to client event types.
const (
	EventConnected     = "connected"
	EventPong          = "pong"
	EventNotification  = "notification"
	EventLikeUpdate    = "like_update"
	EventCommentUpdate = "comment_update"
	EventUserStatus    = "user_status"
	EventNewMessage    = "new_message"
	EventTyping        = "typing"
)

// Client to server event types.
const (
	ClientPing              = "ping"
	ClientJoinConversation  = "join_conversation"
	ClientLeaveConversation = "leave_conversation"
	ClientTyping            = "typing"
)

// Presence states carried by user_status events.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Event is one server-to-client frame. On the wire it is a flat JSON object:
// the type tag sits next to the payload fields, not around them.
type Event struct {
	Type   string
	Fields map[string]any
}

// MarshalJSON flattens the payload fields and the type tag into one object.
func (e Event) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		obj[k] = v
	}
	obj["type"] = e.Type
	return json.Marshal(obj)
}

// EventFromJSON rebuilds an Event from its wire form. Used when relaying
// frames received over the cross-process bridge.
func EventFromJSON(data []byte) (Event, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	eventType, ok := obj["type"].(string)
	if !ok || eventType == "" {
		return Event{}, fmt.Errorf("decode event: missing type tag")
	}
	delete(obj, "type")
	return Event{Type: eventType, Fields: obj}, nil
}

// ClientEvent is one client-to-server frame. The zero values double as
// "field absent"; conversation ids are opaque strings.
type ClientEvent struct {
	Type           string `json:"type"`
	Token          string `json:"token,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	IsTyping       bool   `json:"is_typing,omitempty"`
}

// Connected greets a freshly registered connection with its session id.
func Connected(sid string, userID int64, ts time.Time) Event {
	return Event{Type: EventConnected, Fields: map[string]any{
		"sid":       sid,
		"user_id":   userID,
		"timestamp": ts,
	}}
}

// Pong answers a client ping.
func Pong(ts time.Time) Event {
	return Event{Type: EventPong, Fields: map[string]any{
		"timestamp": ts,
	}}
}

// Notification wraps an application payload for one user's connections.
func Notification(payload map[string]any, ts time.Time) Event {
	return payloadEvent(EventNotification, payload, ts)
}

// LikeUpdate announces a changed like counter to every connection.
func LikeUpdate(postID, likeCount, userID int64, ts time.Time) Event {
	return Event{Type: EventLikeUpdate, Fields: map[string]any{
		"post_id":    postID,
		"like_count": likeCount,
		"user_id":    userID,
		"timestamp":  ts,
	}}
}

// CommentUpdate announces a changed comment counter to every connection.
// The comment body is optional and omitted when nil.
func CommentUpdate(postID, commentCount int64, comment map[string]any, ts time.Time) Event {
	fields := map[string]any{
		"post_id":       postID,
		"comment_count": commentCount,
		"timestamp":     ts,
	}
	if comment != nil {
		fields["comment"] = comment
	}
	return Event{Type: EventCommentUpdate, Fields: fields}
}

// UserStatus reports a presence flip for one user.
func UserStatus(userID int64, status string, ts time.Time) Event {
	return Event{Type: EventUserStatus, Fields: map[string]any{
		"user_id":   userID,
		"status":    status,
		"timestamp": ts,
	}}
}

// NewMessage wraps an application payload for one conversation room.
func NewMessage(payload map[string]any, ts time.Time) Event {
	return payloadEvent(EventNewMessage, payload, ts)
}

// TypingEvent relays a typing indicator to the rest of a conversation.
// It carries no timestamp; the indicator is only meaningful live.
func TypingEvent(userID int64, userName string, isTyping bool, conversationID string) Event {
	return Event{Type: EventTyping, Fields: map[string]any{
		"user_id":         userID,
		"user_name":       userName,
		"is_typing":       isTyping,
		"conversation_id": conversationID,
	}}
}

func payloadEvent(eventType string, payload map[string]any, ts time.Time) Event {
	fields := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		fields[k] = v
	}
	fields["timestamp"] = ts
	return Event{Type: eventType, Fields: fields}
}
