package realtime

import "slices"

// Presence is derived entirely from live connections: a user is online iff
// at least one of their connections is registered. There is no separate
// presence store to drift out of sync.

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userRoom(userID)]) > 0
}

// GetOnlineUsers returns the ids of every user with a live connection,
// sorted ascending.
func (h *Hub) GetOnlineUsers() []int64 {
	h.mu.RLock()
	seen := make(map[int64]struct{}, len(h.connections))
	for _, c := range h.connections {
		seen[c.userID] = struct{}{}
	}
	h.mu.RUnlock()

	users := make([]int64, 0, len(seen))
	for id := range seen {
		users = append(users, id)
	}
	slices.Sort(users)
	return users
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// RoomSize returns the member count of one conversation room.
func (h *Hub) RoomSize(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationRoom(conversationID)])
}
