package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverPreservesEnqueueOrder(t *testing.T) {
	c := newConnection(nil, 8, nil)

	ts := time.Now().UTC()
	require.True(t, c.deliver(Pong(ts)))
	require.True(t, c.deliver(UserStatus(1, StatusOnline, ts)))
	require.True(t, c.deliver(LikeUpdate(1, 2, 3, ts)))

	assert.Equal(t, EventPong, (<-c.send).Type)
	assert.Equal(t, EventUserStatus, (<-c.send).Type)
	assert.Equal(t, EventLikeUpdate, (<-c.send).Type)
}

func TestDeliverDropsWhenBufferFull(t *testing.T) {
	c := newConnection(nil, 1, nil)

	ts := time.Now().UTC()
	assert.True(t, c.deliver(Pong(ts)))
	assert.False(t, c.deliver(Pong(ts)), "full buffer drops instead of blocking")
}

func TestConnectionStateTransitions(t *testing.T) {
	c := newConnection(nil, 1, nil)
	assert.Equal(t, StateConnecting, c.State())

	c.authenticate(&Claims{Name: "Alice"}, 7, time.Now().UTC())
	assert.Equal(t, StateAuthenticated, c.State())
	assert.EqualValues(t, 7, c.UserID())
	assert.NotEmpty(t, c.ID())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "joined", StateJoined.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "unknown", State(99).String())
}
