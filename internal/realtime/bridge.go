package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Fan-out scopes carried in bridge envelopes.
const (
	scopeGlobal = "global"
	scopeRoom   = "room"
)

const defaultBridgeChannel = "loopboard:events"

// Bridge republishes hub emits on a shared Redis channel and replays what
// sibling processes published. Each process tags its envelopes with a random
// origin id and skips its own on receive, since the local hub already
// delivered them. Without a bridge, delivery is correct only within one
// process; across processes the guarantee is eventual delivery, not order.
type Bridge struct {
	client    *redis.Client
	channel   string
	origin    string
	opTimeout time.Duration
	logger    *zap.Logger
	warnOnce  sync.Once
}

// NewBridge wires a bridge onto an existing Redis client.
func NewBridge(client *redis.Client, channel string, opTimeout time.Duration, logger *zap.Logger) *Bridge {
	if channel == "" {
		channel = defaultBridgeChannel
	}
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		client:    client,
		channel:   channel,
		origin:    uuid.NewString(),
		opTimeout: opTimeout,
		logger:    logger,
	}
}

type bridgeEnvelope struct {
	Origin string          `json:"origin"`
	Scope  string          `json:"scope"`
	Room   string          `json:"room,omitempty"`
	Event  json.RawMessage `json:"event"`
}

// Publish sends one emit to sibling processes. Publish failures never
// propagate to the caller; local delivery already happened.
func (b *Bridge) Publish(ctx context.Context, scope, room string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Debug("event bridge encode failed", zap.Error(err))
		return
	}
	payload, err := json.Marshal(bridgeEnvelope{
		Origin: b.origin,
		Scope:  scope,
		Room:   room,
		Event:  data,
	})
	if err != nil {
		b.logger.Debug("event bridge encode failed", zap.Error(err))
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()
	if err := b.client.Publish(opCtx, b.channel, payload).Err(); err != nil {
		b.warnOnce.Do(func() {
			b.logger.Warn("event bridge publish failed, cross-process fan-out degraded",
				zap.String("channel", b.channel),
				zap.Error(err))
		})
		b.logger.Debug("event bridge publish failed", zap.Error(err))
	}
}

// Run subscribes and replays sibling emits into apply until the context is
// canceled. The go-redis subscription reconnects on its own after transient
// failures.
func (b *Bridge) Run(ctx context.Context, apply func(scope, room string, event Event)) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close() // nolint:errcheck // shutdown path

	b.logger.Info("event bridge subscribed",
		zap.String("channel", b.channel),
		zap.String("origin", b.origin))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handleMessage([]byte(msg.Payload), apply)
		}
	}
}

func (b *Bridge) handleMessage(payload []byte, apply func(scope, room string, event Event)) {
	var env bridgeEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		b.logger.Debug("event bridge discarding malformed envelope", zap.Error(err))
		return
	}
	if env.Origin == b.origin {
		return
	}
	event, err := EventFromJSON(env.Event)
	if err != nil {
		b.logger.Debug("event bridge discarding malformed event", zap.Error(err))
		return
	}
	apply(env.Scope, env.Room, event)
}
