package redis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"dispatch/internal/realtime"
)

const pubsubPrefix = "rt:"

type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// PubSubChannel publishes realtime events over Redis so every server
// instance can deliver them to its own subscribers.
type PubSubChannel struct {
	client *redis.Client
	logger logrus.FieldLogger
}

// NewPubSubChannel creates a new PubSubChannel.
func NewPubSubChannel(client *redis.Client, logger logrus.FieldLogger) *PubSubChannel {
	return &PubSubChannel{client: client, logger: logger}
}

// Publish implements realtime.Channel.
func (p *PubSubChannel) Publish(ctx context.Context, target realtime.Target, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope{Event: event, Payload: body})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, pubsubPrefix+string(target), data).Err()
}

// Relay forwards every event published on Redis into hub until ctx is done.
func (p *PubSubChannel) Relay(ctx context.Context, hub *realtime.Hub) error {
	sub := p.client.PSubscribe(ctx, pubsubPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				p.logger.WithError(err).WithField("channel", msg.Channel).Warn("dropping malformed realtime message")
				continue
			}
			target := realtime.Target(strings.TrimPrefix(msg.Channel, pubsubPrefix))
			_ = hub.Publish(ctx, target, env.Event, env.Payload)
		}
	}
}

var _ realtime.Channel = (*PubSubChannel)(nil)
