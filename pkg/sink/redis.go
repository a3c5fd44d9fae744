package sink

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/Goden-Gun/channel-bridge/pkg/bridge"
	"github.com/Goden-Gun/channel-bridge/pkg/envelope"
)

// Redis publishes event envelopes on "<prefix>:events:<topic>". Events
// without a topic (createdBatch) go to "<prefix>:events".
type Redis struct {
	client redis.Cmdable
	prefix string
}

func NewRedis(client redis.Cmdable, prefix string) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client nil")
	}
	if prefix == "" {
		prefix = "channel-bridge"
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Publish(ctx context.Context, ev bridge.Event) error {
	data, err := envelope.Encode(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.Channel(ev.Topic), data).Err()
}

// Channel returns the pub/sub channel for topic.
func (r *Redis) Channel(topic string) string {
	if topic == "" {
		return r.prefix + ":events"
	}
	return r.prefix + ":events:" + topic
}
