package intake

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	log "github.com/Goden-Gun/channel-bridge/pkg/logger"
)

// Redis executes commands published on a pub/sub channel.
type Redis struct {
	client  redis.UniversalClient
	channel string
	exec    Executor
}

// NewRedis subscribes to "<prefix>:commands".
func NewRedis(client redis.UniversalClient, prefix string, exec Executor) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client nil")
	}
	if prefix == "" {
		prefix = "channel-bridge"
	}
	return &Redis{client: client, channel: prefix + ":commands", exec: exec}, nil
}

func (r *Redis) Channel() string { return r.channel }

// Run blocks until ctx is done or the subscription ends.
func (r *Redis) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	log.WithField("channel", r.channel).Info("redis intake subscribed")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			_, _ = dispatch(ctx, r.exec, "redis", []byte(msg.Payload))
		}
	}
}
