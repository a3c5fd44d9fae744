package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBlocklist stores revoked token JTIs with a TTL.
type RedisBlocklist struct {
	client redis.Cmdable
	prefix string
}

func NewRedisBlocklist(client redis.Cmdable, prefix string) *RedisBlocklist {
	if client == nil {
		return nil
	}
	if prefix == "" {
		prefix = DefaultRevokePrefix
	}
	return &RedisBlocklist{client: client, prefix: prefix}
}

func (b *RedisBlocklist) Block(ctx context.Context, jti string, ttl time.Duration) error {
	if b == nil || jti == "" {
		return errors.New("blocklist not configured")
	}
	return b.client.Set(ctx, b.key(jti), "1", ttl).Err()
}

func (b *RedisBlocklist) IsBlocked(ctx context.Context, jti string) (bool, error) {
	if b == nil || jti == "" {
		return false, nil
	}
	res, err := b.client.Exists(ctx, b.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return res > 0, nil
}

func (b *RedisBlocklist) key(jti string) string {
	return b.prefix + jti
}
