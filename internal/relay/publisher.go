package relay

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophmarks/internal/common"
	"github.com/redis/go-redis/v9"
)

// Publisher delivers one encoded payload on a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// redisPublisher is the part of *redis.Client RedisPublisher needs.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisPublisher struct {
	rdb redisPublisher
}

func NewRedisPublisher(rdb redisPublisher) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: redis publish: %v", common.ErrUnavailable, err)
	}
	return nil
}
