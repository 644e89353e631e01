package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/common"
	"github.com/dmitrijs2005/gophmarks/internal/logging"
	"github.com/redis/go-redis/v9"
)

// pubSub is the part of *redis.PubSub the subscriber needs.
type pubSub interface {
	Receive(ctx context.Context) (interface{}, error)
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

var errChannelClosed = errors.New("redis channel closed")

// RedisSubscriber reads change payloads relayed to Redis pub/sub.
type RedisSubscriber struct {
	logger    logging.Logger
	subscribe func(ctx context.Context, channel string) pubSub
}

func NewRedisSubscriber(rdb *redis.Client, logger logging.Logger) *RedisSubscriber {
	return &RedisSubscriber{
		logger: logger,
		subscribe: func(ctx context.Context, channel string) pubSub {
			return rdb.Subscribe(ctx, channel)
		},
	}
}

// NewRedisClient builds the client used by NewRedisSubscriber.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, userID, resource string, filter models.EventFilter) (Subscription, error) {
	if userID == "" {
		return nil, common.ErrNoSession
	}

	channel := ChannelName(resource, userID)
	ps := s.subscribe(ctx, channel)

	// The first reply confirms the subscription or reports a connection error.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: redis subscribe: %v", common.ErrUnavailable, err)
	}

	messages := ps.Channel()
	next := func(ctx context.Context) ([]byte, error) {
		select {
		case msg, ok := <-messages:
			if !ok {
				return nil, errChannelClosed
			}
			return []byte(msg.Payload), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	sub := start(channel, filter, next, ps.Close, s.logger)
	s.logger.Info(ctx, "subscribed", "transport", "redis", "channel", channel, "subscription", sub.ID())
	return sub, nil
}
