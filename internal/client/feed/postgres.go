package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/common"
	"github.com/dmitrijs2005/gophmarks/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// listener is the part of *pgx.Conn the subscriber needs.
type listener interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// PostgresSubscriber holds one dedicated connection per subscription and
// LISTENs on the identity's channel.
type PostgresSubscriber struct {
	dsn     string
	logger  logging.Logger
	connect func(ctx context.Context, dsn string) (listener, error)
}

func NewPostgresSubscriber(dsn string, logger logging.Logger) *PostgresSubscriber {
	return &PostgresSubscriber{
		dsn:    dsn,
		logger: logger,
		connect: func(ctx context.Context, dsn string) (listener, error) {
			conn, err := pgx.Connect(ctx, dsn)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
	}
}

func (s *PostgresSubscriber) Subscribe(ctx context.Context, userID, resource string, filter models.EventFilter) (Subscription, error) {
	if userID == "" {
		return nil, common.ErrNoSession
	}

	conn, err := s.connect(ctx, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: feed connect: %v", common.ErrUnavailable, err)
	}

	channel := ChannelName(resource, userID)
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("%w: listen: %v", common.ErrUnavailable, err)
	}

	next := func(ctx context.Context) ([]byte, error) {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return nil, err
		}
		return []byte(n.Payload), nil
	}
	release := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return conn.Close(ctx)
	}

	sub := start(channel, filter, next, release, s.logger)
	s.logger.Info(ctx, "subscribed", "transport", "postgres", "channel", channel, "subscription", sub.ID())
	return sub, nil
}
