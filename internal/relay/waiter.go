package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// OutboxChannel is the NOTIFY channel the outbox trigger signals on.
const OutboxChannel = "feed_outbox"

// Waiter blocks until the outbox may hold new rows.
type Waiter interface {
	Wait(ctx context.Context) error
}

// listenConn is the part of *pgx.Conn PostgresWaiter needs.
type listenConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// PostgresWaiter LISTENs on OutboxChannel over its own connection. The
// connection is opened on first use and reopened after a failure.
type PostgresWaiter struct {
	dsn     string
	connect func(ctx context.Context, dsn string) (listenConn, error)

	mu   sync.Mutex
	conn listenConn
}

func NewPostgresWaiter(dsn string) *PostgresWaiter {
	return &PostgresWaiter{
		dsn: dsn,
		connect: func(ctx context.Context, dsn string) (listenConn, error) {
			conn, err := pgx.Connect(ctx, dsn)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
	}
}

func (w *PostgresWaiter) Wait(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		conn, err := w.connect(ctx, w.dsn)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{OutboxChannel}.Sanitize()); err != nil {
			_ = conn.Close(context.Background())
			return fmt.Errorf("listen: %w", err)
		}
		w.conn = conn
	}

	if _, err := w.conn.WaitForNotification(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.closeLocked()
		return err
	}
	return nil
}

func (w *PostgresWaiter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *PostgresWaiter) closeLocked() error {
	if w.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := w.conn.Close(ctx)
	w.conn = nil
	return err
}
