package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophmarks/internal/client/feed"
	"github.com/dmitrijs2005/gophmarks/internal/common"
	"github.com/dmitrijs2005/gophmarks/internal/logging"
)

// Options tunes a Relay. Zero values select the defaults.
type Options struct {
	// BatchSize is the most changes published per transaction (default 100).
	BatchSize int
	// PollInterval bounds how long the relay sleeps without a wake-up
	// (default 5s).
	PollInterval time.Duration
}

type Relay struct {
	outbox Outbox
	pub    Publisher
	waiter Waiter
	logger logging.Logger

	batch int
	poll  time.Duration
}

func New(outbox Outbox, pub Publisher, waiter Waiter, logger logging.Logger, opts Options) *Relay {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Relay{
		outbox: outbox,
		pub:    pub,
		waiter: waiter,
		logger: logger,
		batch:  opts.BatchSize,
		poll:   opts.PollInterval,
	}
}

// Run enables the outbox and publishes queued changes until ctx is done.
// Failures are logged and retried on the next wake-up or poll.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.outbox.Enable(ctx); err != nil {
		return err
	}
	r.logger.Info(ctx, "relay started", "batch", r.batch, "poll", r.poll)

	for {
		if err := r.drain(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error(ctx, "publishing outbox failed", "err", err)
		}

		wctx, cancel := context.WithTimeout(ctx, r.poll)
		err := r.waiter.Wait(wctx)
		cancel()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			r.logger.Warn(ctx, "waiting for outbox", "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.poll):
			}
		}
	}
}

// drain publishes batches until the outbox runs dry.
func (r *Relay) drain(ctx context.Context) error {
	for {
		n, err := r.outbox.Drain(ctx, r.batch, r.publish)
		if err != nil {
			return err
		}
		if n > 0 {
			r.logger.Debug(ctx, "batch published", "count", n)
		}
		if n < r.batch {
			return nil
		}
	}
}

func (r *Relay) publish(ctx context.Context, batch []Change) error {
	for _, c := range batch {
		lctx := logging.ContextWith(ctx, "seq", c.Seq, "user", c.UserID)

		payload, err := feed.Encode(common.BookmarksResource, c.Event)
		if err != nil {
			return fmt.Errorf("encode change %d: %w", c.Seq, err)
		}
		channel := feed.ChannelName(common.BookmarksResource, c.UserID)
		if err := r.pub.Publish(ctx, channel, payload); err != nil {
			r.logger.Warn(lctx, "publish failed", "channel", channel, "err", err)
			return err
		}
		r.logger.Debug(lctx, "change relayed", "channel", channel, "type", c.Event.Type)
	}
	return nil
}
