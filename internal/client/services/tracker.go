package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/common"
)

// transition applies a session change completely before returning: for a
// present session a full reload followed by a fresh subscription, for an
// absent one feed teardown followed by clearing the list. Writer only.
func (s *Store) transition(ctx context.Context, sess models.Session) {
	s.closeSubscription(ctx)
	s.gen++

	if !sess.Present() {
		s.logger.Info(ctx, "session absent")
		s.mutate(func() {
			s.session = models.AbsentSession()
			s.items = nil
		})
		return
	}

	s.logger.Info(ctx, "session present", "user", sess.UserID())
	s.mutate(func() {
		// Never show one identity's bookmarks under another's session, even
		// if the reload below fails.
		if s.session.UserID() != sess.UserID() {
			s.items = nil
		}
		s.session = sess
	})

	items, err := s.loader.Load(ctx)
	s.applySnapshot(ctx, items, err)
	s.subscribe(ctx)
}

// subscribe replaces the current subscription with a new one. Writer only.
func (s *Store) subscribe(ctx context.Context) {
	s.closeSubscription(ctx)

	sctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sub, err := s.client.Subscribe(sctx, common.BookmarksResource, models.AllEvents)
	if err != nil {
		s.logger.Error(ctx, "subscribe failed", "err", err)
		s.mutate(func() { s.setMessage(userMessage("live updates", err)) })
		return
	}

	s.sub, s.events = sub, sub.Events()
	s.logger.Debug(ctx, "subscribed", "subscription", sub.ID())
}

// closeSubscription tears the subscription down synchronously. Only the
// writer reads s.events, so nothing from the old subscription can be applied
// afterwards.
func (s *Store) closeSubscription(ctx context.Context) {
	if s.sub == nil {
		return
	}
	if err := s.sub.Close(); err != nil {
		s.logger.Warn(ctx, "closing subscription", "subscription", s.sub.ID(), "err", err)
	}
	s.sub, s.events = nil, nil
}

// feedLost handles a subscription that ended on its own. There is no
// automatic resubscribe; a successful reload re-establishes the feed.
func (s *Store) feedLost(ctx context.Context) {
	cause := s.sub.Err()
	s.logger.Warn(ctx, "change feed ended", "subscription", s.sub.ID(), "err", cause)
	s.closeSubscription(ctx)

	if cause == nil {
		cause = fmt.Errorf("%w: feed closed", common.ErrUnavailable)
	}
	s.mutate(func() { s.setMessage(userMessage("live updates", cause) + " (use reload)") })
}
