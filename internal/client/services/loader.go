package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophmarks/internal/client/client"
	"github.com/dmitrijs2005/gophmarks/internal/client/models"
)

// Loader performs the full read of the signed-in identity's bookmarks.
type Loader struct {
	client  client.Client
	timeout time.Duration
}

func NewLoader(c client.Client, timeout time.Duration) *Loader {
	return &Loader{client: c, timeout: timeout}
}

func (l *Loader) Load(ctx context.Context) ([]models.Bookmark, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.client.List(ctx)
}

// applySnapshot replaces the whole list, or keeps it and reports err.
// Writer only.
func (s *Store) applySnapshot(ctx context.Context, items []models.Bookmark, err error) {
	if err != nil {
		s.logger.Error(ctx, "snapshot load failed", "err", err)
		s.mutate(func() { s.setMessage(userMessage("load", err)) })
		return
	}

	s.logger.Debug(ctx, "snapshot loaded", "count", len(items))
	s.mutate(func() {
		s.items = items
		s.setMessage("")
	})
}

// refetch reloads the snapshot in the background, for feed events that
// announced a change without its contents. Writer only.
func (s *Store) refetch(ctx context.Context) {
	gen := s.gen
	s.logger.Debug(ctx, "partial change event, reloading", "gen", gen)
	go func() {
		items, err := s.loader.Load(ctx)
		s.post(ctx, snapshotResult{gen: gen, items: items, err: err})
	}()
}
