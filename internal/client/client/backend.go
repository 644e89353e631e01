package client

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophmarks/internal/client/auth"
	"github.com/dmitrijs2005/gophmarks/internal/client/feed"
	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/client/repositories/bookmarks"
	"github.com/dmitrijs2005/gophmarks/internal/logging"
)

// Authenticator is the session layer Backend builds on; *auth.Authenticator
// implements it.
type Authenticator interface {
	ResolveSession(ctx context.Context) (models.Session, error)
	Transitions() <-chan models.Session
	SignIn(ctx context.Context, provider, redirectTo string) error
	SignOut(ctx context.Context) error
	AccessClaims(ctx context.Context) (*auth.Claims, error)
	Close() error
}

var (
	_ Client        = (*Backend)(nil)
	_ Authenticator = (*auth.Authenticator)(nil)
)

type Backend struct {
	auth   Authenticator
	repo   bookmarks.Repository
	feed   feed.Subscriber
	logger logging.Logger
	closer []func() error
}

// NewBackend wires the adapters together. closers run on Close after the
// authenticator is stopped, in order.
func NewBackend(a Authenticator, repo bookmarks.Repository, sub feed.Subscriber, logger logging.Logger, closers ...func() error) *Backend {
	return &Backend{auth: a, repo: repo, feed: sub, logger: logger, closer: closers}
}

func (b *Backend) ResolveSession(ctx context.Context) (models.Session, error) {
	return b.auth.ResolveSession(ctx)
}

func (b *Backend) Transitions() <-chan models.Session {
	return b.auth.Transitions()
}

func (b *Backend) SignIn(ctx context.Context, provider, redirectTo string) error {
	return b.auth.SignIn(ctx, provider, redirectTo)
}

func (b *Backend) SignOut(ctx context.Context) error {
	return b.auth.SignOut(ctx)
}

func (b *Backend) claims(ctx context.Context) (bookmarks.Claims, error) {
	c, err := b.auth.AccessClaims(ctx)
	if err != nil {
		return bookmarks.Claims{}, err
	}
	return bookmarks.Claims{Subject: c.Subject, Email: c.Email}, nil
}

func (b *Backend) List(ctx context.Context) ([]models.Bookmark, error) {
	c, err := b.claims(ctx)
	if err != nil {
		return nil, err
	}
	return b.repo.List(ctx, c)
}

func (b *Backend) Insert(ctx context.Context, title, url string) (*models.Bookmark, error) {
	c, err := b.claims(ctx)
	if err != nil {
		return nil, err
	}
	return b.repo.Insert(ctx, c, title, url)
}

func (b *Backend) Delete(ctx context.Context, id string) error {
	c, err := b.claims(ctx)
	if err != nil {
		return err
	}
	return b.repo.Delete(ctx, c, id)
}

// Subscribe opens a feed subscription on resource for the signed-in identity.
func (b *Backend) Subscribe(ctx context.Context, resource string, filter models.EventFilter) (feed.Subscription, error) {
	c, err := b.claims(ctx)
	if err != nil {
		return nil, err
	}
	return b.feed.Subscribe(ctx, c.Subject, resource, filter)
}

func (b *Backend) Close() error {
	errs := []error{b.auth.Close()}
	for _, fn := range b.closer {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}
