package client

import (
	"context"

	"github.com/dmitrijs2005/gophmarks/internal/client/feed"
	"github.com/dmitrijs2005/gophmarks/internal/client/models"
)

type Client interface {
	ResolveSession(ctx context.Context) (models.Session, error)
	Transitions() <-chan models.Session
	SignIn(ctx context.Context, provider, redirectTo string) error
	SignOut(ctx context.Context) error

	List(ctx context.Context) ([]models.Bookmark, error)
	Insert(ctx context.Context, title, url string) (*models.Bookmark, error)
	Delete(ctx context.Context, id string) error
	Subscribe(ctx context.Context, resource string, filter models.EventFilter) (feed.Subscription, error)

	Close() error
}
