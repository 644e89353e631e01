// Package bookmarks reads and writes bookmark rows in the hosted PostgreSQL
// database. Every statement runs in a transaction that carries the caller's
// verified token claims and drops to the configured database role, so the
// table's row-level security policies decide what each identity can see and
// change.
package bookmarks

import (
	"context"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
)

// Claims identify the caller to the row-level security policies.
type Claims struct {
	Subject string
	Email   string
}

type Repository interface {
	List(ctx context.Context, c Claims) ([]models.Bookmark, error)
	Insert(ctx context.Context, c Claims, title, url string) (*models.Bookmark, error)
	Delete(ctx context.Context, c Claims, id string) error
}
