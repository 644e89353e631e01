// Package session persists the signed-in user's tokens in the local
// database so a session survives process restarts.
package session

import "context"

// Tokens is the persisted credential pair issued by the auth endpoint.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Repository stores at most one set of tokens. Load returns (nil, nil) when
// nothing is stored.
type Repository interface {
	Load(ctx context.Context) (*Tokens, error)
	Save(ctx context.Context, t Tokens) error
	Clear(ctx context.Context) error
}
