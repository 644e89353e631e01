// Package client contains the gateway between the client core and the
// hosted backend.
//
// # Overview
//
// The package provides:
//  1. The Client interface the core consumes: session resolution and
//     transitions, sign-in/sign-out, bookmark list/insert/delete and
//     change-feed subscription.
//  2. Backend, the production implementation. It composes the auth session
//     layer, the row-level-secured PostgreSQL repository and a feed
//     subscriber, and scopes every request to the signed-in identity.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) for the
//     SQLite file that keeps the session across restarts.
//
// # Error Handling
//
// Errors are the sentinels from internal/common (ErrUnavailable,
// ErrUnauthorized, ErrValidation, ErrAuthInitiation, ErrNoSession), wrapped
// with context; match them with errors.Is.
//
// All operations accept context.Context and honor cancellation.
package client
