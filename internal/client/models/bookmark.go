// Package models defines the client-side view of bookmarks, sessions and
// change-feed events.
package models

import "time"

// Bookmark is a record visible to the signed-in identity. The owner is
// enforced by the backend and is not part of the client-visible fields.
type Bookmark struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
