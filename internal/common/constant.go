package common

// BookmarksResource is the name of the backend table and of the change-feed
// resource carrying bookmark events.
const BookmarksResource = "bookmarks"

// Keys of the locally persisted session metadata.
const (
	MetadataAccessToken  = "access_token"
	MetadataRefreshToken = "refresh_token"
)

// Length limits of a bookmark, in characters. The hosted table enforces the
// same limits with CHECK constraints.
const (
	MaxTitleLength = 500
	MaxURLLength   = 2048
)
