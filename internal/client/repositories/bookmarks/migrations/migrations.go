// Package migrations embeds the goose migrations that provision the hosted
// database: the bookmarks table, its row-level security policies and the
// change-notification trigger.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
