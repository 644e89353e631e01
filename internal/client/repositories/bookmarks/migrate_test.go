package bookmarks

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophmarks/internal/client/repositories/bookmarks/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	names, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	body, err := fs.ReadFile(migrations.Migrations, names[0])
	require.NoError(t, err)

	sql := string(body)
	assert.True(t, strings.Contains(sql, "-- +goose Up"))
	assert.True(t, strings.Contains(sql, "-- +goose Down"))
	assert.Contains(t, sql, "ENABLE ROW LEVEL SECURITY")
	assert.Contains(t, sql, "pg_notify")
}

func TestMigrations_LimitsAndCompactNotify(t *testing.T) {
	body, err := fs.ReadFile(migrations.Migrations, "00002_bookmark_limits.sql")
	require.NoError(t, err)

	sql := string(body)
	up := sql[:strings.Index(sql, "-- +goose Down")]
	assert.Contains(t, up, "char_length(title) <= 500")
	assert.Contains(t, up, "char_length(url) <= 2048")
	assert.Contains(t, up, "octet_length(payload::text) > 7900")
	assert.Contains(t, up, "'partial', true")
	assert.Contains(t, up, "lower(owner::text)")
}

func TestMigrations_FeedOutboxIsGatedAndPrivate(t *testing.T) {
	body, err := fs.ReadFile(migrations.Migrations, "00003_feed_outbox.sql")
	require.NoError(t, err)

	sql := string(body)
	up := sql[:strings.Index(sql, "-- +goose Down")]
	assert.Contains(t, up, "REVOKE ALL ON feed_relay, feed_outbox FROM PUBLIC")
	assert.Contains(t, up, "SELECT enabled FROM feed_relay")
	assert.Contains(t, up, "pg_notify('feed_outbox', '')")
	assert.Contains(t, sql[strings.Index(sql, "-- +goose Down"):], "DROP TABLE IF EXISTS feed_outbox")
}
