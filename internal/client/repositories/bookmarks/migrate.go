package bookmarks

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophmarks/internal/client/repositories/bookmarks/migrations"
	"github.com/pressly/goose/v3"
)

// Migrate provisions the hosted database schema. It needs a connection with
// owner privileges, not the row-scoped application role.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// MigrationStatus logs the applied state of every embedded migration.
func MigrationStatus(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return goose.StatusContext(ctx, db, ".")
}
