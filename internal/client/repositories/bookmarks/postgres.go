package bookmarks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/common"
	"github.com/dmitrijs2005/gophmarks/internal/dbx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresRepository struct {
	db   *sql.DB
	role string
}

// NewPostgresRepository binds the repository to db. role is the database
// role the policies are written for ("authenticated" by default).
func NewPostgresRepository(db *sql.DB, role string) *PostgresRepository {
	return &PostgresRepository{db: db, role: role}
}

// Open returns a pool for dsn through the pgx database/sql driver.
// Connections are made lazily, so an unreachable backend surfaces as
// ErrUnavailable on the first request rather than here.
func Open(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Ping checks connectivity with the error mapping used by the repository.
func Ping(ctx context.Context, db *sql.DB) error {
	return mapError(db.PingContext(ctx))
}

// asUser runs fn in a transaction scoped to the claims' subject.
func (r *PostgresRepository) asUser(ctx context.Context, c Claims, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if c.Subject == "" {
		return common.ErrNoSession
	}

	claims, err := json.Marshal(map[string]string{"sub": c.Subject, "email": c.Email, "role": r.role})
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`SELECT set_config('request.jwt.claims', $1, true), set_config('request.jwt.claim.sub', $2, true)`,
			string(claims), c.Subject); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `SET LOCAL ROLE `+pgx.Identifier{r.role}.Sanitize()); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
	return mapError(err)
}

// List returns every bookmark the policies expose to c, newest first.
func (r *PostgresRepository) List(ctx context.Context, c Claims) ([]models.Bookmark, error) {
	var result []models.Bookmark

	err := r.asUser(ctx, c, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, title, url, created_at FROM bookmarks ORDER BY created_at DESC`)
		if err != nil {
			return fmt.Errorf("failed to select bookmarks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var b models.Bookmark
			if err := rows.Scan(&b.ID, &b.Title, &b.URL, &b.CreatedAt); err != nil {
				return err
			}
			result = append(result, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Insert creates one bookmark owned by c. The database assigns the id and
// the creation timestamp.
func (r *PostgresRepository) Insert(ctx context.Context, c Claims, title, url string) (*models.Bookmark, error) {
	b := &models.Bookmark{Title: title, URL: url}

	err := r.asUser(ctx, c, func(ctx context.Context, tx dbx.DBTX) error {
		return tx.QueryRowContext(ctx,
			`INSERT INTO bookmarks (user_id, title, url) VALUES ($1, $2, $3) RETURNING id, created_at`,
			c.Subject, title, url,
		).Scan(&b.ID, &b.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes the bookmark with the given id. Rows hidden by the policies
// are simply not matched, so deleting someone else's bookmark is a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, c Claims, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: malformed bookmark id %q", common.ErrValidation, id)
	}

	return r.asUser(ctx, c, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = $1`, id)
		return err
	})
}
