package relay

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/dbx"
)

// Change is one queued row change and the identity that owns the row.
type Change struct {
	Seq    int64
	UserID string
	Event  models.ChangeEvent
}

// Outbox is the queue of changes waiting to be published.
type Outbox interface {
	// Enable switches queueing on.
	Enable(ctx context.Context) error
	// Drain removes up to limit changes and hands them to fn in queue order.
	// The removal is undone when fn fails. It returns how many were handed
	// over.
	Drain(ctx context.Context, limit int, fn func(ctx context.Context, batch []Change) error) (int, error)
}

type PostgresOutbox struct {
	db *sql.DB
}

func NewPostgresOutbox(db *sql.DB) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

func (o *PostgresOutbox) Enable(ctx context.Context) error {
	if _, err := o.db.ExecContext(ctx, `UPDATE feed_relay SET enabled = true`); err != nil {
		return fmt.Errorf("enable outbox: %w", err)
	}
	return nil
}

func (o *PostgresOutbox) Drain(ctx context.Context, limit int, fn func(ctx context.Context, batch []Change) error) (int, error) {
	var n int
	err := dbx.WithTx(ctx, o.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		batch, err := takeBatch(ctx, tx, limit)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(ctx, batch); err != nil {
			return err
		}
		n = len(batch)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func takeBatch(ctx context.Context, tx dbx.DBTX, limit int) ([]Change, error) {
	rows, err := tx.QueryContext(ctx, `
		DELETE FROM feed_outbox
		WHERE id IN (SELECT id FROM feed_outbox ORDER BY id LIMIT $1 FOR UPDATE SKIP LOCKED)
		RETURNING id, op, user_id, bookmark_id, title, url, created_at`, limit)
	if err != nil {
		return nil, fmt.Errorf("drain outbox: %w", err)
	}
	defer rows.Close()

	var batch []Change
	for rows.Next() {
		var (
			c          Change
			op, id     string
			title, url sql.NullString
			created    sql.NullTime
		)
		if err := rows.Scan(&c.Seq, &op, &c.UserID, &id, &title, &url, &created); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}

		t, err := models.ParseEventType(op)
		if err != nil {
			return nil, fmt.Errorf("outbox row %d: %w", c.Seq, err)
		}
		c.Event.Type = t
		if t == models.EventDelete {
			c.Event.OldID = id
		} else {
			c.Event.Record = models.Bookmark{ID: id, Title: title.String, URL: url.String, CreatedAt: created.Time}
		}
		batch = append(batch, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("drain outbox: %w", err)
	}

	// RETURNING does not keep the subquery's order.
	slices.SortFunc(batch, func(a, b Change) int { return cmp.Compare(a.Seq, b.Seq) })
	return batch, nil
}
