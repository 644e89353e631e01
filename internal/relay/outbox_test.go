package relay

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	qEnable = `^UPDATE\s+feed_relay\s+SET\s+enabled\s*=\s*true$`
	qDrain  = `(?s)DELETE\s+FROM\s+feed_outbox\s+WHERE\s+id\s+IN\s+\(SELECT\s+id\s+FROM\s+feed_outbox\s+ORDER\s+BY\s+id\s+LIMIT\s+\$1\s+FOR\s+UPDATE\s+SKIP\s+LOCKED\)\s+RETURNING\s+id,\s*op,\s*user_id,\s*bookmark_id,\s*title,\s*url,\s*created_at`
)

var outboxColumns = []string{"id", "op", "user_id", "bookmark_id", "title", "url", "created_at"}

func newOutboxWithMock(t *testing.T) (*PostgresOutbox, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresOutbox(db), mock, db
}

func TestPostgresOutbox_Enable(t *testing.T) {
	o, mock, db := newOutboxWithMock(t)
	defer db.Close()

	mock.ExpectExec(qEnable).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, o.Enable(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOutbox_DrainHandsOverInQueueOrder(t *testing.T) {
	o, mock, db := newOutboxWithMock(t)
	defer db.Close()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(qDrain).WithArgs(10).WillReturnRows(sqlmock.NewRows(outboxColumns).
		AddRow(int64(8), "DELETE", "u1", "b-1", nil, nil, nil).
		AddRow(int64(7), "INSERT", "u1", "b-2", "Go", "https://go.dev", created))
	mock.ExpectCommit()

	var got []Change
	n, err := o.Drain(context.Background(), 10, func(_ context.Context, batch []Change) error {
		got = batch
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, got, 2)
	assert.Equal(t, int64(7), got[0].Seq)
	assert.Equal(t, models.EventInsert, got[0].Event.Type)
	assert.Equal(t, "Go", got[0].Event.Record.Title)
	assert.True(t, got[0].Event.Record.CreatedAt.Equal(created))
	assert.Equal(t, int64(8), got[1].Seq)
	assert.Equal(t, models.EventDelete, got[1].Event.Type)
	assert.Equal(t, "b-1", got[1].Event.OldID)
	assert.Equal(t, "u1", got[1].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOutbox_FailedPublishRollsBack(t *testing.T) {
	o, mock, db := newOutboxWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(qDrain).WithArgs(10).WillReturnRows(sqlmock.NewRows(outboxColumns).
		AddRow(int64(1), "DELETE", "u1", "b-1", nil, nil, nil))
	mock.ExpectRollback()

	down := errors.New("redis down")
	n, err := o.Drain(context.Background(), 10, func(context.Context, []Change) error { return down })
	require.ErrorIs(t, err, down)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOutbox_EmptyDrainSkipsCallback(t *testing.T) {
	o, mock, db := newOutboxWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(qDrain).WithArgs(10).WillReturnRows(sqlmock.NewRows(outboxColumns))
	mock.ExpectCommit()

	called := false
	n, err := o.Drain(context.Background(), 10, func(context.Context, []Change) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, called)
}

func TestPostgresOutbox_UnknownOpRollsBack(t *testing.T) {
	o, mock, db := newOutboxWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(qDrain).WithArgs(10).WillReturnRows(sqlmock.NewRows(outboxColumns).
		AddRow(int64(1), "TRUNCATE", "u1", "b-1", nil, nil, nil))
	mock.ExpectRollback()

	_, err := o.Drain(context.Background(), 10, func(context.Context, []Change) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox row 1")
}
