package storex

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestWithTransactionCommits(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tm := NewSQLTxManager(db)
	err := tm.WithTransaction(context.Background(), func(txCtx context.Context) error {
		_, isTx := ExecutorFrom(txCtx, db).(*sqlx.Tx)
		assert.True(t, isTx)
		_, err := ExecutorFrom(txCtx, db).ExecContext(txCtx, "INSERT INTO t VALUES (1)")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := NewSQLTxManager(db).WithTransaction(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutorFromWithoutTx(t *testing.T) {
	db, _ := newMockDB(t)
	assert.Same(t, db, ExecutorFrom(context.Background(), db))
}

func TestPageRequest(t *testing.T) {
	assert.Equal(t, PageRequest{Page: 1, PageSize: DefaultPageSize}, PageRequest{}.Normalize())
	assert.Equal(t, MaxPageSize, PageRequest{PageSize: 1000}.Normalize().PageSize)
	assert.Equal(t, 20, PageRequest{Page: 3, PageSize: 10}.Offset())

	p := NewPaginated[int](nil, 1, 10, 21)
	assert.Equal(t, 3, p.Page.Pages)
	assert.True(t, p.HasNext())
	assert.True(t, p.Empty)
	assert.NotNil(t, p.Data)
}
