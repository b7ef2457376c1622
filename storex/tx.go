package storex

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// TxManager provides transaction support
type TxManager interface {
	// WithTransaction runs fn inside a transaction carried by txCtx. fn's
	// error rolls the transaction back.
	WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Executor is the query surface shared by *sqlx.DB and *sqlx.Tx
type Executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type txKey struct{}

// SQLTxManager implements TxManager over sqlx
type SQLTxManager struct {
	DB *sqlx.DB
}

var _ TxManager = (*SQLTxManager)(nil)

func NewSQLTxManager(db *sqlx.DB) *SQLTxManager {
	return &SQLTxManager{DB: db}
}

func (m *SQLTxManager) WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	// nested calls join the outer transaction
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.DB.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return ErrorRegistry.New(ErrTxBeginFailed).WithCause(err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return ErrorRegistry.New(ErrTxCommitFailed).WithCause(err)
	}
	return nil
}

// ExecutorFrom returns the transaction carried by ctx, or db
func ExecutorFrom(ctx context.Context, db *sqlx.DB) Executor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}
