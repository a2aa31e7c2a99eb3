package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// executor is the subset of *sql.DB / *sql.Tx used by repositories, so
// every query method works identically inside and outside a transaction.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// WithTx runs fn inside a database transaction carried on the context.
// Repository methods pick the transaction up transparently, so a service
// can compose several repository calls into one atomic unit. Nested
// calls reuse the surrounding transaction. MySQL deadlocks and lock
// wait timeouts are mapped to ErrTxContention so callers can retry.
func WithTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return mapContention(err)
	}
	if err := tx.Commit(); err != nil {
		return mapContention(err)
	}
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// exec returns the transaction bound to ctx when present, otherwise the
// plain database handle.
func exec(ctx context.Context, db *sql.DB) executor {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

// mapContention converts MySQL deadlock (1213) and lock wait timeout
// (1205) errors into ErrTxContention; other errors pass through.
func mapContention(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == 1213 || me.Number == 1205) {
		return ErrTxContention
	}
	return err
}

// isDuplicate reports whether err is a MySQL duplicate key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(strings.ToLower(err.Error()), "1062")
}
