package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx is an open database transaction. *sql.Tx satisfies it.
type Tx interface {
	DBTX
	Commit() error
	Rollback() error
}

// Transactor owns the transaction boundary of a workflow: begin on entry,
// commit on success, rollback on error or panic.
type Transactor struct {
	begin func(ctx context.Context) (Tx, error)
}

func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{
		begin: func(ctx context.Context) (Tx, error) {
			return db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		},
	}
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(tx DBTX) error) (err error) {
	tx, err := t.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			rollback(tx)
			panic(rec)
		}
	}()

	if err := fn(tx); err != nil {
		rollback(tx)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func rollback(tx Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logrus.WithError(err).Warn("Failed to rollback transaction")
	}
}

func pick(tx, db DBTX) DBTX {
	if tx != nil {
		return tx
	}
	return db
}

func isDuplicateEntryError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func nullableStringValue(v *string) interface{} {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return strings.TrimSpace(*v)
}

func nullableTimeValue(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableUint64Value(v *uint64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
