// Package dbx runs grouped writes against the local state database. Several
// notekeeper processes may share one state file, so a transaction SQLite
// reports as busy is retried.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so a repository can be bound
// to either.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	sqliteBusy   = 5
	sqliteLocked = 6

	busyTries    = 5
	busyInterval = 20 * time.Millisecond
)

// IsBusy reports whether err is SQLite's BUSY or LOCKED result, including
// their extended codes.
func IsBusy(err error) bool {
	var coded interface{ Code() int }
	if !errors.As(err, &coded) {
		return false
	}
	switch coded.Code() & 0xff {
	case sqliteBusy, sqliteLocked:
		return true
	}
	return false
}

// WithTx runs fn inside a transaction, so keys written together change
// together. The transaction is committed when fn returns nil and rolled back
// when it returns an error or panics; panics are re-raised after the
// rollback. A busy database is retried with backoff, so fn may run more than
// once and must do all its reads through tx.
func WithTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx DBTX) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = busyInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := runTx(ctx, db, fn)
		if err != nil && !IsBusy(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(busyTries))
	return err
}

func runTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, tx)
}
