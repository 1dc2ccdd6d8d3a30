package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// txContext is the transaction context handed to an operation body: one open
// transaction plus the wall-clock timestamp fixed at its start. Every
// timestamp default an operation writes comes from this one value, so all
// rows touched by the same transaction agree on "now".
type txContext struct {
	tx  *sqlx.Tx
	now string
}

// inTx runs fn inside a single transaction. The transaction commits only when
// fn returns nil; any error rolls the whole operation back, so an operation's
// field writes are never partially applied.
func (db *DB) inTx(ctx context.Context, fn func(tc *txContext) error) error {
	tx, err := db.BeginTxx(ctx, &db.txOpts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	tc := &txContext{tx: tx, now: nowTimestamp()}
	if err := fn(tc); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
