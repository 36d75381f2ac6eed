package sqlstore

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/user-hobbies/internal/repository"
)

// Compile-time check: DB must satisfy the Transactor contract.
var _ repository.Transactor = (*DB)(nil)

// WithinTx runs fn with stores bound to a single transaction.
//
// The transaction commits when fn returns nil. It rolls back when fn returns an
// error or panics; a panic is re-raised after the rollback.
//
// Everything inside fn must go through the stores it receives. On an in-memory
// database the pool has one connection, and the transaction is holding it.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.Stores) error) (err error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return mapError("sqlstore: beginning transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			db.rollback(tx)
			panic(p)
		}
		if err != nil {
			db.rollback(tx)
		}
	}()

	if err = fn(ctx, db.storesFor(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return mapError("sqlstore: committing transaction", err)
	}
	return nil
}

func (db *DB) rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil {
		db.logger.Error("transaction rollback failed", slog.String("error", err.Error()))
	}
}

func (db *DB) storesFor(tx *sqlx.Tx) repository.Stores {
	return repository.Stores{
		Users:    newUserStore(tx, db.dialect),
		Accounts: NewAccountStore(tx),
	}
}
