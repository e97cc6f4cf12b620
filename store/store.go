// Package store defines the relational store collaborator used by the
// evolver and the loader, and implements it for SQL Server.
//
// Every statement that mutates the store runs inside an explicit
// transaction. Store.Exec wraps a single statement in its own transaction;
// WithTx scopes several statements (e.g. IDENTITY_INSERT bracketing around an
// INSERT) to one connection and guarantees the transaction is finished and
// the connection released on every exit path.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugr-lab/target-mssql/catalog"
)

// Store is a connection to the target relational store.
type Store interface {
	// SchemaNames lists the namespaces (schemas) of the current database,
	// with their original casing.
	SchemaNames(ctx context.Context) ([]string, error)

	// TableColumns introspects a table's columns in ordinal order.
	// Returns (nil, nil) if the table doesn't exist (not an error).
	TableColumns(ctx context.Context, name catalog.TableName) ([]catalog.Column, error)

	// Exec runs one statement in its own committed transaction.
	Exec(ctx context.Context, query string, args ...any) error

	// Begin starts a transaction on a dedicated connection.
	Begin(ctx context.Context) (Tx, error)

	// Close releases the underlying connection pool.
	Close() error
}

// Tx is a transaction scope on a single connection.
// Commit and Rollback are idempotent: once the transaction is finished,
// further calls are no-ops.
type Tx interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Commit() error
	Rollback() error
}

// TransactionState represents the lifecycle stage of a transaction.
type TransactionState string

const (
	// TransactionActive indicates an open transaction awaiting statements.
	TransactionActive TransactionState = "active"

	// TransactionCommitted indicates a successfully completed transaction.
	TransactionCommitted TransactionState = "committed"

	// TransactionAborted indicates a rolled-back transaction.
	TransactionAborted TransactionState = "aborted"
)

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back when it returns an error or panics.
func WithTx(ctx context.Context, s Store, fn func(tx Tx) error) (err error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(tx)
}
