package store

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Execer runs writes. Services pass the *sqlx.Tx from db.TxRunner so a
// mutation and its audit entry commit together.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Getter reads one row. Row-locking reads such as SessionStore.GetForUpdate
// take it from the caller's transaction.
type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

// Selecter reads many rows into a slice.
type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// DB is the pool-level handle each store keeps for reads outside a transaction.
type DB interface {
	Execer
	Getter
	Selecter
}

var (
	_ DB     = (*sqlx.DB)(nil)
	_ Execer = (*sqlx.Tx)(nil)
	_ Getter = (*sqlx.Tx)(nil)
)
