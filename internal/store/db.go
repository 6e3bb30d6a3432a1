package store

import (
	"context"
	"database/sql"
)

// DBTX is the SQL execution surface the session, question, attempt, and
// distractor stores are written against. Both *sql.DB and *sql.Tx satisfy
// it, so the same queries run standalone or inside RunInTransaction via a
// store's WithTx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
