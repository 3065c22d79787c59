package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Executor runs gated SQL statements inside single-statement transactions
// with a server-side timeout and a row cap on reads.
type Executor struct {
	pool         *pgxpool.Pool
	maxRows      int
	queryTimeout time.Duration
}

func NewExecutor(pool *pgxpool.Pool, maxRows int, queryTimeout time.Duration) *Executor {
	return &Executor{
		pool:         pool,
		maxRows:      maxRows,
		queryTimeout: queryTimeout,
	}
}

// Execute runs one validated statement. readOnly selects the transaction
// access mode and must reflect the policy the statement was admitted under;
// with readOnly=true PostgreSQL itself rejects any write that slipped past
// lexical classification.
func (e *Executor) Execute(ctx context.Context, sql string, readOnly bool) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	// Only bare reads can be wrapped in a LIMIT subquery; EXPLAIN and write
	// statements run as-is.
	wrappedSQL := sql
	if isWrappableRead(sql) {
		wrappedSQL = wrapWithLimit(sql, e.maxRows)
	}

	accessMode := pgx.ReadWrite
	if readOnly {
		accessMode = pgx.ReadOnly
	}

	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: accessMode})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL makes PostgreSQL cancel the statement server-side even if
	// the Go context is torn down first; it scopes to this transaction only.
	timeoutMS := e.queryTimeout.Milliseconds()
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%d'", timeoutMS)); err != nil {
		return nil, fmt.Errorf("setting statement timeout: %w", err)
	}

	rows, err := tx.Query(ctx, wrappedSQL)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}

	results, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return results, nil
}

// wrapWithLimit caps a read's result set by nesting it in a LIMIT subquery.
// The closing parenthesis sits on its own line so a trailing -- comment in
// the inner query cannot swallow the rest of the wrapper.
func wrapWithLimit(sql string, maxRows int) string {
	return fmt.Sprintf("SELECT * FROM (%s\n) AS _q LIMIT %d", stripTrailingSemicolon(sql), maxRows)
}

func isWrappableRead(sql string) bool {
	head := strings.ToUpper(strings.TrimSpace(sql))
	return strings.HasPrefix(head, "SELECT") || strings.HasPrefix(head, "WITH")
}

func stripTrailingSemicolon(sql string) string {
	return strings.TrimSuffix(strings.TrimSpace(sql), ";")
}
