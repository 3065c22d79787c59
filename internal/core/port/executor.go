package port

import "context"

// QueryExecutor runs a single validated SQL statement against the database.
// The readOnly flag selects the transaction access mode; it reflects the
// policy snapshot under which the statement was admitted.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string, readOnly bool) ([]map[string]any, error)
}
