package port

import "context"

// Decision is the externally observable outcome of one gated query.
type Decision string

const (
	DecisionExecuted         Decision = "executed"
	DecisionBlocked          Decision = "blocked"
	DecisionApprovalRequired Decision = "approval_required"
)

// AuditEntry is a single auditable query event. SQL must already be
// sanitized — raw query text never reaches the audit store.
type AuditEntry struct {
	Tool         string
	SQL          string
	Decision     Decision
	Reason       string
	RowsReturned int
	DurationMS   int64
	Err          error
}

// QueryAuditor records query audit events.
type QueryAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}
