package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/guillermoBallester/causeway/internal/core/domain"
	"github.com/guillermoBallester/causeway/internal/core/port"
	"github.com/guillermoBallester/causeway/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- mocks ---

type mockExecutor struct {
	executeCalled bool
	lastSQL       string
	lastReadOnly  bool
	result        []map[string]any
	err           error
}

func (m *mockExecutor) Execute(_ context.Context, sql string, readOnly bool) ([]map[string]any, error) {
	m.executeCalled = true
	m.lastSQL = sql
	m.lastReadOnly = readOnly
	return m.result, m.err
}

type recordingAuditor struct {
	entries []port.AuditEntry
}

func (a *recordingAuditor) Record(_ context.Context, entry port.AuditEntry) {
	a.entries = append(a.entries, entry)
}

func (a *recordingAuditor) Close() error { return nil }

// sequenceResolver returns a different policy snapshot on each call,
// simulating a flag toggled mid-flight.
type sequenceResolver struct {
	policies []domain.PolicyContext
	calls    int
}

func (r *sequenceResolver) Resolve() domain.PolicyContext {
	p := r.policies[min(r.calls, len(r.policies)-1)]
	r.calls++
	return p
}

func newService(resolver port.PolicyResolver, exec port.QueryExecutor, auditor port.QueryAuditor, masks map[string]domain.MaskType) *QueryService {
	return NewQueryService(resolver, domain.NewLexicalValidator(), exec, domain.NewSanitizer(), auditor, testLogger(), masks, nil, nil)
}

func defaultResolver() port.PolicyResolver {
	return policy.StaticResolver{Policy: domain.DefaultPolicy()}
}

// --- tests ---

func TestQueryService_ValidSelect(t *testing.T) {
	exec := &mockExecutor{
		result: []map[string]any{{"id": 1, "name": "alice"}},
	}
	svc := newService(defaultResolver(), exec, &recordingAuditor{}, nil)

	rows, err := svc.Execute(context.Background(), "SELECT id, name FROM users", false)
	require.NoError(t, err)
	assert.True(t, exec.executeCalled)
	assert.Equal(t, "SELECT id, name FROM users", exec.lastSQL)
	assert.True(t, exec.lastReadOnly, "safe reads run in read-only transactions")
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0]["name"])
}

func TestQueryService_BlocksDropUnderDefaultPolicy(t *testing.T) {
	exec := &mockExecutor{}
	auditor := &recordingAuditor{}
	svc := newService(defaultResolver(), exec, auditor, nil)

	_, err := svc.Execute(context.Background(), "DROP TABLE users", false)
	require.Error(t, err)
	assert.False(t, exec.executeCalled, "executor must not run for rejected queries")

	var vErr *VerdictError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Verdict.Error, "DROP")
	assert.NotEmpty(t, vErr.Verdict.Suggestion)

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, port.DecisionBlocked, auditor.entries[0].Decision)
}

func TestQueryService_BlocksMultipleStatements(t *testing.T) {
	exec := &mockExecutor{}
	svc := newService(defaultResolver(), exec, &recordingAuditor{}, nil)

	_, err := svc.Execute(context.Background(), "SELECT * FROM customers; DROP TABLE orders;", false)
	require.Error(t, err)
	assert.False(t, exec.executeCalled)
	assert.Contains(t, err.Error(), "multiple statements")
}

func TestQueryService_BlocksFileOperation(t *testing.T) {
	exec := &mockExecutor{}
	svc := newService(policy.StaticResolver{Policy: domain.PolicyContext{ReadOnly: false}}, exec, &recordingAuditor{}, nil)

	_, err := svc.Execute(context.Background(), "SELECT * FROM customers INTO OUTFILE '/tmp/data.txt'", false)
	require.Error(t, err)
	assert.False(t, exec.executeCalled)
	assert.Contains(t, err.Error(), "File operations")
}

func TestQueryService_WriteModeAllowsUpdate(t *testing.T) {
	exec := &mockExecutor{}
	svc := newService(policy.StaticResolver{Policy: domain.PolicyContext{ReadOnly: false}}, exec, &recordingAuditor{}, nil)

	_, err := svc.Execute(context.Background(), "UPDATE customers SET name = 'Test' WHERE id = 1", false)
	require.NoError(t, err)
	assert.True(t, exec.executeCalled)
	assert.False(t, exec.lastReadOnly, "admitted writes need a read-write transaction")
}

func TestQueryService_OverrideRequiresConfirmation(t *testing.T) {
	exec := &mockExecutor{}
	auditor := &recordingAuditor{}
	svc := newService(policy.StaticResolver{Policy: domain.PolicyContext{ReadOnly: true, AdminOverride: true}}, exec, auditor, nil)

	_, err := svc.Execute(context.Background(), "DELETE FROM orders WHERE id = 1", false)
	require.Error(t, err)

	var aErr *ApprovalError
	require.ErrorAs(t, err, &aErr)
	assert.Equal(t, "DELETE", aErr.Keyword)
	assert.False(t, exec.executeCalled)

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, port.DecisionApprovalRequired, auditor.entries[0].Decision)
}

func TestQueryService_OverrideWithConfirmationExecutes(t *testing.T) {
	exec := &mockExecutor{}
	auditor := &recordingAuditor{}
	svc := newService(policy.StaticResolver{Policy: domain.PolicyContext{ReadOnly: true, AdminOverride: true}}, exec, auditor, nil)

	_, err := svc.Execute(context.Background(), "DELETE FROM orders WHERE id = 1", true)
	require.NoError(t, err)
	assert.True(t, exec.executeCalled)
	assert.False(t, exec.lastReadOnly)

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, port.DecisionExecuted, auditor.entries[0].Decision)
}

func TestQueryService_RevalidatesBeforeExecution(t *testing.T) {
	// The override is revoked between the first validation and execution;
	// the second validation must catch it.
	resolver := &sequenceResolver{policies: []domain.PolicyContext{
		{ReadOnly: true, AdminOverride: true},
		{ReadOnly: true, AdminOverride: false},
	}}
	exec := &mockExecutor{}
	auditor := &recordingAuditor{}
	svc := newService(resolver, exec, auditor, nil)

	_, err := svc.Execute(context.Background(), "DELETE FROM orders WHERE id = 1", true)
	require.Error(t, err)
	assert.False(t, exec.executeCalled)

	var vErr *VerdictError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Verdict.Error, "DELETE")
	assert.GreaterOrEqual(t, resolver.calls, 2, "policy must be resolved fresh for the pre-execution check")

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, port.DecisionBlocked, auditor.entries[0].Decision)
}

func TestQueryService_AuditReceivesSanitizedSQL(t *testing.T) {
	exec := &mockExecutor{}
	auditor := &recordingAuditor{}
	svc := newService(defaultResolver(), exec, auditor, nil)

	_, err := svc.Execute(context.Background(), "SELECT * FROM users WHERE password = 'secret123'", false)
	require.NoError(t, err)

	require.Len(t, auditor.entries, 1)
	assert.NotContains(t, auditor.entries[0].SQL, "secret123")
	assert.Contains(t, auditor.entries[0].SQL, "***")
	// The executor still receives the raw SQL.
	assert.Contains(t, exec.lastSQL, "secret123")
}

func TestQueryService_ExecutorError(t *testing.T) {
	exec := &mockExecutor{err: fmt.Errorf("connection refused")}
	auditor := &recordingAuditor{}
	svc := newService(defaultResolver(), exec, auditor, nil)

	_, err := svc.Execute(context.Background(), "SELECT 1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	require.Len(t, auditor.entries, 1)
	require.Error(t, auditor.entries[0].Err)
}

func TestQueryService_EmptyQuery(t *testing.T) {
	exec := &mockExecutor{}
	svc := newService(defaultResolver(), exec, &recordingAuditor{}, nil)

	for _, sql := range []string{"", "   "} {
		_, err := svc.Execute(context.Background(), sql, false)
		require.Error(t, err, "input: %q", sql)
		assert.False(t, exec.executeCalled)
	}
}

func TestQueryService_WithMasks(t *testing.T) {
	exec := &mockExecutor{
		result: []map[string]any{
			{"id": 1, "email": "alice@example.com", "name": "Alice"},
		},
	}
	masks := map[string]domain.MaskType{"email": domain.MaskRedact}
	svc := newService(defaultResolver(), exec, &recordingAuditor{}, masks)

	rows, err := svc.Execute(context.Background(), "SELECT * FROM users", false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "***", rows[0]["email"])
	assert.Equal(t, "Alice", rows[0]["name"])
}

func TestQueryService_Validate(t *testing.T) {
	svc := newService(defaultResolver(), &mockExecutor{}, &recordingAuditor{}, nil)

	verdict := svc.Validate("SELECT 1")
	assert.True(t, verdict.Valid)

	verdict = svc.Validate("TRUNCATE orders")
	assert.False(t, verdict.Valid)
	assert.Contains(t, verdict.Error, "TRUNCATE")
}

func TestQueryService_ExecuteExplain(t *testing.T) {
	exec := &mockExecutor{result: []map[string]any{{"QUERY PLAN": "Seq Scan"}}}
	svc := newService(defaultResolver(), exec, &recordingAuditor{}, nil)

	rows, err := svc.ExecuteExplain(context.Background(), "EXPLAIN ", "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "EXPLAIN SELECT 1", exec.lastSQL)
	assert.True(t, exec.lastReadOnly)
	require.Len(t, rows, 1)
}

func TestQueryService_ExecuteExplainRejectsWrites(t *testing.T) {
	exec := &mockExecutor{}
	svc := newService(policy.StaticResolver{Policy: domain.PolicyContext{ReadOnly: false}}, exec, &recordingAuditor{}, nil)

	_, err := svc.ExecuteExplain(context.Background(), "EXPLAIN ANALYZE ", "DELETE FROM orders")
	require.Error(t, err)
	assert.False(t, exec.executeCalled)
}

func TestQueryService_WithToolName(t *testing.T) {
	exec := &mockExecutor{}
	auditor := &recordingAuditor{}
	svc := newService(defaultResolver(), exec, auditor, nil)

	ctx := WithToolName(context.Background(), "query")
	_, err := svc.Execute(ctx, "SELECT 1", false)
	require.NoError(t, err)

	require.Len(t, auditor.entries, 1)
	assert.Equal(t, "query", auditor.entries[0].Tool)
}

func TestVerdictError_Message(t *testing.T) {
	t.Parallel()

	err := &VerdictError{Verdict: domain.Verdict{
		Error:      "DROP operations are blocked in read-only mode",
		Suggestion: "Use a SELECT to inspect the data, or request an admin override.",
	}}
	assert.Contains(t, err.Error(), "DROP")
	assert.Contains(t, err.Error(), "Suggestion")

	bare := &VerdictError{Verdict: domain.Verdict{Error: "empty query"}}
	assert.Equal(t, "empty query", bare.Error())
	assert.False(t, errors.Is(bare, err))
}
