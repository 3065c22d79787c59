package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/causeway/internal/core/domain"
	"github.com/guillermoBallester/causeway/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type toolNameKey struct{}

// WithToolName returns a context carrying the MCP tool name for audit logging.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

func toolNameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(toolNameKey{}).(string); ok {
		return v
	}
	return ""
}

// VerdictError carries a rejected verdict out of Execute. The caller surfaces
// Error and Suggestion verbatim; nothing was executed.
type VerdictError struct {
	Verdict domain.Verdict
}

func (e *VerdictError) Error() string {
	if e.Verdict.Suggestion == "" {
		return e.Verdict.Error
	}
	return fmt.Sprintf("%s. Suggestion: %s", e.Verdict.Error, e.Verdict.Suggestion)
}

// ApprovalError reports that a destructive statement is admissible only under
// the admin override and needs an explicit confirmation before it runs.
type ApprovalError struct {
	Keyword string
}

func (e *ApprovalError) Error() string {
	return fmt.Sprintf("%s statement requires confirmation: re-run with confirm=true to execute under admin override", e.Keyword)
}

// QueryService is the safety gate in front of the database: it resolves the
// ambient policy, validates the SQL, decides between executed, blocked and
// approval_required, and audits every decision with sanitized query text.
type QueryService struct {
	resolver  port.PolicyResolver
	validator port.QueryValidator
	executor  port.QueryExecutor
	sanitizer port.LogSanitizer
	auditor   port.QueryAuditor
	logger    *slog.Logger
	masks     map[string]domain.MaskType // column-name -> mask-type (nil = no masking)
	tracer    trace.Tracer
	inst      port.Instrumentation
}

func NewQueryService(resolver port.PolicyResolver, validator port.QueryValidator, executor port.QueryExecutor, sanitizer port.LogSanitizer, auditor port.QueryAuditor, logger *slog.Logger, masks map[string]domain.MaskType, tracer trace.Tracer, inst port.Instrumentation) *QueryService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &QueryService{
		resolver:  resolver,
		validator: validator,
		executor:  executor,
		sanitizer: sanitizer,
		auditor:   auditor,
		logger:    logger,
		masks:     masks,
		tracer:    tracer,
		inst:      inst,
	}
}

// Validate classifies the SQL under the current policy snapshot without
// executing anything. Exposed as its own tool so the dashboard can pre-check
// generated SQL before asking a human to approve it.
func (s *QueryService) Validate(sql string) domain.Verdict {
	return s.validator.Validate(sql, s.resolver.Resolve())
}

// Execute gates and runs one SQL statement. confirmed acknowledges a
// destructive statement that is admitted only through the admin override;
// without it such statements stop at approval_required.
func (s *QueryService) Execute(ctx context.Context, sql string, confirmed bool) ([]map[string]any, error) {
	safeSQL := s.sanitizer.SanitizeForLogging(sql)

	ctx, span := s.tracer.Start(ctx, "QueryService.Execute",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation.name", "query"),
			// Spans are exported; only sanitized text leaves the process.
			attribute.String("db.statement", safeSQL),
		),
	)
	defer span.End()

	pol := s.resolver.Resolve()
	verdict := s.validator.Validate(sql, pol)
	if !verdict.Valid {
		return nil, s.reject(ctx, span, safeSQL, verdict)
	}

	if verdict.Class.Kind == domain.ClassDestructiveWrite && pol.OverrideOnly() && !confirmed {
		apprErr := &ApprovalError{Keyword: verdict.Class.Keyword}
		s.auditor.Record(ctx, port.AuditEntry{
			Tool:     toolNameFromCtx(ctx),
			SQL:      safeSQL,
			Decision: port.DecisionApprovalRequired,
			Reason:   verdict.Class.Keyword,
		})
		s.logger.InfoContext(ctx, "query requires confirmation",
			slog.String("db.statement", safeSQL),
			slog.String("operation", verdict.Class.Keyword),
		)
		return nil, apprErr
	}

	// Re-resolve and re-validate immediately before execution. This closes
	// the window between "a human approved this" and "this actually runs":
	// a flag toggled in that gap is honored here.
	pol = s.resolver.Resolve()
	verdict = s.validator.Validate(sql, pol)
	if !verdict.Valid {
		return nil, s.reject(ctx, span, safeSQL, verdict)
	}

	readOnlyTx := verdict.Class.Kind != domain.ClassDestructiveWrite

	start := time.Now()
	results, err := s.executor.Execute(ctx, sql, readOnlyTx)
	durationMS := time.Since(start).Milliseconds()

	s.inst.RecordQueryDuration(ctx, float64(durationMS))

	s.auditor.Record(ctx, port.AuditEntry{
		Tool:         toolNameFromCtx(ctx),
		SQL:          safeSQL,
		Decision:     port.DecisionExecuted,
		RowsReturned: len(results),
		DurationMS:   durationMS,
		Err:          err,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryErrors(ctx)
		return results, err
	}

	s.inst.IncrementQueryCount(ctx)
	span.SetAttributes(attribute.Int("db.response.rows", len(results)))
	domain.MaskRows(results, s.masks)

	return results, nil
}

// ExecuteExplain validates the bare query, then runs it under the given
// EXPLAIN prefix. The prefix never reaches the validator: EXPLAIN is not a
// recognized leading keyword and would fail closed.
func (s *QueryService) ExecuteExplain(ctx context.Context, prefix, sql string) ([]map[string]any, error) {
	safeSQL := s.sanitizer.SanitizeForLogging(sql)

	ctx, span := s.tracer.Start(ctx, "QueryService.ExecuteExplain",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation.name", "explain"),
			attribute.String("db.statement", safeSQL),
		),
	)
	defer span.End()

	verdict := s.validator.Validate(sql, s.resolver.Resolve())
	if !verdict.Valid {
		return nil, s.reject(ctx, span, safeSQL, verdict)
	}
	if verdict.Class.Kind != domain.ClassSafeRead {
		// Plans for destructive statements are not useful enough to justify
		// running them under ANALYZE.
		return nil, s.reject(ctx, span, safeSQL, domain.Verdict{
			Error:      "only SELECT queries can be explained",
			Suggestion: "Rephrase the request as a SELECT query.",
			Class:      verdict.Class,
		})
	}

	start := time.Now()
	results, err := s.executor.Execute(ctx, prefix+sql, true)
	durationMS := time.Since(start).Milliseconds()

	s.inst.RecordQueryDuration(ctx, float64(durationMS))

	s.auditor.Record(ctx, port.AuditEntry{
		Tool:         toolNameFromCtx(ctx),
		SQL:          safeSQL,
		Decision:     port.DecisionExecuted,
		RowsReturned: len(results),
		DurationMS:   durationMS,
		Err:          err,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryErrors(ctx)
		return results, err
	}

	s.inst.IncrementQueryCount(ctx)
	return results, nil
}

func (s *QueryService) reject(ctx context.Context, span trace.Span, safeSQL string, verdict domain.Verdict) error {
	vErr := &VerdictError{Verdict: verdict}

	s.logger.WarnContext(ctx, "query blocked",
		slog.String("db.operation.name", "query"),
		slog.String("db.statement", safeSQL),
		slog.String("operation.class", verdict.Class.Kind.String()),
		slog.String("error.type", "validation_error"),
	)
	span.RecordError(vErr)
	span.SetStatus(codes.Error, verdict.Error)
	s.inst.IncrementBlockedQueries(ctx)

	s.auditor.Record(ctx, port.AuditEntry{
		Tool:     toolNameFromCtx(ctx),
		SQL:      safeSQL,
		Decision: port.DecisionBlocked,
		Reason:   verdict.Error,
	})

	return vErr
}
