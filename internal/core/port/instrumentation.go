package port

import "context"

// Instrumentation records gate-level metrics: executed, failed and blocked
// query counts, plus execution and tool-call latencies.
type Instrumentation interface {
	IncrementQueryCount(ctx context.Context)
	IncrementQueryErrors(ctx context.Context)
	IncrementBlockedQueries(ctx context.Context)
	RecordQueryDuration(ctx context.Context, ms float64)
	RecordToolDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) IncrementQueryCount(context.Context)          {}
func (NoopInstrumentation) IncrementQueryErrors(context.Context)         {}
func (NoopInstrumentation) IncrementBlockedQueries(context.Context)      {}
func (NoopInstrumentation) RecordQueryDuration(context.Context, float64) {}
func (NoopInstrumentation) RecordToolDuration(context.Context, float64)  {}
