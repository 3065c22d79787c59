package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/causeway"

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	QueryCount     metric.Int64Counter
	QueryDuration  metric.Float64Histogram
	QueryErrors    metric.Int64Counter
	BlockedQueries metric.Int64Counter
	ToolDuration   metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	queryCount, _ := meter.Int64Counter("causeway.query.count",
		metric.WithDescription("Total number of SQL queries executed"),
	)
	queryDuration, _ := meter.Float64Histogram("causeway.query.duration",
		metric.WithDescription("SQL query execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	queryErrors, _ := meter.Int64Counter("causeway.query.errors",
		metric.WithDescription("Total number of failed SQL queries"),
	)
	blockedQueries, _ := meter.Int64Counter("causeway.query.blocked",
		metric.WithDescription("Total number of SQL queries rejected by the safety gate"),
	)
	toolDuration, _ := meter.Float64Histogram("causeway.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		QueryCount:     queryCount,
		QueryDuration:  queryDuration,
		QueryErrors:    queryErrors,
		BlockedQueries: blockedQueries,
		ToolDuration:   toolDuration,
	}
}

func (i *Instruments) RecordQueryDuration(ctx context.Context, ms float64) {
	i.QueryDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementQueryCount(ctx context.Context) {
	i.QueryCount.Add(ctx, 1)
}

func (i *Instruments) IncrementQueryErrors(ctx context.Context) {
	i.QueryErrors.Add(ctx, 1)
}

func (i *Instruments) IncrementBlockedQueries(ctx context.Context) {
	i.BlockedQueries.Add(ctx, 1)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
