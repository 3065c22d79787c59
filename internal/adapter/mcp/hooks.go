package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/causeway/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// toolObserver logs every tool call and records spans and duration metrics.
// In-flight calls are tracked by request id so the after/error hooks can
// close the span the before hook opened.
type toolObserver struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	inst     port.Instrumentation
	inflight sync.Map // request id -> *inflightCall
}

type inflightCall struct {
	start time.Time
	span  trace.Span
}

// ToolCallHooks wires the observer into the MCP server lifecycle.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	obs := &toolObserver{logger: logger, tracer: tracer, inst: inst}

	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(obs.before)
	hooks.AddAfterCallTool(obs.after)
	hooks.AddOnError(obs.onError)
	return hooks
}

func (o *toolObserver) before(ctx context.Context, id any, req *mcp.CallToolRequest) {
	call := &inflightCall{start: time.Now()}
	if o.tracer != nil {
		_, call.span = o.tracer.Start(ctx, "mcp.tool.call",
			trace.WithAttributes(attribute.String("mcp.tool", req.Params.Name)),
		)
	}
	o.inflight.Store(id, call)
}

func (o *toolObserver) after(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
	call := o.take(id)

	isErr := false
	if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
		isErr = true
	}

	level := slog.LevelInfo
	if isErr {
		level = slog.LevelError
	}
	o.logger.LogAttrs(ctx, level, "tool call",
		slog.String("rpc.method", "tools/call"),
		slog.String("mcp.tool", req.Params.Name),
		slog.Duration("duration", call.elapsed()),
		slog.Bool("error", isErr),
	)

	if o.inst != nil {
		o.inst.RecordToolDuration(ctx, float64(call.elapsed().Milliseconds()))
	}

	if call.span != nil {
		if isErr {
			call.span.SetStatus(codes.Error, "tool returned error")
			call.span.RecordError(fmt.Errorf("tool %s returned error", req.Params.Name))
		}
		call.span.End()
	}
}

func (o *toolObserver) onError(ctx context.Context, id any, _ mcp.MCPMethod, message any, err error) {
	call := o.take(id)

	if req, ok := message.(*mcp.CallToolRequest); ok {
		o.logger.LogAttrs(ctx, slog.LevelError, "tool call",
			slog.String("rpc.method", "tools/call"),
			slog.String("mcp.tool", req.Params.Name),
			slog.Duration("duration", call.elapsed()),
			slog.Bool("error", true),
			slog.String("error.message", err.Error()),
		)
	}

	if call.span != nil {
		call.span.RecordError(err)
		call.span.SetStatus(codes.Error, err.Error())
		call.span.End()
	}
}

// take removes and returns the in-flight record for id. An unknown id yields
// a zero record, which reports no span and zero elapsed time.
func (o *toolObserver) take(id any) *inflightCall {
	if v, ok := o.inflight.LoadAndDelete(id); ok {
		return v.(*inflightCall)
	}
	return &inflightCall{}
}

func (c *inflightCall) elapsed() time.Duration {
	if c.start.IsZero() {
		return 0
	}
	return time.Since(c.start)
}
