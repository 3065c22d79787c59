package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/guillermoBallester/causeway/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "causeway"

// Tool descriptions
const (
	descValidateSQL = "Check whether a SQL statement would pass the safety gate without executing it. " +
		"Returns a verdict with is_valid plus an error and a suggestion when the statement is rejected. " +
		"Use this to pre-check generated SQL before presenting it for approval."

	descValidateSQLParam = "SQL statement to validate"

	descQuery = "Execute a SQL statement through the safety gate and return results as a JSON array of objects. " +
		"Single statements only; read-only mode blocks destructive statements unless the admin override is active. " +
		"A server-side row limit and query timeout are enforced on reads. " +
		"Always use specific column names instead of SELECT *."

	descQueryParam = "SQL statement to execute"

	descQueryConfirm = "Acknowledge execution of a destructive statement admitted under admin override. Defaults to false."

	descExplainQuery = "Show the PostgreSQL execution plan for a SQL query. " +
		"The query is validated by the safety gate first, then run under EXPLAIN. " +
		"Supports ANALYZE to include actual execution statistics (the query WILL be executed)."

	descExplainQuerySQL = "The query to explain (without the EXPLAIN keyword)"

	descListTables = "List all tables and views with schema, type, estimated row count and column count. " +
		"Use this to understand the database landscape before writing queries."

	descDescribeTable = "Describe a table's columns with types, nullability and defaults. " +
		"Use this to understand a table before writing queries against it."

	descDescribeTableParam = "Name of the table to describe"
)

func RegisterTools(s *server.MCPServer, explorer *service.ExplorerService, query *service.QueryService) {
	s.AddTool(
		mcp.NewTool("validate_sql",
			mcp.WithDescription(descValidateSQL),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description(descValidateSQLParam),
			),
		),
		validateSQLHandler(query),
	)

	s.AddTool(
		mcp.NewTool("query",
			mcp.WithDescription(descQuery),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description(descQueryParam),
			),
			mcp.WithBoolean("confirm",
				mcp.Description(descQueryConfirm),
			),
		),
		queryHandler(query),
	)

	s.AddTool(
		mcp.NewTool("explain_query",
			mcp.WithDescription(descExplainQuery),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description(descExplainQuerySQL),
			),
			mcp.WithBoolean("analyze",
				mcp.Description("Include actual execution statistics (executes the query). Defaults to false."),
			),
		),
		explainQueryHandler(query),
	)

	s.AddTool(
		mcp.NewTool("list_tables",
			mcp.WithDescription(descListTables),
		),
		listTablesHandler(explorer),
	)

	s.AddTool(
		mcp.NewTool("describe_table",
			mcp.WithDescription(descDescribeTable),
			mcp.WithString("table_name",
				mcp.Required(),
				mcp.Description(descDescribeTableParam),
			),
			mcp.WithString("schema",
				mcp.Description("Schema name (optional, resolves automatically if omitted)"),
			),
		),
		describeTableHandler(explorer),
	)
}

func validateSQLHandler(query *service.QueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok {
			return mcp.NewToolResultError("sql is required"), nil
		}

		verdict := query.Validate(sql)

		data, err := json.Marshal(verdict)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal verdict: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func queryHandler(query *service.QueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		confirm, _ := request.GetArguments()["confirm"].(bool)

		ctx = service.WithToolName(ctx, "query")
		results, err := query.Execute(ctx, sql, confirm)
		if err != nil {
			return queryErrorResult(err), nil
		}

		data, err := json.Marshal(results)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func explainQueryHandler(query *service.QueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		// The bare query is what gets validated; the EXPLAIN prefix is added
		// only after the gate admits it.
		verdict := query.Validate(sql)
		if !verdict.Valid {
			return mcp.NewToolResultError(fmt.Sprintf("%s. Suggestion: %s", verdict.Error, verdict.Suggestion)), nil
		}

		prefix := "EXPLAIN "
		if analyze, _ := request.GetArguments()["analyze"].(bool); analyze {
			prefix = "EXPLAIN ANALYZE "
		}

		ctx = service.WithToolName(ctx, "explain_query")
		results, err := query.ExecuteExplain(ctx, prefix, sql)
		if err != nil {
			return queryErrorResult(err), nil
		}

		data, err := json.Marshal(results)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func listTablesHandler(explorer *service.ExplorerService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tables, err := explorer.ListTables(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list tables: %v", err)), nil
		}

		data, err := json.Marshal(tables)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func describeTableHandler(explorer *service.ExplorerService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, ok := request.GetArguments()["table_name"].(string)
		if !ok || tableName == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}

		schema, _ := request.GetArguments()["schema"].(string)

		detail, err := explorer.DescribeTable(ctx, schema, tableName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to describe table: %v", err)), nil
		}

		data, err := json.Marshal(detail)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

// queryErrorResult keeps the verdict's error and suggestion intact on the
// wire; the caller shows them verbatim.
func queryErrorResult(err error) *mcp.CallToolResult {
	var vErr *service.VerdictError
	if errors.As(err, &vErr) {
		return mcp.NewToolResultError(vErr.Error())
	}
	var aErr *service.ApprovalError
	if errors.As(err, &aErr) {
		return mcp.NewToolResultError(aErr.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err))
}
