package postgres

import (
	"context"
	"fmt"

	"github.com/guillermoBallester/causeway/internal/core/domain"
	"github.com/guillermoBallester/causeway/internal/core/port"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryListTables = `
	SELECT
		t.table_schema,
		t.table_name,
		CASE t.table_type
			WHEN 'BASE TABLE' THEN 'table'
			WHEN 'VIEW' THEN 'view'
			ELSE lower(t.table_type)
		END AS type,
		COALESCE(s.n_live_tup, 0) AS row_estimate,
		(SELECT count(*)::int FROM information_schema.columns c
		 WHERE c.table_schema = t.table_schema AND c.table_name = t.table_name
		) AS column_count,
		COALESCE(pg_catalog.obj_description(
			(quote_ident(t.table_schema) || '.' || quote_ident(t.table_name))::regclass, 'pg_class'
		), '') AS comment
	FROM information_schema.tables t
	LEFT JOIN pg_stat_user_tables s
		ON s.schemaname = t.table_schema AND s.relname = t.table_name
	WHERE t.table_schema NOT IN ('pg_catalog', 'information_schema')
		AND t.table_type IN ('BASE TABLE', 'VIEW')
	ORDER BY t.table_schema, t.table_name`

const queryColumns = `
	SELECT
		c.column_name,
		c.data_type,
		c.is_nullable = 'YES',
		COALESCE(c.column_default, '')
	FROM information_schema.columns c
	WHERE c.table_schema = $1 AND c.table_name = $2
	ORDER BY c.ordinal_position`

const queryResolveSchema = `
	SELECT t.table_schema
	FROM information_schema.tables t
	WHERE t.table_name = $1
		AND t.table_schema NOT IN ('pg_catalog', 'information_schema')
	ORDER BY (t.table_schema = 'public') DESC, t.table_schema
	LIMIT 1`

const queryTableComment = `
	SELECT COALESCE(pg_catalog.obj_description(
		(quote_ident($1::text) || '.' || quote_ident($2::text))::regclass, 'pg_class'
	), '')`

// Explorer serves the schema metadata the NL-to-SQL caller needs to write
// grounded queries. Deliberately read-only catalog queries.
type Explorer struct {
	pool *pgxpool.Pool
}

func NewExplorer(pool *pgxpool.Pool) *Explorer {
	return &Explorer{pool: pool}
}

func (e *Explorer) ListTables(ctx context.Context) ([]port.TableInfo, error) {
	rows, err := e.pool.Query(ctx, queryListTables)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []port.TableInfo
	for rows.Next() {
		var t port.TableInfo
		if err := rows.Scan(&t.Schema, &t.Name, &t.Type, &t.RowEstimate, &t.ColumnCount, &t.Comment); err != nil {
			return nil, fmt.Errorf("scanning table row: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (e *Explorer) DescribeTable(ctx context.Context, schema, tableName string) (*port.TableDetail, error) {
	if schema == "" {
		err := e.pool.QueryRow(ctx, queryResolveSchema, tableName).Scan(&schema)
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("table %q: %w", tableName, domain.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("resolving schema for %q: %w", tableName, err)
		}
	}

	detail := &port.TableDetail{Schema: schema, Name: tableName}

	if err := e.pool.QueryRow(ctx, queryTableComment, schema, tableName).Scan(&detail.Comment); err != nil {
		// Comment lookup fails for nonexistent relations; surface as not found.
		return nil, fmt.Errorf("table %s.%s: %w", schema, tableName, domain.ErrNotFound)
	}

	rows, err := e.pool.Query(ctx, queryColumns, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("fetching columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c port.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable, &c.DefaultValue); err != nil {
			return nil, fmt.Errorf("scanning column row: %w", err)
		}
		detail.Columns = append(detail.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(detail.Columns) == 0 {
		return nil, fmt.Errorf("table %s.%s: %w", schema, tableName, domain.ErrNotFound)
	}

	return detail, nil
}
