package port

import "context"

// TableInfo is a summary row for table discovery.
type TableInfo struct {
	Schema      string `json:"schema"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	RowEstimate int64  `json:"row_estimate"`
	ColumnCount int    `json:"column_count"`
	Comment     string `json:"comment,omitempty"`
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	IsNullable   bool   `json:"is_nullable"`
	DefaultValue string `json:"default_value,omitempty"`
}

// TableDetail is the full description returned by DescribeTable.
type TableDetail struct {
	Schema  string       `json:"schema"`
	Name    string       `json:"name"`
	Comment string       `json:"comment,omitempty"`
	Columns []ColumnInfo `json:"columns"`
}

// SchemaExplorer exposes just enough schema metadata for the
// natural-language-to-SQL caller to ground its generation.
type SchemaExplorer interface {
	ListTables(ctx context.Context) ([]TableInfo, error)
	DescribeTable(ctx context.Context, schema, tableName string) (*TableDetail, error)
}
