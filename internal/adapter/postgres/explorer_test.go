package postgres_test

import (
	"context"
	"testing"

	"github.com/guillermoBallester/causeway/internal/adapter/postgres"
	"github.com/guillermoBallester/causeway/internal/core/domain"
	"github.com/guillermoBallester/causeway/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplorer_ListTables(t *testing.T) {
	pool := setupTestDB(t)
	explorer := postgres.NewExplorer(pool)

	tables, err := explorer.ListTables(context.Background())
	require.NoError(t, err)

	tableMap := make(map[string]port.TableInfo)
	for _, tbl := range tables {
		tableMap[tbl.Name] = tbl
	}

	customers, ok := tableMap["customers"]
	require.True(t, ok, "customers table should be listed")
	assert.Equal(t, "public", customers.Schema)
	assert.Equal(t, "table", customers.Type)
	assert.Equal(t, 3, customers.ColumnCount)
	assert.Equal(t, "Customer accounts", customers.Comment)

	view, ok := tableMap["customer_names"]
	require.True(t, ok, "view should be listed")
	assert.Equal(t, "view", view.Type)
}

func TestExplorer_DescribeTable(t *testing.T) {
	pool := setupTestDB(t)
	explorer := postgres.NewExplorer(pool)
	ctx := context.Background()

	detail, err := explorer.DescribeTable(ctx, "", "customers")
	require.NoError(t, err)

	assert.Equal(t, "public", detail.Schema, "schema resolves to public when omitted")
	assert.Equal(t, "customers", detail.Name)
	assert.Equal(t, "Customer accounts", detail.Comment)
	require.Len(t, detail.Columns, 3)

	colMap := make(map[string]port.ColumnInfo)
	for _, c := range detail.Columns {
		colMap[c.Name] = c
	}
	assert.False(t, colMap["id"].IsNullable)
	assert.True(t, colMap["email"].IsNullable)
	assert.Contains(t, colMap["id"].DefaultValue, "nextval")
}

func TestExplorer_DescribeTable_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	explorer := postgres.NewExplorer(pool)

	_, err := explorer.DescribeTable(context.Background(), "", "no_such_table")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
