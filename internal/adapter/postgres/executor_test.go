package postgres_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/guillermoBallester/causeway/internal/adapter/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testSchema = `
	CREATE TABLE customers (
		id    SERIAL PRIMARY KEY,
		name  TEXT NOT NULL,
		email TEXT
	);
	COMMENT ON TABLE customers IS 'Customer accounts';

	CREATE VIEW customer_names AS SELECT id, name FROM customers;
`

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)

	return pool
}

func TestExecute_Select_RowLimit(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := pool.Exec(ctx, "INSERT INTO customers (name, email) VALUES ($1, $2)",
			"user", nil)
		require.NoError(t, err)
	}

	executor := postgres.NewExecutor(pool, 3, 10*time.Second)

	results, err := executor.Execute(ctx, "SELECT id, name FROM customers", true)
	require.NoError(t, err)
	assert.Len(t, results, 3, "should be limited to maxRows=3")
}

func TestExecute_TrailingSemicolon(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, "INSERT INTO customers (name) VALUES ('alice')")
	require.NoError(t, err)

	executor := postgres.NewExecutor(pool, 100, 10*time.Second)

	results, err := executor.Execute(ctx, "SELECT name FROM customers;", true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alice", results[0]["name"])
}

func TestExecute_TrailingLineComment(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, "INSERT INTO customers (name) VALUES ('erin')")
	require.NoError(t, err)

	executor := postgres.NewExecutor(pool, 100, 10*time.Second)

	// The LIMIT wrapper must survive a comment at the end of the query.
	results, err := executor.Execute(ctx, "SELECT name FROM customers -- latest export", true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "erin", results[0]["name"])
}

func TestExecute_ReadOnlyTransactionRejectsWrites(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	executor := postgres.NewExecutor(pool, 100, 10*time.Second)

	// Writes that reach the executor under readOnly=true fail at the database.
	_, err := executor.Execute(ctx, "INSERT INTO customers (name) VALUES ('x')", true)
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "read-only")

	var n int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM customers").Scan(&n))
	assert.Zero(t, n)
}

func TestExecute_ReadWriteTransactionCommits(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	executor := postgres.NewExecutor(pool, 100, 10*time.Second)

	_, err := executor.Execute(ctx, "INSERT INTO customers (name) VALUES ('bob')", false)
	require.NoError(t, err)

	var n int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM customers").Scan(&n))
	assert.Equal(t, 1, n, "the write must be committed")
}

func TestExecute_Explain(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	executor := postgres.NewExecutor(pool, 100, 10*time.Second)

	// EXPLAIN is not a wrappable read; it must run unmodified.
	results, err := executor.Execute(ctx, "EXPLAIN SELECT * FROM customers", true)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
	assert.Contains(t, results[0], "QUERY PLAN")
}

func TestExecute_CTERead(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, "INSERT INTO customers (name) VALUES ('carol'), ('dave')")
	require.NoError(t, err)

	executor := postgres.NewExecutor(pool, 1, 10*time.Second)

	results, err := executor.Execute(ctx,
		"WITH named AS (SELECT name FROM customers) SELECT * FROM named", true)
	require.NoError(t, err)
	assert.Len(t, results, 1, "the row cap applies to WITH-led reads too")
}

func TestExecute_StatementTimeout(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	// Use a 1-second timeout; pg_sleep(30) should be cancelled by statement_timeout.
	executor := postgres.NewExecutor(pool, 100, 1*time.Second)

	_, err := executor.Execute(ctx, "SELECT pg_sleep(30)", true)
	require.Error(t, err)

	// PostgreSQL cancels with SQLSTATE 57014 (query_canceled), or the Go
	// context expires first ("context deadline exceeded" / "timeout").
	errMsg := strings.ToLower(err.Error())
	assert.True(t,
		strings.Contains(errMsg, "statement timeout") ||
			strings.Contains(errMsg, "cancel") ||
			strings.Contains(errMsg, "57014") ||
			strings.Contains(errMsg, "deadline exceeded") ||
			strings.Contains(errMsg, "timeout"),
		"expected timeout-related error, got: %s", err,
	)
}
