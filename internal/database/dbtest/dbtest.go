// Package dbtest starts a throwaway PostgreSQL container with the schema applied.
package dbtest

import (
	"context"
	"testing"
	"time"

	"shopflow/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// StartContainer runs a PostgreSQL container and returns its connection string.
// The container is terminated when the test finishes.
func StartContainer(t testing.TB) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return connStr
}

// NewPool starts a container, applies every migration and returns a pool on it.
func NewPool(t testing.TB) *pgxpool.Pool {
	t.Helper()

	connStr := StartContainer(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	return pool
}

// Truncate empties every application table between subtests.
func Truncate(t testing.TB, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE order_outbox, wallet_ledger_entries, wallet_accounts,
			order_lines, orders, stock_levels, cart_lines, products
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)
}
