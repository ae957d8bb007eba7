package database_test

import (
	"context"
	"net/url"
	"strconv"
	"testing"

	"shopflow/internal/config"
	"shopflow/internal/database"
	"shopflow/internal/database/dbtest"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containerConfig(t *testing.T, connStr string) config.DatabaseConfig {
	u, err := url.Parse(connStr)
	require.NoError(t, err)

	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	password, _ := u.User.Password()

	return config.DatabaseConfig{
		Host:            u.Hostname(),
		Port:            port,
		User:            u.User.Username(),
		Password:        password,
		Database:        u.Path[1:],
		MaxConnections:  5,
		MinConnections:  1,
		MaxConnLifetime: 300,
	}
}

func TestNewPool_Success(t *testing.T) {
	connStr := dbtest.StartContainer(t)
	ctx := context.Background()

	pool, err := database.NewPool(ctx, containerConfig(t, connStr), zerolog.Nop())
	require.NoError(t, err)
	defer pool.Close()

	assert.NoError(t, pool.Ping(ctx))
	assert.Equal(t, int32(5), pool.Config().MaxConns)
}

func TestNewPool_CannotConnect(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:            "127.0.0.1",
		Port:            1,
		User:            "postgres",
		Database:        "shopflow",
		MaxConnections:  1,
		MinConnections:  1,
		MaxConnLifetime: 300,
	}

	pool, err := database.NewPool(context.Background(), cfg, zerolog.Nop())

	require.Error(t, err)
	assert.Nil(t, pool)
}

func TestMigrate_CreatesSchemaAndIsRepeatable(t *testing.T) {
	connStr := dbtest.StartContainer(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))
	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	for _, table := range []string{
		"products", "cart_lines", "stock_levels", "orders", "order_lines",
		"wallet_accounts", "wallet_ledger_entries", "order_outbox",
	} {
		var exists bool
		err := pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", "public."+table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "table %s should exist", table)
	}
}

func TestMigrate_StockCannotGoNegative(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO products (id, name, sale_price) VALUES (1, 'Tea', 4.50)`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `INSERT INTO stock_levels (product_id, quantity) VALUES (1, -1)`)
	assert.Error(t, err)
}
