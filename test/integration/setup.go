package integration

import (
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"shopflow/internal/database/dbtest"
	"shopflow/internal/handler"
	"shopflow/internal/repository"
	"shopflow/internal/restock"
	"shopflow/internal/router"
	"shopflow/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key"

// TestDB is a migrated PostgreSQL test database.
type TestDB struct {
	Pool    *pgxpool.Pool
	FeedDir string
}

// SetupTestDB starts a PostgreSQL container and applies the schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	return &TestDB{
		Pool:    dbtest.NewPool(t),
		FeedDir: t.TempDir(),
	}
}

// Stack is every service wired to the test database.
type Stack struct {
	Orders service.OrderService
	Wallet service.WalletService
	Stock  service.StockService
	Outbox repository.OutboxRepository
	Router http.Handler
}

// NewStack wires the Postgres repositories, services and router.
func NewStack(t *testing.T, db *TestDB) *Stack {
	t.Helper()

	logger := zerolog.Nop()
	pool := db.Pool

	tx := repository.NewTransactor(pool, logger)
	stock := repository.NewStockLedger(pool, logger)
	wallets := repository.NewWalletLedger(pool, logger)
	outbox := repository.NewOutboxRepository(pool, logger)

	orders := service.NewOrderService(
		tx,
		repository.NewOrderRepository(pool, logger),
		repository.NewCatalogRepository(pool, logger),
		repository.NewCartRepository(pool, logger),
		stock, wallets, outbox, logger,
	)
	importer := restock.NewImporter(restock.NewFileLoader(db.FeedDir, logger), tx, stock, logger)
	walletService := service.NewWalletService(wallets, logger)
	stockService := service.NewStockService(stock, importer, logger)

	return &Stack{
		Orders: orders,
		Wallet: walletService,
		Stock:  stockService,
		Outbox: outbox,
		Router: router.New(router.Handlers{
			Orders: handler.NewOrderHandler(orders, logger),
			Wallet: handler.NewWalletHandler(walletService, logger),
			Stock:  handler.NewStockHandler(stockService, logger),
		}, testAPIKey, logger),
	}
}

// SeedProduct inserts a product with the given sale price and stock level.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, name, price string, stock int) int64 {
	t.Helper()

	ctx := context.Background()
	var id int64
	err := pool.QueryRow(ctx,
		"INSERT INTO products (name, sale_price) VALUES ($1, $2::numeric) RETURNING id",
		name, price,
	).Scan(&id)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, "INSERT INTO stock_levels (product_id, quantity) VALUES ($1, $2)", id, stock)
	require.NoError(t, err)

	return id
}

// SeedCartLine puts a product into a user's cart and returns the line ID.
func SeedCartLine(t *testing.T, pool *pgxpool.Pool, userID, productID int64, qty int) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(),
		"INSERT INTO cart_lines (user_id, product_id, quantity) VALUES ($1, $2, $3) RETURNING id",
		userID, productID, qty,
	).Scan(&id)
	require.NoError(t, err)

	return id
}

// StockOf returns the current stock level of a product.
func StockOf(t *testing.T, pool *pgxpool.Pool, productID int64) int {
	t.Helper()

	var qty int
	err := pool.QueryRow(context.Background(),
		"SELECT quantity FROM stock_levels WHERE product_id = $1", productID,
	).Scan(&qty)
	require.NoError(t, err)

	return qty
}

// WriteFeed writes a gzipped restock feed into dir.
func WriteFeed(t *testing.T, dir, name string, lines map[int64]int) {
	t.Helper()

	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	for id, qty := range lines {
		_, err := fmt.Fprintf(gz, "%d,%d\n", id, qty)
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())
}
