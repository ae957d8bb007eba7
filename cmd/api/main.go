package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopflow/internal/config"
	"shopflow/internal/database"
	"shopflow/internal/events"
	"shopflow/internal/handler"
	"shopflow/internal/memory"
	"shopflow/internal/repository"
	"shopflow/internal/restock"
	"shopflow/internal/router"
	"shopflow/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// repositories is the storage backend selected by configuration.
type repositories struct {
	tx      repository.Transactor
	orders  repository.OrderRepository
	catalog repository.CatalogRepository
	carts   repository.CartRepository
	stock   repository.StockLedger
	wallets repository.WalletLedger
	outbox  repository.OutboxRepository
	close   func()
}

func run() error {
	// A missing .env is fine; the environment alone may configure the server.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn().Err(envErr).Msg("failed to read .env file")
	}
	logger.Info().Str("storage", cfg.Storage.Driver).Msg("starting shopflow API server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repos.close()

	// Restock feeds come from S3 when enabled, falling back to the local feed directory
	fileLoader := restock.NewFileLoader(cfg.Restock.FeedDir, logger)
	var feedLoader restock.Loader = fileLoader
	if cfg.S3.Enabled {
		s3Loader, err := restock.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			feedLoader = restock.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, logger)
		}
	} else {
		logger.Info().Str("dir", cfg.Restock.FeedDir).Msg("using local file system for restock feeds (S3 disabled)")
	}
	importer := restock.NewImporter(feedLoader, repos.tx, repos.stock, logger)

	orderService := service.NewOrderService(
		repos.tx, repos.orders, repos.catalog, repos.carts,
		repos.stock, repos.wallets, repos.outbox, logger,
	)
	walletService := service.NewWalletService(repos.wallets, logger)
	stockService := service.NewStockService(repos.stock, importer, logger)

	mux := router.New(router.Handlers{
		Orders: handler.NewOrderHandler(orderService, logger),
		Wallet: handler.NewWalletHandler(walletService, logger),
		Stock:  handler.NewStockHandler(stockService, logger),
	}, cfg.Auth.APIKey, logger)

	var publisher events.Publisher
	if cfg.Events.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, logger)
	} else {
		publisher = events.NewLogPublisher(logger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()
	relay := events.NewRelay(repos.outbox, publisher, cfg.Events.RelayInterval, cfg.Events.BatchSize, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return relay.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
		return nil
	})

	return g.Wait()
}

// openStorage builds the repositories for the configured storage driver.
func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repositories, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		store := memory.NewStore(logger)
		if cfg.Storage.SeedFile != "" {
			seed, err := memory.LoadSeedFile(cfg.Storage.SeedFile)
			if err != nil {
				return nil, err
			}
			if err := seed.Apply(store); err != nil {
				return nil, fmt.Errorf("failed to seed memory store: %w", err)
			}
		}
		r := store.Repositories()
		return &repositories{
			tx:      r.Transactor,
			orders:  r.Orders,
			catalog: r.Catalog,
			carts:   r.Carts,
			stock:   r.Stock,
			wallets: r.Wallets,
			outbox:  r.Outbox,
			close:   func() {},
		}, nil

	default:
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &repositories{
			tx:      repository.NewTransactor(pool, logger),
			orders:  repository.NewOrderRepository(pool, logger),
			catalog: repository.NewCatalogRepository(pool, logger),
			carts:   repository.NewCartRepository(pool, logger),
			stock:   repository.NewStockLedger(pool, logger),
			wallets: repository.NewWalletLedger(pool, logger),
			outbox:  repository.NewOutboxRepository(pool, logger),
			close:   pool.Close,
		}, nil
	}
}
