// Package database opens the PostgreSQL pool and applies the schema.
package database

import (
	"context"
	"fmt"
	"time"

	"shopflow/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

// NewPool opens a pool sized from cfg and waits for the server to answer a ping,
// retrying while it starts up. Queries are traced at debug level.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   queryLogger{logger.With().Str("component", "pgx").Logger()},
		LogLevel: tracelog.LogLevelDebug,
	}

	log := logger.With().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Logger()
	log.Info().
		Int("max_connections", cfg.MaxConnections).
		Int("min_connections", cfg.MinConnections).
		Msg("creating database connection pool")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := ping(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().Msg("database connection pool ready")
	return pool, nil
}

func ping(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("database not reachable yet")
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to ping database: %w", ctx.Err())
		case <-time.After(connectBackoff):
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", connectAttempts, err)
}

// queryLogger adapts zerolog to pgx's trace logger.
type queryLogger struct {
	logger zerolog.Logger
}

func (l queryLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var ev *zerolog.Event
	switch level {
	case tracelog.LogLevelTrace:
		ev = l.logger.Trace()
	case tracelog.LogLevelDebug:
		ev = l.logger.Debug()
	case tracelog.LogLevelInfo:
		ev = l.logger.Info()
	case tracelog.LogLevelWarn:
		ev = l.logger.Warn()
	case tracelog.LogLevelError:
		ev = l.logger.Error()
	default:
		ev = l.logger.Debug()
	}
	ev.Fields(data).Msg(msg)
}
