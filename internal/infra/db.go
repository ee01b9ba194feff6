package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"foundation/internal/metrics"
)

// NewDBPool initializes a new pgx connection pool using the provided configuration.
func NewDBPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = 5
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return pool, nil
}

// MonitorPool publishes pool gauges every interval until ctx ends.
func MonitorPool(ctx context.Context, pool *pgxpool.Pool, interval time.Duration, logger Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		samplePool(ctx, pool, logger)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func samplePool(ctx context.Context, pool *pgxpool.Pool, logger Logger) {
	stats := pool.Stat()
	metrics.DBPoolTotalConns.Set(float64(stats.TotalConns()))
	metrics.DBPoolIdleConns.Set(float64(stats.IdleConns()))

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		metrics.DBStatus.Set(0)
		logger.Warn().Err(err).Msg("database ping failed")
		return
	}
	metrics.DBStatus.Set(1)
}
