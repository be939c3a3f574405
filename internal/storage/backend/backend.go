// Package backend opens storage implementations by name from flag values.
package backend

import (
	"context"
	"fmt"

	"pipeline-guard/internal/storage"
	chstore "pipeline-guard/internal/storage/clickhouse"
	"pipeline-guard/internal/storage/csvlog"
	"pipeline-guard/internal/storage/memory"
	"pipeline-guard/internal/storage/migrations"
	pgstore "pipeline-guard/internal/storage/postgres"
	redisstore "pipeline-guard/internal/storage/redis"
)

// Backend names accepted by Config.
const (
	CSV        = "csv"
	Memory     = "memory"
	Postgres   = "postgres"
	Clickhouse = "clickhouse"
	Redis      = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	CSVPath       string
	PostgresDSN   string
	ClickhouseDSN string
	RedisAddr     string
	RedisPassword string
	RedisKey      string

	// Migrate applies the embedded schema before use.
	Migrate bool
}

// OpenSampleLog returns the configured sample log and a cleanup func.
func OpenSampleLog(ctx context.Context, cfg Config) (storage.SampleLog, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case "", CSV:
		if cfg.CSVPath == "" {
			return nil, nil, fmt.Errorf("csv backend requires a log path")
		}
		return csvlog.New(cfg.CSVPath), noop, nil

	case Memory:
		return memory.NewSampleLog(), noop, nil

	case Postgres:
		pool, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewSampleLog(pool), pool.Close, nil

	case Clickhouse:
		if cfg.ClickhouseDSN == "" {
			return nil, nil, fmt.Errorf("clickhouse backend requires a dsn")
		}
		var (
			conn *chstore.Conn
			err  error
		)
		if cfg.Migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		return chstore.NewSampleLog(conn), func() { conn.Close() }, nil

	case Redis:
		if cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("redis backend requires an address")
		}
		l, err := redisstore.NewSampleLog(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Key:      cfg.RedisKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return l, func() { l.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown log backend %q", cfg.Backend)
	}
}

// OpenIncidentStore returns the configured incident store and a cleanup func.
// Only memory and postgres are supported.
func OpenIncidentStore(ctx context.Context, cfg Config) (storage.IncidentStore, func(), error) {
	switch cfg.Backend {
	case "", Memory:
		return memory.NewIncidentStore(), func() {}, nil
	case Postgres:
		pool, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewIncidentStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown incident backend %q", cfg.Backend)
	}
}

func openPostgres(ctx context.Context, cfg Config) (*pgstore.Pool, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres backend requires a dsn")
	}
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return pool, nil
}
