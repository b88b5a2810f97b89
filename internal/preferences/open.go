package preferences

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tekradar/userstate/internal/config"
)

// Open creates the backend selected by cfg, wrapped with operation metrics.
func Open(ctx context.Context, cfg config.StoreConfig, logger *logrus.Entry) (Store, error) {
	log := logger.WithField("backend", cfg.Backend)

	var st Store
	switch cfg.Backend {
	case config.BackendMemory:
		st = NewMemoryStore()
	case config.BackendSQLite:
		s, err := NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite store: %w", err)
		}
		st = s
		log = log.WithField("path", cfg.SQLite.Path)
	case config.BackendRedis:
		s, err := NewRedisStore(cfg.Redis.URL, RedisOptions{
			KeyPrefix:    cfg.Redis.KeyPrefix,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("creating redis store: %w", err)
		}
		st = s
	case config.BackendNATS:
		s, err := NewNATSStore(cfg.NATS.URL, cfg.NATS.Bucket)
		if err != nil {
			return nil, fmt.Errorf("creating nats store: %w", err)
		}
		st = s
		log = log.WithField("bucket", cfg.NATS.Bucket)
	case config.BackendPostgres:
		s, err := NewPostgresStore(ctx, cfg.Postgres.URL, cfg.Postgres.Table, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		st = s
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	log.Debug("preference store opened")
	return Instrumented(st, cfg.Backend), nil
}
