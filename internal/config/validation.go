package config

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks struct tags with go-playground/validator, then the settings
// the selected store backend cannot run without.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	s := cfg.Store
	switch s.Backend {
	case BackendSQLite:
		if s.SQLite.Path == "" {
			return fmt.Errorf("config validation failed: store.sqlite.path is required for the sqlite backend")
		}
	case BackendRedis:
		if s.Redis.URL == "" {
			return fmt.Errorf("config validation failed: store.redis.url is required for the redis backend")
		}
	case BackendNATS:
		if s.NATS.URL == "" || s.NATS.Bucket == "" {
			return fmt.Errorf("config validation failed: store.nats.url and store.nats.bucket are required for the nats backend")
		}
	case BackendPostgres:
		if s.Postgres.URL == "" {
			return fmt.Errorf("config validation failed: store.postgres.url is required for the postgres backend")
		}
		if !tableName.MatchString(s.Postgres.Table) {
			return fmt.Errorf("config validation failed: store.postgres.table %q is not a valid identifier", s.Postgres.Table)
		}
	}

	return nil
}
