// Package config provides configuration loading, validation, and defaults for
// the userstate service and CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendNATS     = "nats"
	BackendPostgres = "postgres"
)

// Config is the top-level configuration for userstate.
type Config struct {
	Log       LogConfig       `yaml:"log"       json:"log"`
	Server    ServerConfig    `yaml:"server"    json:"server"`
	Store     StoreConfig     `yaml:"store"     json:"store"`
	Collector CollectorConfig `yaml:"collector" json:"collector"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"  json:"level"  env:"USERSTATE_LOG_LEVEL"  validate:"omitempty,oneof=trace debug info warn error fatal panic"`
	Format string `yaml:"format" json:"format" env:"USERSTATE_LOG_FORMAT" validate:"omitempty,oneof=text json"`
}

// ServerConfig holds HTTP server settings used by the serve command.
type ServerConfig struct {
	ListenAddress string `yaml:"listen_address" json:"listen_address" env:"USERSTATE_LISTEN_ADDRESS" validate:"required"`
	EnablePprof   bool   `yaml:"enable_pprof"   json:"enable_pprof"   env:"USERSTATE_ENABLE_PPROF"`
}

// StoreConfig selects and configures the preference store backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend"  json:"backend"  env:"USERSTATE_STORE_BACKEND" validate:"required,oneof=memory sqlite redis nats postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"   json:"sqlite"`
	Redis    RedisConfig    `yaml:"redis"    json:"redis"`
	NATS     NATSConfig     `yaml:"nats"     json:"nats"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
}

// SQLiteConfig holds settings for the embedded SQLite backend.
type SQLiteConfig struct {
	Path string `yaml:"path" json:"path" env:"USERSTATE_SQLITE_PATH"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string `yaml:"url"            json:"url"            env:"USERSTATE_REDIS_URL"`
	KeyPrefix    string `yaml:"key_prefix"     json:"key_prefix"     env:"USERSTATE_REDIS_KEY_PREFIX"`
	PoolSize     int    `yaml:"pool_size"      json:"pool_size"      env:"USERSTATE_REDIS_POOL_SIZE"      validate:"omitempty,min=1"`
	MinIdleConns int    `yaml:"min_idle_conns" json:"min_idle_conns" env:"USERSTATE_REDIS_MIN_IDLE_CONNS" validate:"omitempty,min=0"`
}

// NATSConfig holds settings for the JetStream key-value backend.
type NATSConfig struct {
	URL    string `yaml:"url"    json:"url"    env:"USERSTATE_NATS_URL"`
	Bucket string `yaml:"bucket" json:"bucket" env:"USERSTATE_NATS_BUCKET"`
}

// PostgresConfig holds settings for the PostgreSQL backend.
type PostgresConfig struct {
	URL      string `yaml:"url"       json:"url"       env:"USERSTATE_POSTGRES_URL"`
	Table    string `yaml:"table"     json:"table"     env:"USERSTATE_POSTGRES_TABLE"`
	MaxConns int    `yaml:"max_conns" json:"max_conns" env:"USERSTATE_POSTGRES_MAX_CONNS" validate:"omitempty,min=1"`
}

// CollectorConfig controls the Prometheus view of the user state.
type CollectorConfig struct {
	Enabled         bool `yaml:"enabled"          json:"enabled"          env:"USERSTATE_COLLECTOR_ENABLED"`
	IntervalSeconds int  `yaml:"interval_seconds" json:"interval_seconds" env:"USERSTATE_COLLECTOR_INTERVAL_SECONDS" validate:"omitempty,min=1"`
}

// Interval returns the refresh interval as a time.Duration.
func (c CollectorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Load reads a YAML configuration file on top of the defaults, applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	ApplyDefaults(cfg)

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv builds a configuration from defaults and environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv loads a .env file from the working directory when present, then
// overwrites every field carrying an "env" tag whose variable is set. A
// missing .env file is not an error; an unreadable or malformed one is.
func ApplyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env file: %w", err)
	}
	overrideFromEnv(reflect.ValueOf(cfg))
	return nil
}

func overrideFromEnv(v reflect.Value) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		fieldVal := v.Field(i)
		if fieldVal.Kind() == reflect.Struct {
			overrideFromEnv(fieldVal.Addr())
			continue
		}

		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		if raw, ok := os.LookupEnv(name); ok {
			assign(fieldVal, raw)
		}
	}
}

// assign parses raw into field. Unparseable values leave the field untouched.
func assign(field reflect.Value, raw string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(strings.TrimSpace(raw))
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			field.SetInt(n)
		}
	}
}

func redactString(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

// Redacted returns a copy of the Config with connection URLs masked. They may
// embed credentials.
func (c *Config) Redacted() Config {
	cp := *c
	cp.Store.Redis.URL = redactString(cp.Store.Redis.URL)
	cp.Store.NATS.URL = redactString(cp.Store.NATS.URL)
	cp.Store.Postgres.URL = redactString(cp.Store.Postgres.URL)
	return cp
}

// RedactedJSON returns the config as indented JSON with secrets masked.
func (c *Config) RedactedJSON() ([]byte, error) {
	redacted := c.Redacted()
	data, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling redacted config: %w", err)
	}
	return data, nil
}
