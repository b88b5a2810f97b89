package preferences

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultPostgresTable is used when no table name is configured.
const DefaultPostgresTable = "user_preferences"

// PostgresStore implements Store in a PostgreSQL table.
type PostgresStore struct {
	db    *pgxpool.Pool
	table string
}

// NewPostgresStore connects to the database at url and creates table when it
// does not exist. table must be a plain SQL identifier; it is quoted but not
// otherwise escaped.
func NewPostgresStore(ctx context.Context, url, table string, maxConns int) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres URL: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if table == "" {
		table = DefaultPostgresTable
	}
	store := &PostgresStore{db: db, table: pgx.Identifier{table}.Sanitize()}
	if err := store.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (p *PostgresStore) initialize(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            key        TEXT PRIMARY KEY,
            value      TEXT NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`, p.table)
	_, err := p.db.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, p.table)

	var value string
	err := p.db.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return value, true, nil
}

func (p *PostgresStore) Set(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, NOW())
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, p.table)

	if _, err := p.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Remove(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, p.table)
	if _, err := p.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("failed to remove preference %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Contains(ctx context.Context, key string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE key = $1)`, p.table)

	var exists bool
	if err := p.db.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check preference %s: %w", key, err)
	}
	return exists, nil
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error {
	p.db.Close()
	return nil
}
