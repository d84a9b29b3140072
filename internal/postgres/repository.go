package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gamedev-cards/internal/config"
)

// Repository provides PostgreSQL-based storage for the explorer directory,
// the pending-operation ledger and the relayed chain events
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS directory_entries (
			profile_id VARCHAR(66) PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			owner VARCHAR(66) NOT NULL DEFAULT '',
			name VARCHAR(255) NOT NULL,
			bio TEXT NOT NULL DEFAULT '',
			game_count INT NOT NULL DEFAULT 0,
			level INT NOT NULL DEFAULT 1,
			tags TEXT[] NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS pending_operations (
			id VARCHAR(36) PRIMARY KEY,
			kind VARCHAR(20) NOT NULL,
			address VARCHAR(66) NOT NULL,
			profile_id VARCHAR(66) NOT NULL DEFAULT '',
			game_id VARCHAR(66) NOT NULL DEFAULT '',
			game JSONB,
			known_game_ids JSONB,
			name VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL,
			digest VARCHAR(64) NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chain_events (
			id BIGSERIAL PRIMARY KEY,
			digest VARCHAR(64) NOT NULL,
			event_seq VARCHAR(20) NOT NULL DEFAULT '0',
			event_type VARCHAR(32) NOT NULL,
			sender VARCHAR(66) NOT NULL,
			profile_id VARCHAR(66) NOT NULL DEFAULT '',
			game_id VARCHAR(66) NOT NULL DEFAULT '',
			emitted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(digest, event_seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_directory_owner ON directory_entries(owner)`,
		`CREATE INDEX IF NOT EXISTS idx_directory_level ON directory_entries(level DESC)`,
		`ALTER TABLE pending_operations ADD COLUMN IF NOT EXISTS known_game_ids JSONB`,
		`CREATE INDEX IF NOT EXISTS idx_pending_address ON pending_operations(address, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_chain_events_sender ON chain_events(sender, created_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}
