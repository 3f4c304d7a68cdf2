// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
//
// records holds the serialized pool and position state keyed by
// (kind, derived address); the data column carries the exact wire layout
// of the deployed program's accounts. accounts is the custody ledger:
// balances are NUMERIC(20,0) because BIGINT cannot represent the full
// unsigned 64-bit range.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS records (
			kind VARCHAR(16) NOT NULL,
			address BYTEA NOT NULL,
			data BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (kind, address),
			CONSTRAINT records_address_length CHECK (octet_length(address) = 32)
		);
		CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);

		CREATE TABLE IF NOT EXISTS accounts (
			address BYTEA PRIMARY KEY,
			balance NUMERIC(20, 0) NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT accounts_address_length CHECK (octet_length(address) = 32),
			CONSTRAINT accounts_balance_non_negative CHECK (balance >= 0)
		);

		CREATE TABLE IF NOT EXISTS pool_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			agent BYTEA NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			total_staked NUMERIC(20, 0) NOT NULL,
			total_shares_bps NUMERIC(20, 0) NOT NULL,
			vault_balance NUMERIC(20, 0) NOT NULL,
			open_positions INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_agent ON pool_snapshots(agent, snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_pool_snapshots_timestamp ON pool_snapshots(snapshot_timestamp DESC);

		CREATE TABLE IF NOT EXISTS operations_log (
			op_seq BIGSERIAL PRIMARY KEY,
			op_id VARCHAR(64) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			agent BYTEA NOT NULL,
			actor BYTEA NOT NULL,
			amount NUMERIC(20, 0) NOT NULL DEFAULT 0,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT operations_log_agent_length CHECK (octet_length(agent) = 32),
			CONSTRAINT operations_log_actor_length CHECK (octet_length(actor) = 32)
		);
		CREATE INDEX IF NOT EXISTS idx_operations_log_agent ON operations_log(agent, op_seq DESC);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
