package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"statsvc/config"
	"statsvc/internal/models"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS data_records (
	request_id UUID PRIMARY KEY,
	timestamp  TIMESTAMPTZ NOT NULL,
	mean       DOUBLE PRECISION NOT NULL,
	std_dev    DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_data_records_timestamp ON data_records (timestamp);
`

const (
	pgInsertRecord = `INSERT INTO data_records (request_id, timestamp, mean, std_dev) VALUES ($1, $2, $3, $4)`
	pgSelectRecord = `SELECT request_id::text, timestamp, mean, std_dev FROM data_records WHERE request_id = $1`
)

// pgUniqueViolation is the SQLSTATE for duplicate keys
const pgUniqueViolation = "23505"

// PostgresStore implements Store on a pgx connection pool
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgresStore connects a pool sized from cfg and verifies it with a ping
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig, logger *log.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MinConns = int32(cfg.MinConnections)
	poolCfg.MaxConnIdleTime = cfg.IdleTimeout()
	poolCfg.MaxConnLifetime = cfg.Lifetime()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Printf("Store: connected to PostgreSQL (max_conns=%d, min_conns=%d)", poolCfg.MaxConns, poolCfg.MinConns)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// EnsureSchema creates the records table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save inserts the record in a transaction, rolling back on any failure
func (s *PostgresStore) Save(ctx context.Context, rec *models.ProcessedRecord) (*models.ProcessedRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		s.logger.Printf("Store: failed to begin transaction (RequestID: %s): %v", rec.RequestID, err)
		return nil, fmt.Errorf("%w: begin: %v", ErrStorageWriteFailed, err)
	}

	_, err = tx.Exec(ctx, pgInsertRecord, rec.RequestID.String(), rec.Timestamp.UTC(), rec.Mean, rec.StdDev)
	if err != nil {
		s.rollback(ctx, tx, rec.RequestID)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			s.logger.Printf("Store: duplicate request id %s rejected by primary key", rec.RequestID)
		} else {
			s.logger.Printf("Store: error inserting record (RequestID: %s): %v", rec.RequestID, err)
		}
		return nil, fmt.Errorf("%w: insert: %v", ErrStorageWriteFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		s.rollback(ctx, tx, rec.RequestID)
		s.logger.Printf("Store: error committing record (RequestID: %s): %v", rec.RequestID, err)
		return nil, fmt.Errorf("%w: commit: %v", ErrStorageWriteFailed, err)
	}

	return rec, nil
}

func (s *PostgresStore) rollback(ctx context.Context, tx pgx.Tx, id uuid.UUID) {
	// The request context may already be done; rollback must still run
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := tx.Rollback(rbCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.logger.Printf("Store: rollback failed (RequestID: %s): %v", id, err)
	}
}

// FindByID looks a record up by primary key
func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.ProcessedRecord, error) {
	var (
		idText string
		rec    models.ProcessedRecord
	)
	err := s.pool.QueryRow(ctx, pgSelectRecord, id.String()).Scan(&idText, &rec.Timestamp, &rec.Mean, &rec.StdDev)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to query record %s: %w", id, err)
	}

	rec.RequestID, err = uuid.Parse(idText)
	if err != nil {
		return nil, fmt.Errorf("stored request id %q is not a UUID: %w", idText, err)
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return &rec, nil
}

// Ping checks the pool can reach the server
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes all pooled connections
func (s *PostgresStore) Close() {
	s.logger.Println("Store: closing PostgreSQL pool...")
	s.pool.Close()
}

var _ Store = (*PostgresStore)(nil) // Compile-time interface check
