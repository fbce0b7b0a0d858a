package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"statsvc/config"
	"statsvc/internal/models"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS data_records (
	request_id TEXT PRIMARY KEY,
	timestamp  TEXT NOT NULL,
	mean       REAL NOT NULL,
	std_dev    REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_data_records_timestamp ON data_records (timestamp);
`

const (
	sqliteInsertRecord = `INSERT INTO data_records (request_id, timestamp, mean, std_dev) VALUES (?, ?, ?, ?)`
	sqliteSelectRecord = `SELECT request_id, timestamp, mean, std_dev FROM data_records WHERE request_id = ?`
)

// sqliteTimeLayout is fixed width so text order matches time order
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteMemoryDSN = ":memory:"

// SQLiteStore implements Store on an embedded SQLite database
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSQLiteStore opens the database file named by cfg.DSN
func NewSQLiteStore(ctx context.Context, cfg config.DatabaseConfig, logger *log.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if cfg.DSN == sqliteMemoryDSN {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MinConnections)
	}
	db.SetConnMaxIdleTime(cfg.IdleTimeout())
	db.SetConnMaxLifetime(cfg.Lifetime())

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	logger.Printf("Store: opened SQLite database (max_conns=%d)", cfg.MaxConnections)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// sqliteDSN appends the pragmas every connection needs
func sqliteDSN(path string) string {
	if path == sqliteMemoryDSN {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

// EnsureSchema creates the records table if it does not exist
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save inserts the record in a transaction, rolling back on any failure
func (s *SQLiteStore) Save(ctx context.Context, rec *models.ProcessedRecord) (*models.ProcessedRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Printf("Store: failed to begin transaction (RequestID: %s): %v", rec.RequestID, err)
		return nil, fmt.Errorf("%w: begin: %v", ErrStorageWriteFailed, err)
	}

	_, err = tx.ExecContext(ctx, sqliteInsertRecord,
		rec.RequestID.String(), rec.Timestamp.UTC().Format(sqliteTimeLayout), rec.Mean, rec.StdDev)
	if err != nil {
		s.rollback(tx, rec.RequestID)
		s.logger.Printf("Store: error inserting record (RequestID: %s): %v", rec.RequestID, err)
		return nil, fmt.Errorf("%w: insert: %v", ErrStorageWriteFailed, err)
	}

	if err := tx.Commit(); err != nil {
		s.rollback(tx, rec.RequestID)
		s.logger.Printf("Store: error committing record (RequestID: %s): %v", rec.RequestID, err)
		return nil, fmt.Errorf("%w: commit: %v", ErrStorageWriteFailed, err)
	}

	return rec, nil
}

func (s *SQLiteStore) rollback(tx *sql.Tx, id uuid.UUID) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.Printf("Store: rollback failed (RequestID: %s): %v", id, err)
	}
}

// FindByID looks a record up by primary key
func (s *SQLiteStore) FindByID(ctx context.Context, id uuid.UUID) (*models.ProcessedRecord, error) {
	var (
		idText, tsText string
		rec            models.ProcessedRecord
	)
	err := s.db.QueryRowContext(ctx, sqliteSelectRecord, id.String()).Scan(&idText, &tsText, &rec.Mean, &rec.StdDev)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to query record %s: %w", id, err)
	}

	if rec.RequestID, err = uuid.Parse(idText); err != nil {
		return nil, fmt.Errorf("stored request id %q is not a UUID: %w", idText, err)
	}
	if rec.Timestamp, err = time.Parse(sqliteTimeLayout, tsText); err != nil {
		return nil, fmt.Errorf("stored timestamp %q is malformed: %w", tsText, err)
	}
	return &rec, nil
}

// Ping checks the database is usable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle
func (s *SQLiteStore) Close() {
	s.logger.Println("Store: closing SQLite database...")
	if err := s.db.Close(); err != nil {
		s.logger.Printf("Store: error closing SQLite database: %v", err)
	}
}

var _ Store = (*SQLiteStore)(nil) // Compile-time interface check
