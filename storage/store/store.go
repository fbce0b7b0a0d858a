package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"statsvc/internal/models"
)

// TableName is the single table holding processed records
const TableName = "data_records"

var (
	// ErrRecordNotFound is returned by FindByID when no row has the id
	ErrRecordNotFound = errors.New("record not found")
	// ErrStorageWriteFailed wraps every failed, rolled back write
	ErrStorageWriteFailed = errors.New("storage write failed")
)

// Store persists processed records and looks them up by request id.
// Records are insert-only; there is no update or delete path.
type Store interface {
	// EnsureSchema creates the records table and its indexes if absent
	EnsureSchema(ctx context.Context) error

	// Save inserts rec as a new row in its own transaction. On failure the
	// transaction is rolled back, the cause is logged and the returned error
	// wraps ErrStorageWriteFailed.
	Save(ctx context.Context, rec *models.ProcessedRecord) (*models.ProcessedRecord, error)

	// FindByID returns ErrRecordNotFound when the id is unknown
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProcessedRecord, error)

	// Ping checks the storage engine is reachable
	Ping(ctx context.Context) error

	// Close releases the connection pool
	Close()
}
