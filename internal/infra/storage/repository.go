package storage

import (
	"context"
	"errors"

	"github.com/utof/debtds/internal/core/domain"
)

var (
	// ErrFailedPairNotFound is returned when a ledger entry doesn't exist
	ErrFailedPairNotFound = errors.New("failed pair not found")
)

// KVStore persists namespaced key/value entries. Values are JSON documents.
type KVStore interface {
	// Load returns every entry of a namespace. A missing namespace is empty.
	Load(ctx context.Context, namespace string) (map[string][]byte, error)

	// Put upserts entries into a namespace
	Put(ctx context.Context, namespace string, entries map[string][]byte) error

	// Delete removes keys from a namespace
	Delete(ctx context.Context, namespace string, keys ...string) error

	// Close releases the underlying connection or file handles
	Close() error
}

// FailedPairRepository handles the ledger of keys waiting for a retry
type FailedPairRepository interface {
	// Add adds a failed pair
	Add(ctx context.Context, fp *domain.FailedPair) error

	// Find returns the pending entry for a job key, or nil if there is none
	Find(ctx context.Context, job, key string) (*domain.FailedPair, error)

	// IncrementRetry increments the retry count and stores the latest error
	IncrementRetry(ctx context.Context, id string, errMsg string) error

	// MarkResolved marks an entry as resolved
	MarkResolved(ctx context.Context, id string) error

	// GetAll returns all pending entries of a job
	GetAll(ctx context.Context, job string) ([]*domain.FailedPair, error)

	// Count returns the number of pending entries of a job
	Count(ctx context.Context, job string) (int, error)
}
