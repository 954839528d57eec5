package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/infra/storage"
)

// FailedPairRepo implements storage.FailedPairRepository using PostgreSQL.
type FailedPairRepo struct {
	db *DB
}

var _ storage.FailedPairRepository = (*FailedPairRepo)(nil)

// NewFailedPairRepo creates a new PostgreSQL failed pair repository.
func NewFailedPairRepo(db *DB) *FailedPairRepo {
	return &FailedPairRepo{db: db}
}

type failedPairRow struct {
	ID          string    `db:"id"`
	Job         string    `db:"job"`
	Key         string    `db:"key"`
	FailureType string    `db:"failure_type"`
	ErrorMsg    string    `db:"error_msg"`
	RetryCount  int       `db:"retry_count"`
	Status      string    `db:"status"`
	LastAttempt time.Time `db:"last_attempt"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row failedPairRow) toDomain() *domain.FailedPair {
	return &domain.FailedPair{
		ID:          row.ID,
		Job:         row.Job,
		Key:         row.Key,
		FailureType: domain.FailureType(row.FailureType),
		Error:       row.ErrorMsg,
		RetryCount:  row.RetryCount,
		Status:      domain.FailedPairStatus(row.Status),
		LastAttempt: row.LastAttempt,
		CreatedAt:   row.CreatedAt,
	}
}

const failedPairColumns = `id, job, key, failure_type, error_msg, retry_count, status, last_attempt, created_at`

// Add adds a failed pair.
func (r *FailedPairRepo) Add(ctx context.Context, fp *domain.FailedPair) error {
	query := `
		INSERT INTO failed_pairs (id, job, key, failure_type, error_msg, retry_count, status, last_attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	status := string(fp.Status)
	if status == "" {
		status = string(domain.FailedPairStatusPending)
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		fp.ID,
		fp.Job,
		fp.Key,
		string(fp.FailureType),
		fp.Error,
		fp.RetryCount,
		status,
	)
	if err != nil {
		return fmt.Errorf("failed to add failed pair: %w", err)
	}
	return nil
}

// Find returns the pending entry of a job key.
func (r *FailedPairRepo) Find(ctx context.Context, job, key string) (*domain.FailedPair, error) {
	query := `SELECT ` + failedPairColumns + `
		FROM failed_pairs
		WHERE job = $1 AND key = $2 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`
	var row failedPairRow
	err := r.db.GetContext(ctx, &row, query, job, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failed pair: %w", err)
	}
	return row.toDomain(), nil
}

// IncrementRetry increments retry count and updates timestamp.
func (r *FailedPairRepo) IncrementRetry(ctx context.Context, id string, errMsg string) error {
	query := `
		UPDATE failed_pairs
		SET retry_count = retry_count + 1, error_msg = $2, last_attempt = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, errMsg)
	if err != nil {
		return fmt.Errorf("failed to increment retry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrFailedPairNotFound
	}
	return nil
}

// MarkResolved marks a failed pair as resolved.
func (r *FailedPairRepo) MarkResolved(ctx context.Context, id string) error {
	query := `
		UPDATE failed_pairs
		SET status = 'resolved'
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// GetAll returns all pending failed pairs of a job.
func (r *FailedPairRepo) GetAll(ctx context.Context, job string) ([]*domain.FailedPair, error) {
	query := `SELECT ` + failedPairColumns + `
		FROM failed_pairs
		WHERE job = $1 AND status = 'pending'
		ORDER BY created_at ASC
	`
	var rows []failedPairRow
	if err := r.db.SelectContext(ctx, &rows, query, job); err != nil {
		return nil, fmt.Errorf("failed to get all failed pairs: %w", err)
	}

	pairs := make([]*domain.FailedPair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, row.toDomain())
	}
	return pairs, nil
}

// Count returns the number of pending failed pairs.
func (r *FailedPairRepo) Count(ctx context.Context, job string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM failed_pairs
		WHERE job = $1 AND status = 'pending'
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query, job); err != nil {
		return 0, fmt.Errorf("failed to count failed pairs: %w", err)
	}
	return count, nil
}
