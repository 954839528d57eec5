// Package recovery keeps the ledger of keys that failed with a retryable
// error. The ledger is advisory: a key is done once its result is cached,
// and the ledger only tells operators what is still waiting and how often
// it failed.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/infra/storage"
)

// Ledger records failures and resolutions in a FailedPairRepository.
type Ledger struct {
	repo storage.FailedPairRepository
	now  func() time.Time
}

// NewLedger creates a ledger over repo.
func NewLedger(repo storage.FailedPairRepository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// RecordFailure adds a pending entry for the key, or bumps the retry count
// of the existing one.
func (l *Ledger) RecordFailure(ctx context.Context, job, key string, failureType domain.FailureType, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	existing, err := l.repo.Find(ctx, job, key)
	if err != nil {
		return fmt.Errorf("failed to look up %s/%s: %w", job, key, err)
	}
	if existing != nil {
		if err := l.repo.IncrementRetry(ctx, existing.ID, msg); err != nil {
			return fmt.Errorf("failed to increment retry: %w", err)
		}
		slog.Debug("Failure ledger updated", "job", job, "key", key, "retries", existing.RetryCount+1)
		return nil
	}

	now := l.now()
	fp := &domain.FailedPair{
		ID:          uuid.New().String(),
		Job:         job,
		Key:         key,
		FailureType: failureType,
		Error:       msg,
		RetryCount:  0,
		Status:      domain.FailedPairStatusPending,
		LastAttempt: now,
		CreatedAt:   now,
	}
	if err := l.repo.Add(ctx, fp); err != nil {
		return fmt.Errorf("failed to add failed pair: %w", err)
	}
	return nil
}

// MarkResolved closes the pending entry of a key, if any.
func (l *Ledger) MarkResolved(ctx context.Context, job, key string) error {
	existing, err := l.repo.Find(ctx, job, key)
	if err != nil {
		return fmt.Errorf("failed to look up %s/%s: %w", job, key, err)
	}
	if existing == nil {
		return nil
	}
	if err := l.repo.MarkResolved(ctx, existing.ID); err != nil {
		return fmt.Errorf("failed to resolve %s: %w", existing.ID, err)
	}
	slog.Info("Previously failed key resolved", "job", job, "key", key, "retries", existing.RetryCount)
	return nil
}

// Pending returns the pending entries of a job.
func (l *Ledger) Pending(ctx context.Context, job string) ([]*domain.FailedPair, error) {
	return l.repo.GetAll(ctx, job)
}

// PendingCount returns how many keys of a job are waiting.
func (l *Ledger) PendingCount(ctx context.Context, job string) (int, error) {
	return l.repo.Count(ctx, job)
}
