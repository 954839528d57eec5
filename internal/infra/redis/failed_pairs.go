package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/infra/storage"
)

const failedPairTTL = 30 * 24 * time.Hour

// FailedPairRepo implements FailedPairRepository using Redis.
//
// Entries live in a sorted set per job (score = retry count, lower retries
// first) with the JSON body stored under its own key and a job+key -> id
// hash for lookups.
type FailedPairRepo struct {
	client *Client
}

var _ storage.FailedPairRepository = (*FailedPairRepo)(nil)

// NewFailedPairRepo creates a new Redis-backed failed pair repository.
func NewFailedPairRepo(client *Client) *FailedPairRepo {
	return &FailedPairRepo{client: client}
}

func (r *FailedPairRepo) save(ctx context.Context, fp *domain.FailedPair) error {
	data, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("failed to marshal failed pair: %w", err)
	}
	if err := r.client.rdb.Set(ctx, r.client.failedPairKey(fp.ID), data, failedPairTTL).Err(); err != nil {
		return fmt.Errorf("failed to set failed pair: %w", err)
	}
	return nil
}

func (r *FailedPairRepo) load(ctx context.Context, id string) (*domain.FailedPair, error) {
	data, err := r.client.rdb.Get(ctx, r.client.failedPairKey(id)).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrFailedPairNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failed pair: %w", err)
	}
	var fp domain.FailedPair
	if err := json.Unmarshal(data, &fp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed pair: %w", err)
	}
	return &fp, nil
}

// Add adds a failed pair to the queue.
func (r *FailedPairRepo) Add(ctx context.Context, fp *domain.FailedPair) error {
	if err := r.save(ctx, fp); err != nil {
		return err
	}
	if err := r.client.rdb.ZAdd(ctx, r.client.failedQueueKey(fp.Job), redis.Z{
		Score:  float64(fp.RetryCount),
		Member: fp.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}
	if err := r.client.rdb.HSet(ctx, r.client.failedIndexKey(fp.Job), fp.Key, fp.ID).Err(); err != nil {
		return fmt.Errorf("failed to index failed pair: %w", err)
	}
	return nil
}

// Find returns the pending entry for a job key.
func (r *FailedPairRepo) Find(ctx context.Context, job, key string) (*domain.FailedPair, error) {
	id, err := r.client.rdb.HGet(ctx, r.client.failedIndexKey(job), key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hget failed: %w", err)
	}
	fp, err := r.load(ctx, id)
	if err == storage.ErrFailedPairNotFound {
		// Body expired but index still points at it
		r.client.rdb.HDel(ctx, r.client.failedIndexKey(job), key)
		r.client.rdb.ZRem(ctx, r.client.failedQueueKey(job), id)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fp, nil
}

// IncrementRetry increments retry count and updates last attempt.
func (r *FailedPairRepo) IncrementRetry(ctx context.Context, id string, errMsg string) error {
	fp, err := r.load(ctx, id)
	if err != nil {
		return err
	}

	fp.RetryCount++
	fp.Error = errMsg
	fp.LastAttempt = time.Now()

	if err := r.save(ctx, fp); err != nil {
		return err
	}

	// Higher retry count = lower priority
	if err := r.client.rdb.ZAdd(ctx, r.client.failedQueueKey(fp.Job), redis.Z{
		Score:  float64(fp.RetryCount),
		Member: id,
	}).Err(); err != nil {
		return fmt.Errorf("failed to update queue: %w", err)
	}
	return nil
}

// MarkResolved removes a failed pair (successfully retried).
func (r *FailedPairRepo) MarkResolved(ctx context.Context, id string) error {
	fp, err := r.load(ctx, id)
	if err == storage.ErrFailedPairNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.client.rdb.ZRem(ctx, r.client.failedQueueKey(fp.Job), id).Err(); err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	if err := r.client.rdb.HDel(ctx, r.client.failedIndexKey(fp.Job), fp.Key).Err(); err != nil {
		return fmt.Errorf("failed to remove from index: %w", err)
	}
	if err := r.client.rdb.Del(ctx, r.client.failedPairKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete failed pair: %w", err)
	}
	return nil
}

// GetAll retrieves all pending failed pairs of a job.
func (r *FailedPairRepo) GetAll(ctx context.Context, job string) ([]*domain.FailedPair, error) {
	ids, err := r.client.rdb.ZRange(ctx, r.client.failedQueueKey(job), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	pairs := make([]*domain.FailedPair, 0, len(ids))
	for _, id := range ids {
		fp, err := r.load(ctx, id)
		if err == storage.ErrFailedPairNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, fp)
	}
	return pairs, nil
}

// Count returns the count of pending failed pairs.
func (r *FailedPairRepo) Count(ctx context.Context, job string) (int, error) {
	count, err := r.client.rdb.ZCard(ctx, r.client.failedQueueKey(job)).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}
