package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/infra/storage"
)

// Namespace is where StoreRepository keeps its entries.
const Namespace = "failed_pairs"

// StoreRepository implements storage.FailedPairRepository on a KVStore, so
// the ledger can live next to the JSON caches. Entries are keyed by id.
type StoreRepository struct {
	store storage.KVStore

	mu      sync.Mutex
	entries map[string]*domain.FailedPair
}

var _ storage.FailedPairRepository = (*StoreRepository)(nil)

// NewStoreRepository loads the ledger namespace of store.
func NewStoreRepository(ctx context.Context, store storage.KVStore) (*StoreRepository, error) {
	raw, err := store.Load(ctx, Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to load failure ledger: %w", err)
	}
	r := &StoreRepository{store: store, entries: make(map[string]*domain.FailedPair, len(raw))}
	for id, data := range raw {
		var fp domain.FailedPair
		if err := json.Unmarshal(data, &fp); err != nil {
			continue
		}
		r.entries[id] = &fp
	}
	return r, nil
}

func (r *StoreRepository) persist(ctx context.Context, fp *domain.FailedPair) error {
	data, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("failed to marshal failed pair: %w", err)
	}
	return r.store.Put(ctx, Namespace, map[string][]byte{fp.ID: data})
}

func (r *StoreRepository) Add(ctx context.Context, fp *domain.FailedPair) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *fp
	r.entries[cp.ID] = &cp
	return r.persist(ctx, &cp)
}

func (r *StoreRepository) Find(ctx context.Context, job, key string) (*domain.FailedPair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fp := range r.entries {
		if fp.Job == job && fp.Key == key && fp.Status == domain.FailedPairStatusPending {
			cp := *fp
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *StoreRepository) IncrementRetry(ctx context.Context, id string, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fp, ok := r.entries[id]
	if !ok {
		return storage.ErrFailedPairNotFound
	}
	fp.RetryCount++
	fp.Error = errMsg
	fp.LastAttempt = time.Now()
	return r.persist(ctx, fp)
}

func (r *StoreRepository) MarkResolved(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fp, ok := r.entries[id]
	if !ok {
		return storage.ErrFailedPairNotFound
	}
	fp.Status = domain.FailedPairStatusResolved
	return r.persist(ctx, fp)
}

func (r *StoreRepository) GetAll(ctx context.Context, job string) ([]*domain.FailedPair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.FailedPair
	for _, fp := range r.entries {
		if fp.Job == job && fp.Status == domain.FailedPairStatusPending {
			cp := *fp
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *domain.FailedPair) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (r *StoreRepository) Count(ctx context.Context, job string) (int, error) {
	all, err := r.GetAll(ctx, job)
	return len(all), err
}
