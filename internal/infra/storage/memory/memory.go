package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/infra/storage"
)

type MemoryStorage struct {
	entries map[string]map[string][]byte
	failed  map[string]*domain.FailedPair
	mu      sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]map[string][]byte),
		failed:  make(map[string]*domain.FailedPair),
	}
}

// -----------------------------------------------------------------------------
// KV Store
// -----------------------------------------------------------------------------

func (s *MemoryStorage) Load(ctx context.Context, namespace string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.entries[namespace]))
	for k, v := range s.entries[namespace] {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (s *MemoryStorage) Put(ctx context.Context, namespace string, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.entries[namespace]
	if !ok {
		ns = make(map[string][]byte, len(entries))
		s.entries[namespace] = ns
	}
	for k, v := range entries {
		ns[k] = append([]byte(nil), v...)
	}
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, namespace string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries[namespace], k)
	}
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

// Snapshot copies a namespace, for tests and status output.
func (s *MemoryStorage) Snapshot(namespace string) map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.entries[namespace])
}

// -----------------------------------------------------------------------------
// Failed Pair Repository
// -----------------------------------------------------------------------------

type FailedRepo struct {
	store *MemoryStorage
}

func NewFailedRepo(store *MemoryStorage) *FailedRepo {
	return &FailedRepo{store: store}
}

var _ storage.FailedPairRepository = (*FailedRepo)(nil)

func (r *FailedRepo) Add(ctx context.Context, fp *domain.FailedPair) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *fp
	r.store.failed[fp.ID] = &cp
	return nil
}

func (r *FailedRepo) Find(ctx context.Context, job, key string) (*domain.FailedPair, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, fp := range r.store.failed {
		if fp.Job == job && fp.Key == key && fp.Status == domain.FailedPairStatusPending {
			cp := *fp
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *FailedRepo) IncrementRetry(ctx context.Context, id string, errMsg string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	fp, ok := r.store.failed[id]
	if !ok {
		return storage.ErrFailedPairNotFound
	}
	fp.RetryCount++
	fp.Error = errMsg
	fp.LastAttempt = time.Now()
	return nil
}

func (r *FailedRepo) MarkResolved(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	fp, ok := r.store.failed[id]
	if !ok {
		return storage.ErrFailedPairNotFound
	}
	fp.Status = domain.FailedPairStatusResolved
	return nil
}

func (r *FailedRepo) GetAll(ctx context.Context, job string) ([]*domain.FailedPair, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.FailedPair
	for _, fp := range r.store.failed {
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

func (r *FailedRepo) Count(ctx context.Context, job string) (int, error) {
	all, _ := r.GetAll(ctx, job)
	return len(all), nil
}
