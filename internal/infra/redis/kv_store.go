package redis

import (
	"context"
	"fmt"

	"github.com/utof/debtds/internal/infra/storage"
)

// KVStore keeps each namespace in one Redis hash.
type KVStore struct {
	client *Client
}

var _ storage.KVStore = (*KVStore)(nil)

// NewKVStore creates a Redis-backed key/value store.
func NewKVStore(client *Client) *KVStore {
	return &KVStore{client: client}
}

// Load returns every field of the namespace hash.
func (s *KVStore) Load(ctx context.Context, namespace string) (map[string][]byte, error) {
	fields, err := s.client.rdb.HGetAll(ctx, s.client.namespaceKey(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall failed: %w", err)
	}
	out := make(map[string][]byte, len(fields))
	for k, v := range fields {
		out[k] = []byte(v)
	}
	return out, nil
}

// Put writes entries into the namespace hash.
func (s *KVStore) Put(ctx context.Context, namespace string, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]any, 0, len(entries)*2)
	for k, v := range entries {
		values = append(values, k, string(v))
	}
	if err := s.client.rdb.HSet(ctx, s.client.namespaceKey(namespace), values...).Err(); err != nil {
		return fmt.Errorf("hset failed: %w", err)
	}
	return nil
}

// Delete removes fields from the namespace hash.
func (s *KVStore) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.rdb.HDel(ctx, s.client.namespaceKey(namespace), keys...).Err(); err != nil {
		return fmt.Errorf("hdel failed: %w", err)
	}
	return nil
}

// Close is a no-op; the client is closed by its owner.
func (s *KVStore) Close() error {
	return nil
}
