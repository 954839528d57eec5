package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/utof/debtds/internal/infra/storage"
)

// KVRepo implements storage.KVStore on the kv_entries table.
type KVRepo struct {
	db *DB
}

var _ storage.KVStore = (*KVRepo)(nil)

// NewKVRepo creates a new PostgreSQL key/value repository.
func NewKVRepo(db *DB) *KVRepo {
	return &KVRepo{db: db}
}

// Load returns every entry of a namespace.
func (r *KVRepo) Load(ctx context.Context, namespace string) (map[string][]byte, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value []byte `db:"value"`
	}
	query := `SELECT key, value FROM kv_entries WHERE namespace = $1`
	if err := r.db.SelectContext(ctx, &rows, query, namespace); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", namespace, err)
	}

	out := make(map[string][]byte, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// Put upserts entries in a single transaction.
func (r *KVRepo) Put(ctx context.Context, namespace string, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO kv_entries (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	for k, v := range entries {
		if _, err := tx.ExecContext(ctx, query, namespace, k, string(v)); err != nil {
			return fmt.Errorf("failed to upsert %s/%s: %w", namespace, k, err)
		}
	}
	return tx.Commit()
}

// Delete removes keys from a namespace.
func (r *KVRepo) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM kv_entries WHERE namespace = ? AND key IN (?)`, namespace, keys)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", namespace, err)
	}
	return nil
}

// Close is a no-op; the DB is shared with the failed pair repository and
// closed by its owner.
func (r *KVRepo) Close() error {
	return nil
}
