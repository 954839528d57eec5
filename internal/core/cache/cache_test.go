package cache

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/infra/storage/jsonfile"
	"github.com/utof/debtds/internal/infra/storage/memory"
)

type failingStore struct {
	*memory.MemoryStorage
	putErr error
}

func (s *failingStore) Put(ctx context.Context, namespace string, entries map[string][]byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	return s.MemoryStorage.Put(ctx, namespace, entries)
}

func TestCache_SetFlushReopen(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()

	c, err := Open[domain.Result](ctx, store, "results")
	require.NoError(t, err)

	_, ok := c.Get("1|2")
	assert.False(t, ok)

	c.Set("1|2", domain.SingleResult("a & b"))
	assert.Empty(t, store.Snapshot("results"), "Set must not write before Flush")

	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, `"a & b"`, string(store.Snapshot("results")["1|2"]))

	reopened, err := Open[domain.Result](ctx, store, "results")
	require.NoError(t, err)
	got, ok := reopened.Get("1|2")
	require.True(t, ok)
	assert.Equal(t, domain.SingleResult("a & b"), got)
}

func TestCache_SkipsUndecodableEntries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	require.NoError(t, store.Put(ctx, "search", map[string][]byte{
		"good": []byte(`["A"]`),
		"bad":  []byte(`42`),
	}))

	c, err := Open[domain.SearchState](ctx, store, "search")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Has("good"))
	assert.False(t, c.Has("bad"))
}

func TestCache_FailedFlushKeepsDirty(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStorage: memory.NewMemoryStorage(), putErr: errors.New("disk full")}

	c, err := Open[string](ctx, store, "ns")
	require.NoError(t, err)
	c.Set("k", "v")
	require.Error(t, c.Flush(ctx))

	store.putErr = nil
	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, `"v"`, string(store.Snapshot("ns")["k"]))
}

func TestCache_DeleteAndKeys(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	c, err := Open[string](ctx, store, "ns")
	require.NoError(t, err)

	c.Set("b", "2")
	c.Set("a", "1")
	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, []string{"a", "b"}, c.Keys())

	require.NoError(t, c.Delete(ctx, "a"))
	assert.Equal(t, []string{"b"}, c.Keys())
	assert.NotContains(t, store.Snapshot("ns"), "a")
}

func TestFlushAll_AggregatesErrors(t *testing.T) {
	ctx := context.Background()
	bad := &failingStore{MemoryStorage: memory.NewMemoryStorage(), putErr: errors.New("boom")}

	c1, err := Open[string](ctx, bad, "one")
	require.NoError(t, err)
	c2, err := Open[string](ctx, bad, "two")
	require.NoError(t, err)
	c1.Set("k", "v")
	c2.Set("k", "v")

	err = FlushAll(ctx, c1, c2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one")
	assert.Contains(t, err.Error(), "two")
}

func TestCache_JSONFileKeepsURLsReadable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	const link = "01.03.2024: http://x/a.pdf?id=1&stamp=True"

	store, err := jsonfile.New(dir)
	require.NoError(t, err)
	c, err := Open[domain.Result](ctx, store, "results")
	require.NoError(t, err)
	c.Set("1|2", domain.SingleResult(link))
	require.NoError(t, c.Flush(ctx))

	data, err := os.ReadFile(store.Path("results"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "id=1&stamp=True")
	assert.NotContains(t, string(data), `\u0026`)

	reloaded, err := jsonfile.New(dir)
	require.NoError(t, err)
	c, err = Open[domain.Result](ctx, reloaded, "results")
	require.NoError(t, err)
	got, ok := c.Get("1|2")
	require.True(t, ok)
	assert.Equal(t, domain.SingleResult(link), got)
}
