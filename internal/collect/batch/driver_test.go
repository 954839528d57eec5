package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utof/debtds/internal/core/cache"
	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/core/quota"
	"github.com/utof/debtds/internal/infra/apicloud"
	"github.com/utof/debtds/internal/infra/storage/memory"
	"github.com/utof/debtds/internal/table"
)

// countingResolver resolves key k to "v:k" unless told otherwise.
type countingResolver struct {
	calls map[string]int
	fail  map[string]error
	part  map[string]bool
}

func newCountingResolver() *countingResolver {
	return &countingResolver{calls: map[string]int{}, fail: map[string]error{}, part: map[string]bool{}}
}

func (r *countingResolver) Resolve(_ context.Context, key string) (Outcome, error) {
	r.calls[key]++
	if err := r.fail[key]; err != nil {
		return Outcome{}, err
	}
	if r.part[key] {
		return Partial(domain.SingleResult("partial:" + key)), nil
	}
	return Resolved(domain.SingleResult("v:" + key)), nil
}

type fakeLedger struct {
	failed   map[string]domain.FailureType
	resolved []string
}

func (l *fakeLedger) RecordFailure(_ context.Context, _, key string, ft domain.FailureType, _ error) error {
	l.failed[key] = ft
	return nil
}

func (l *fakeLedger) MarkResolved(_ context.Context, _, key string) error {
	l.resolved = append(l.resolved, key)
	return nil
}

func pairJob(t *testing.T, store *memory.MemoryStorage, r Resolver) Job {
	t.Helper()
	results, err := cache.Open[domain.Result](context.Background(), store, "results")
	require.NoError(t, err)
	return Job{
		Name: "test",
		Slots: []Slot{{
			Inputs:  []string{"debtor_inn", "creditor_inn"},
			Key:     func(v []string) string { return domain.NewPairKey(v[0], v[1]).String() },
			Outputs: []string{"out"},
		}},
		Resolver: r,
		Results:  results,
	}
}

func pairTable(pairs ...[2]string) *table.Table {
	tbl := &table.Table{Header: []string{"debtor_inn", "creditor_inn"}}
	for _, p := range pairs {
		tbl.Rows = append(tbl.Rows, []string{p[0], p[1]})
	}
	return tbl
}

func column(tbl *table.Table, name string) []string {
	i := tbl.Index(name)
	out := make([]string, len(tbl.Rows))
	for r, row := range tbl.Rows {
		out[r] = row[i]
	}
	return out
}

func TestRun_Deduplicates(t *testing.T) {
	var pairs [][2]string
	for i := range 100 {
		pairs = append(pairs, [2]string{fmt.Sprintf("d%d", i%5), "c"})
	}
	res := newCountingResolver()
	job := pairJob(t, memory.NewMemoryStorage(), res)
	tbl := pairTable(pairs...)

	stats, err := NewDriver().Run(context.Background(), job, tbl)
	require.NoError(t, err)
	assert.Equal(t, 100, stats.Rows)
	assert.Equal(t, 5, stats.UniqueKeys)
	assert.Len(t, res.calls, 5)
	for key, n := range res.calls {
		assert.Equal(t, 1, n, "key %s resolved more than once", key)
	}
	out := column(tbl, "out")
	assert.Equal(t, "v:d0|c", out[0])
	assert.Equal(t, out[0], out[5], "duplicates inherit the same value")
}

func TestRun_Idempotent(t *testing.T) {
	store := memory.NewMemoryStorage()
	res := newCountingResolver()
	ctx := context.Background()

	first := pairTable([2]string{"1", "2"}, [2]string{"3", "4"})
	_, err := NewDriver().Run(ctx, pairJob(t, store, res), first)
	require.NoError(t, err)

	second := pairTable([2]string{"1", "2"}, [2]string{"3", "4"})
	stats, err := NewDriver().Run(ctx, pairJob(t, store, res), second)
	require.NoError(t, err)

	assert.Zero(t, stats.Pending)
	assert.Equal(t, 1, res.calls["1|2"])
	assert.Equal(t, first.Rows, second.Rows)
}

func TestRun_RetryableFailureIsNotCached(t *testing.T) {
	store := memory.NewMemoryStorage()
	res := newCountingResolver()
	res.fail["1|2"] = &apicloud.RetryableError{Endpoint: "kad_arbitr.php", Err: errors.New("connection reset")}
	ledger := &fakeLedger{failed: map[string]domain.FailureType{}}
	ctx := context.Background()

	tbl := pairTable([2]string{"1", "2"}, [2]string{"3", "4"})
	stats, err := NewDriver(WithLedger(ledger)).Run(ctx, pairJob(t, store, res), tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deferred)
	assert.Equal(t, []string{domain.ResultRetry, "v:3|4"}, column(tbl, "out"))
	assert.Equal(t, domain.FailureTypeNetwork, ledger.failed["1|2"])
	assert.NotContains(t, store.Snapshot("results"), "1|2")

	delete(res.fail, "1|2")
	tbl = pairTable([2]string{"1", "2"}, [2]string{"3", "4"})
	stats, err = NewDriver(WithLedger(ledger)).Run(ctx, pairJob(t, store, res), tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, []string{"v:1|2", "v:3|4"}, column(tbl, "out"))
	assert.Contains(t, ledger.resolved, "1|2")
}

func TestRun_QuotaTripHaltsAndWritesOutput(t *testing.T) {
	store := memory.NewMemoryStorage()
	res := newCountingResolver()
	res.fail["4|x"] = fmt.Errorf("page 1: %w", quota.ErrLowBalance)

	tbl := pairTable([2]string{"1", "x"}, [2]string{"2", "x"}, [2]string{"3", "x"}, [2]string{"4", "x"}, [2]string{"5", "x"})
	stats, err := NewDriver().Run(context.Background(), pairJob(t, store, res), tbl)
	require.NoError(t, err)

	assert.True(t, stats.Halted)
	assert.ErrorIs(t, stats.HaltReason, quota.ErrLowBalance)
	assert.Equal(t, 3, stats.Resolved)
	assert.Zero(t, res.calls["5|x"], "no key is attempted after the guard trips")
	assert.Equal(t, []string{"v:1|x", "v:2|x", "v:3|x", domain.ResultRetry, domain.ResultRetry}, column(tbl, "out"))

	snap := store.Snapshot("results")
	assert.Len(t, snap, 3)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := newCountingResolver()
	tbl := pairTable([2]string{"1", "2"})

	stats, err := NewDriver().Run(ctx, pairJob(t, memory.NewMemoryStorage(), res), tbl)
	require.NoError(t, err)
	assert.True(t, stats.Halted)
	assert.Empty(t, res.calls)
	assert.Equal(t, []string{domain.ResultRetry}, column(tbl, "out"))
}

func TestRun_PartialIsWrittenButNotCached(t *testing.T) {
	store := memory.NewMemoryStorage()
	res := newCountingResolver()
	res.part["1|2"] = true

	tbl := pairTable([2]string{"1", "2"})
	stats, err := NewDriver().Run(context.Background(), pairJob(t, store, res), tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Partial)
	assert.Equal(t, []string{"partial:1|2"}, column(tbl, "out"))
	assert.Empty(t, store.Snapshot("results"))
}

func TestRun_MissingColumn(t *testing.T) {
	tbl := &table.Table{Header: []string{"debtor_inn"}, Rows: [][]string{{"1"}}}
	_, err := NewDriver().Run(context.Background(), pairJob(t, memory.NewMemoryStorage(), newCountingResolver()), tbl)
	assert.ErrorIs(t, err, table.ErrMissingColumn)
}

func TestRun_MultiColumnSentinelFill(t *testing.T) {
	store := memory.NewMemoryStorage()
	results, err := cache.Open[domain.Result](context.Background(), store, "results")
	require.NoError(t, err)
	job := Job{
		Name: "wide",
		Slots: []Slot{{
			Inputs:  []string{"ip"},
			Key:     func(v []string) string { return v[0] },
			Outputs: []string{"a", "b"},
		}},
		Resolver: ResolverFunc(func(context.Context, string) (Outcome, error) {
			return Outcome{}, &apicloud.RetryableError{Err: apicloud.ErrMalformedResponse}
		}),
		Results: results,
	}
	tbl := &table.Table{Header: []string{"ip"}, Rows: [][]string{{"1"}}}

	_, err = NewDriver().Run(context.Background(), job, tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", domain.ResultRetry, domain.ResultRetry}, tbl.Rows[0])
}

func TestFailureType(t *testing.T) {
	assert.Equal(t, domain.FailureTypeMalformed, FailureType(&apicloud.RetryableError{Err: apicloud.ErrMalformedResponse}))
	assert.Equal(t, domain.FailureTypeNetwork, FailureType(&apicloud.RetryableError{Err: errors.New("eof")}))
	assert.Equal(t, domain.FailureTypeStorage, FailureType(errors.New("disk full")))
}
