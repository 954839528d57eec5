package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/utof/debtds/internal/collect/metrics"
	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/core/quota"
	"github.com/utof/debtds/internal/infra/apicloud"
	"github.com/utof/debtds/internal/table"
)

// Ledger records keys that failed with a retryable error.
type Ledger interface {
	RecordFailure(ctx context.Context, job, key string, failureType domain.FailureType, cause error) error
	MarkResolved(ctx context.Context, job, key string) error
}

// Observer follows the progress of a run.
type Observer interface {
	Start(job string, pending int)
	KeyDone(key string, status string)
	Finish()
}

// Stats summarises one run.
type Stats struct {
	Rows       int
	UniqueKeys int
	Pending    int
	Resolved   int
	Partial    int
	Deferred   int
	Halted     bool
	HaltReason error
	Duration   time.Duration
}

// Driver runs jobs.
type Driver struct {
	ledger   Ledger
	observer Observer
}

// Option configures a Driver.
type Option func(*Driver)

// WithLedger records retryable failures.
func WithLedger(l Ledger) Option {
	return func(d *Driver) { d.ledger = l }
}

// WithObserver reports progress.
func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observer = o }
}

// NewDriver creates a driver.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run resolves every key of tbl not yet in job.Results and fills the output
// columns in place. Per-key failures never surface as an error: the rows of
// an unresolved key get domain.ResultRetry. Only a missing input column is
// returned as an error.
func (d *Driver) Run(ctx context.Context, job Job, tbl *table.Table) (Stats, error) {
	start := time.Now()
	stats := Stats{Rows: len(tbl.Rows)}

	keys, err := rowKeys(job, tbl)
	if err != nil {
		return stats, err
	}

	var ordered []string
	for _, row := range keys {
		ordered = append(ordered, row...)
	}
	unique := lo.Uniq(ordered)
	pending := lo.Filter(unique, func(k string, _ int) bool { return !job.Results.Has(k) })
	stats.UniqueKeys = len(unique)
	stats.Pending = len(pending)

	slog.Info("Starting job", "job", job.Name, "rows", stats.Rows,
		"unique_keys", stats.UniqueKeys, "pending", stats.Pending)

	if d.observer != nil {
		d.observer.Start(job.Name, len(pending))
		defer d.observer.Finish()
	}

	partial := make(map[string]domain.Result)
	for i, key := range pending {
		if err := ctx.Err(); err != nil {
			stats.Halted, stats.HaltReason = true, err
			break
		}

		slog.Info("Processing key", "job", job.Name, "key", key, "n", i+1, "of", len(pending))
		status := d.resolve(ctx, job, key, partial, &stats)
		metrics.KeysProcessed.WithLabelValues(job.Name, status).Inc()
		if d.observer != nil {
			d.observer.KeyDone(key, status)
		}
		if stats.Halted {
			break
		}
	}

	if err := fill(job, tbl, keys, partial); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	slog.Info("Job finished", "job", job.Name, "resolved", stats.Resolved, "partial", stats.Partial,
		"deferred", stats.Deferred, "halted", stats.Halted, "duration", stats.Duration)
	return stats, nil
}

// resolve handles one key and returns its status label.
func (d *Driver) resolve(ctx context.Context, job Job, key string, partial map[string]domain.Result, stats *Stats) string {
	out, err := job.Resolver.Resolve(ctx, key)
	if err != nil {
		if quota.IsStop(err) || ctx.Err() != nil {
			slog.Warn("Stopping job", "job", job.Name, "key", key, "reason", err)
			stats.Halted, stats.HaltReason = true, err
			return "halted"
		}
		slog.Warn("Key deferred to next run", "job", job.Name, "key", key, "error", err)
		stats.Deferred++
		d.recordFailure(ctx, job.Name, key, err)
		return "deferred"
	}

	if out.Status == StatusPartial {
		partial[key] = out.Result
		stats.Partial++
		return string(StatusPartial)
	}

	job.Results.Set(key, out.Result)
	if err := job.Results.Flush(ctx); err != nil {
		slog.Error("Failed to persist result", "job", job.Name, "key", key, "error", err)
		d.recordFailure(ctx, job.Name, key, err)
	} else if d.ledger != nil {
		if err := d.ledger.MarkResolved(ctx, job.Name, key); err != nil {
			slog.Warn("Failed to update failure ledger", "job", job.Name, "key", key, "error", err)
		}
	}
	stats.Resolved++
	return string(StatusResolved)
}

func (d *Driver) recordFailure(ctx context.Context, job, key string, cause error) {
	if d.ledger == nil {
		return
	}
	if err := d.ledger.RecordFailure(context.WithoutCancel(ctx), job, key, FailureType(cause), cause); err != nil {
		slog.Warn("Failed to update failure ledger", "job", job, "key", key, "error", err)
	}
}

// FailureType classifies a resolver error for the ledger.
func FailureType(err error) domain.FailureType {
	switch {
	case errors.Is(err, apicloud.ErrMalformedResponse):
		return domain.FailureTypeMalformed
	case apicloud.IsRetryable(err):
		return domain.FailureTypeNetwork
	default:
		return domain.FailureTypeStorage
	}
}

// rowKeys returns the key of every slot of every row.
func rowKeys(job Job, tbl *table.Table) ([][]string, error) {
	idx := make([][]int, len(job.Slots))
	for s, slot := range job.Slots {
		i, err := tbl.Require(slot.Inputs...)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", job.Name, err)
		}
		idx[s] = i
	}

	keys := make([][]string, len(tbl.Rows))
	values := make([]string, 0, 4)
	for r, row := range tbl.Rows {
		keys[r] = make([]string, len(job.Slots))
		for s, slot := range job.Slots {
			values = values[:0]
			for _, i := range idx[s] {
				values = append(values, row[i])
			}
			keys[r][s] = slot.Key(values)
		}
	}
	return keys, nil
}

// fill writes every output column from the results cache, falling back to
// this run's partial results and then to the retry sentinel.
func fill(job Job, tbl *table.Table, keys [][]string, partial map[string]domain.Result) error {
	for s, slot := range job.Slots {
		columns := make([][]string, slot.Width())
		for c := range columns {
			columns[c] = make([]string, len(tbl.Rows))
		}
		for r := range tbl.Rows {
			res := lookup(job, keys[r][s], partial, slot.Width())
			for c := range columns {
				columns[c][r] = res.Field(c)
			}
		}
		for c, name := range slot.Outputs {
			if err := tbl.SetColumn(name, columns[c]); err != nil {
				return err
			}
		}
	}
	return nil
}

func lookup(job Job, key string, partial map[string]domain.Result, width int) domain.Result {
	if res, ok := job.Results.Peek(key); ok {
		return res
	}
	if res, ok := partial[key]; ok {
		return res
	}
	return domain.FillResult(width, domain.ResultRetry)
}
