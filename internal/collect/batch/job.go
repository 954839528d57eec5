// Package batch runs a job over a table: one lookup per unique key, results
// persisted after each key, output filled even when the run is cut short.
package batch

import (
	"context"

	"github.com/utof/debtds/internal/core/cache"
	"github.com/utof/debtds/internal/core/domain"
)

// Status tells the driver what to do with a resolved value.
type Status string

const (
	// StatusResolved is final and cached.
	StatusResolved Status = "resolved"
	// StatusPartial is written to this run's output only.
	StatusPartial Status = "partial"
)

// Outcome is the value a Resolver produced for a key.
type Outcome struct {
	Result domain.Result
	Status Status
}

// Resolved returns a final outcome.
func Resolved(r domain.Result) Outcome {
	return Outcome{Result: r, Status: StatusResolved}
}

// Partial returns an outcome that must not be cached.
func Partial(r domain.Result) Outcome {
	return Outcome{Result: r, Status: StatusPartial}
}

// Resolver computes the value of one key. An error leaves the key
// unresolved; quota.ErrLowBalance and context errors stop the run.
type Resolver interface {
	Resolve(ctx context.Context, key string) (Outcome, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, key string) (Outcome, error)

func (f ResolverFunc) Resolve(ctx context.Context, key string) (Outcome, error) {
	return f(ctx, key)
}

// Slot maps input columns to a key and the key's result to output columns.
// A job may have several slots per row, e.g. one per INN column.
type Slot struct {
	Inputs  []string
	Key     func(values []string) string
	Outputs []string
}

// Job is one enrichment pass.
type Job struct {
	Name     string
	Slots    []Slot
	Resolver Resolver
	Results  *cache.Cache[domain.Result]
}

// Width returns the number of output columns of a slot.
func (s Slot) Width() int {
	return len(s.Outputs)
}
