// Package quota stops the pipeline before the API account runs dry.
//
// This package contains:
//   - Guard: inspects the balance reported in each response and trips once
//     it is at or below the threshold
//   - Tracker: per-method call accounting with an optional per-run call budget
package quota

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utof/debtds/internal/collect/metrics"
)

// DefaultThreshold is the balance at or below which work stops.
const DefaultThreshold = 100.0

var (
	// ErrLowBalance is returned once the reported balance is at or below the threshold.
	ErrLowBalance = errors.New("api balance at or below threshold")
	// ErrBudgetExhausted is returned when the per-run call budget is used up.
	ErrBudgetExhausted = errors.New("api call budget exhausted")
)

// IsStop reports whether err asks the batch to stop issuing calls.
func IsStop(err error) bool {
	return errors.Is(err, ErrLowBalance) || errors.Is(err, ErrBudgetExhausted)
}

// Guard trips when a response reports a balance at or below the threshold.
// A tripped guard stays tripped for the rest of the process.
type Guard struct {
	threshold float64

	mu      sync.RWMutex
	tripped bool
	balance float64
	seen    bool
}

// NewGuard creates a guard. A non-positive threshold uses DefaultThreshold.
func NewGuard(threshold float64) *Guard {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Guard{threshold: threshold}
}

// Check inspects the balance of one response. A nil balance is ignored.
func (g *Guard) Check(balance *float64) error {
	if balance == nil {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.balance = *balance
	g.seen = true
	metrics.APIBalance.Set(*balance)

	if *balance <= g.threshold {
		if !g.tripped {
			slog.Warn("API balance at or below threshold, stopping", "balance", *balance, "threshold", g.threshold)
		}
		g.tripped = true
		return fmt.Errorf("%w: %.2f <= %.2f", ErrLowBalance, *balance, g.threshold)
	}
	slog.Debug("API balance updated", "balance", *balance)
	return nil
}

// Allow returns ErrLowBalance if the guard has tripped.
func (g *Guard) Allow() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.tripped {
		return ErrLowBalance
	}
	return nil
}

// Tripped reports whether the guard has fired.
func (g *Guard) Tripped() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tripped
}

// Balance returns the last observed balance.
func (g *Guard) Balance() (float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.balance, g.seen
}

// Threshold returns the configured threshold.
func (g *Guard) Threshold() float64 {
	return g.threshold
}
