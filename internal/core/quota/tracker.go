package quota

import (
	"maps"
	"sync"
	"time"
)

// UsageStats holds call usage statistics.
type UsageStats struct {
	TotalCalls     int
	CallsPerHour   int
	Budget         int
	RemainingCalls int
	ByMethod       map[string]int
	StartedAt      time.Time
}

// Tracker counts API calls per method and enforces an optional per-run call
// budget. A zero budget is unlimited.
type Tracker struct {
	mu            sync.RWMutex
	budget        int
	totalCalls    int
	callsThisHour int
	hourStartTime time.Time
	methodCalls   map[string]int
	startedAt     time.Time
}

// NewTracker creates a new call tracker.
func NewTracker(budget int) *Tracker {
	now := time.Now()
	return &Tracker{
		budget:        budget,
		hourStartTime: now,
		methodCalls:   make(map[string]int),
		startedAt:     now,
	}
}

// RecordCall records one call of method.
func (t *Tracker) RecordCall(method string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if time.Since(t.hourStartTime) >= time.Hour {
		t.callsThisHour = 0
		t.hourStartTime = time.Now()
	}

	t.totalCalls++
	t.callsThisHour++
	t.methodCalls[method]++
}

// CanMakeCall reports whether the budget allows another call.
func (t *Tracker) CanMakeCall() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.budget <= 0 || t.totalCalls < t.budget
}

// Allow returns ErrBudgetExhausted when no calls remain.
func (t *Tracker) Allow() error {
	if !t.CanMakeCall() {
		return ErrBudgetExhausted
	}
	return nil
}

// GetUsage returns a snapshot of the counters.
func (t *Tracker) GetUsage() UsageStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	remaining := -1
	if t.budget > 0 {
		remaining = max(t.budget-t.totalCalls, 0)
	}
	return UsageStats{
		TotalCalls:     t.totalCalls,
		CallsPerHour:   t.callsThisHour,
		Budget:         t.budget,
		RemainingCalls: remaining,
		ByMethod:       maps.Clone(t.methodCalls),
		StartedAt:      t.startedAt,
	}
}
