package health

import (
	"context"
	"sync"
	"time"

	"github.com/utof/debtds/internal/core/quota"
)

// Thresholds of the failed-key ledger.
const (
	degradedFailedKeys = 1
	criticalFailedKeys = 50
)

// PendingCounter reports how many keys of a job wait for a retry.
type PendingCounter interface {
	PendingCount(ctx context.Context, job string) (int, error)
}

// Monitor aggregates health status from the quota guard, the call tracker
// and the failure ledger.
type Monitor struct {
	jobs       []string
	guard      *quota.Guard
	tracker    *quota.Tracker
	ledger     PendingCounter
	interval   time.Duration
	lastCheck  time.Time
	lastReport *HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. ledger may be nil.
func NewMonitor(jobs []string, guard *quota.Guard, tracker *quota.Tracker, ledger PendingCounter) *Monitor {
	return &Monitor{
		jobs:     jobs,
		guard:    guard,
		tracker:  tracker,
		ledger:   ledger,
		interval: 5 * time.Second,
	}
}

// CheckHealth builds a report. Reports are reused for a few seconds to keep
// ledger lookups off the hot path of a polling client.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < m.interval {
		return *m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		API:          m.apiHealth(),
		Jobs:         make(map[string]JobHealth, len(m.jobs)),
	}
	report.SystemStatus = worse(report.SystemStatus, report.API.Status)

	for _, job := range m.jobs {
		jh := JobHealth{Job: job, Status: StatusHealthy}
		if m.ledger != nil {
			count, err := m.ledger.PendingCount(ctx, job)
			if err != nil {
				jh.Status = StatusDegraded
				jh.LedgerStatus = err.Error()
			} else {
				jh.FailedKeys = count
			}
		}

		switch {
		case jh.FailedKeys >= criticalFailedKeys:
			jh.Status = StatusCritical
		case jh.FailedKeys >= degradedFailedKeys:
			jh.Status = worse(jh.Status, StatusDegraded)
		}

		report.Jobs[job] = jh
		report.SystemStatus = worse(report.SystemStatus, jh.Status)
	}

	m.lastCheck = time.Now()
	m.lastReport = &report
	return report
}

func (m *Monitor) apiHealth() APIHealth {
	api := APIHealth{Status: StatusHealthy}

	if m.guard != nil {
		api.Threshold = m.guard.Threshold()
		api.GuardTripped = m.guard.Tripped()
		if b, ok := m.guard.Balance(); ok {
			api.Balance = &b
			if b <= 2*api.Threshold {
				api.Status = StatusDegraded
			}
		}
		if api.GuardTripped {
			api.Status = StatusCritical
		}
	}

	if m.tracker != nil {
		usage := m.tracker.GetUsage()
		api.TotalCalls = usage.TotalCalls
		api.RemainingCalls = usage.RemainingCalls
		api.CallsByMethod = usage.ByMethod
		if usage.RemainingCalls == 0 {
			api.Status = StatusCritical
		}
	}
	return api
}
