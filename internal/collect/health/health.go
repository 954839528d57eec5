// Package health provides run health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// JobHealth contains health metrics for one job.
type JobHealth struct {
	Job          string       `json:"job"`
	Status       SystemStatus `json:"status"`
	FailedKeys   int          `json:"failed_keys"`
	LedgerStatus string       `json:"ledger_status,omitempty"`
}

// APIHealth describes the api-cloud account as seen by this process.
type APIHealth struct {
	Status         SystemStatus   `json:"status"`
	Balance        *float64       `json:"balance,omitempty"`
	Threshold      float64        `json:"threshold"`
	GuardTripped   bool           `json:"guard_tripped"`
	TotalCalls     int            `json:"total_calls"`
	RemainingCalls int            `json:"remaining_calls"`
	CallsByMethod  map[string]int `json:"calls_by_method"`
}

// HealthReport contains the full health report.
type HealthReport struct {
	SystemStatus SystemStatus         `json:"system_status"`
	API          APIHealth            `json:"api"`
	Jobs         map[string]JobHealth `json:"jobs"`
}

// worse returns the more severe of two statuses.
func worse(a, b SystemStatus) SystemStatus {
	rank := map[SystemStatus]int{StatusHealthy: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
