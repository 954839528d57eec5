package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/utof/debtds/internal/core/quota"
)

type stubLedger struct {
	counts map[string]int
	err    error
}

func (s *stubLedger) PendingCount(_ context.Context, job string) (int, error) {
	return s.counts[job], s.err
}

func balance(v float64) *float64 { return &v }

func TestMonitor_CheckHealth(t *testing.T) {
	tests := []struct {
		name    string
		balance *float64
		counts  map[string]int
		err     error
		want    SystemStatus
	}{
		{"healthy", balance(1000), nil, nil, StatusHealthy},
		{"no balance seen yet", nil, nil, nil, StatusHealthy},
		{"balance getting low", balance(150), nil, nil, StatusDegraded},
		{"guard tripped", balance(50), nil, nil, StatusCritical},
		{"some failed keys", balance(1000), map[string]int{"courts": 3}, nil, StatusDegraded},
		{"many failed keys", balance(1000), map[string]int{"courts": 60}, nil, StatusCritical},
		{"ledger unavailable", balance(1000), nil, errors.New("redis down"), StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := quota.NewGuard(100)
			_ = guard.Check(tt.balance)
			m := NewMonitor([]string{"courts"}, guard, quota.NewTracker(0), &stubLedger{counts: tt.counts, err: tt.err})

			report := m.CheckHealth(context.Background())
			if report.SystemStatus != tt.want {
				t.Errorf("SystemStatus = %s, want %s (report %+v)", report.SystemStatus, tt.want, report)
			}
		})
	}
}

func TestMonitor_BudgetExhaustedIsCritical(t *testing.T) {
	tracker := quota.NewTracker(1)
	tracker.RecordCall("search")

	report := NewMonitor(nil, nil, tracker, nil).CheckHealth(context.Background())
	if report.API.Status != StatusCritical {
		t.Errorf("API status = %s, want critical", report.API.Status)
	}
	if report.API.CallsByMethod["search"] != 1 {
		t.Errorf("CallsByMethod = %v", report.API.CallsByMethod)
	}
}

func TestServer_Endpoints(t *testing.T) {
	guard := quota.NewGuard(100)
	_ = guard.Check(balance(10))
	srv := NewServer(NewMonitor([]string{"courts"}, guard, nil, nil), 0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /health = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode detailed report: %v", err)
	}
	if !report.API.GuardTripped || report.API.Balance == nil || *report.API.Balance != 10 {
		t.Errorf("Unexpected API health: %+v", report.API)
	}
	if _, ok := report.Jobs["courts"]; !ok {
		t.Error("Expected courts job in report")
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /metrics = %d", rec.Code)
	}
}
