package quota

import (
	"errors"
	"sync"
	"testing"
)

func TestTracker_Concurrency(t *testing.T) {
	tracker := NewTracker(0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.RecordCall("search")
			tracker.CanMakeCall()
			tracker.GetUsage()
		}()
	}
	wg.Wait()

	usage := tracker.GetUsage()
	if usage.TotalCalls != 100 {
		t.Errorf("Expected 100 calls, got %d", usage.TotalCalls)
	}
	if usage.ByMethod["search"] != 100 {
		t.Errorf("Expected 100 search calls, got %d", usage.ByMethod["search"])
	}
	if usage.RemainingCalls != -1 {
		t.Errorf("Unlimited budget should report -1 remaining, got %d", usage.RemainingCalls)
	}
}

func TestTracker_Budget(t *testing.T) {
	tracker := NewTracker(3)

	for i := 0; i < 3; i++ {
		if err := tracker.Allow(); err != nil {
			t.Fatalf("Should allow call %d: %v", i, err)
		}
		tracker.RecordCall("caseInfo")
	}

	if err := tracker.Allow(); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("Expected ErrBudgetExhausted, got %v", err)
	}
	if got := tracker.GetUsage().RemainingCalls; got != 0 {
		t.Errorf("Expected 0 remaining, got %d", got)
	}
}
