package cursor

import (
	"errors"
	"testing"

	"github.com/utof/debtds/internal/core/domain"
)

func TestAdvance_Sequential(t *testing.T) {
	var s domain.SearchState

	if got := NextPage(s); got != 1 {
		t.Fatalf("Expected first page 1, got %d", got)
	}
	if err := Advance(&s, 1, 3); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if StageOf(s) != StagePartial {
		t.Errorf("Expected partial stage, got %s", StageOf(s))
	}
	if Exhausted(s) {
		t.Error("Should not be exhausted after 1/3")
	}
	if err := Advance(&s, 2, 0); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s.TotalPages != 3 {
		t.Errorf("Expected total pages to stay 3, got %d", s.TotalPages)
	}
	if err := Advance(&s, 3, 3); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !Exhausted(s) {
		t.Error("Expected exhausted after 3/3")
	}
	if got := Progress(s); got != "3/3" {
		t.Errorf("Expected progress 3/3, got %s", got)
	}
}

func TestAdvance_Gap(t *testing.T) {
	s := domain.PartialState(nil, 2, 5)

	err := Advance(&s, 4, 5)
	if !errors.Is(err, ErrPageGap) {
		t.Fatalf("Expected ErrPageGap, got %v", err)
	}
	if s.LastPage != 2 {
		t.Errorf("Gap must not move the cursor, got %d", s.LastPage)
	}
}

func TestAdvance_UnknownTotalDefaultsToOne(t *testing.T) {
	var s domain.SearchState
	if err := Advance(&s, 1, 0); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s.TotalPages != 1 || !Exhausted(s) {
		t.Errorf("Expected 1/1 exhausted, got %s", Progress(s))
	}
}

func TestFinish(t *testing.T) {
	var s domain.SearchState
	if err := Finish(&s); err != nil {
		t.Fatalf("Fresh -> complete should be valid: %v", err)
	}
	if err := Advance(&s, 1, 1); !errors.Is(err, ErrAlreadyComplete) {
		t.Errorf("Expected ErrAlreadyComplete, got %v", err)
	}
	if err := Finish(&s); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageFresh, StagePartial, true},
		{StageFresh, StageComplete, true},
		{StagePartial, StagePartial, true},
		{StagePartial, StageComplete, true},
		{StageComplete, StagePartial, false},
		{StagePartial, StageFresh, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
