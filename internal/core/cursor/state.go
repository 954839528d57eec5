package cursor

import (
	"errors"

	"github.com/utof/debtds/internal/core/domain"
)

// Stage is the lifecycle position of a search state.
type Stage string

const (
	StageFresh    Stage = "fresh"
	StagePartial  Stage = "partial"
	StageComplete Stage = "complete"
)

// ErrInvalidTransition is returned when an invalid stage transition is attempted.
var ErrInvalidTransition = errors.New("invalid stage transition")

// ValidTransitions defines allowed stage transitions.
// Key is the current stage, value is the list of valid next stages.
var ValidTransitions = map[Stage][]Stage{
	StageFresh:    {StagePartial, StageComplete},
	StagePartial:  {StagePartial, StageComplete},
	StageComplete: {},
}

// StageOf derives the stage of a state.
func StageOf(s domain.SearchState) Stage {
	switch {
	case s.Complete:
		return StageComplete
	case s.LastPage == 0:
		return StageFresh
	default:
		return StagePartial
	}
}

// CanTransition checks if a transition from one stage to another is valid.
func CanTransition(from, to Stage) bool {
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// StageDescription returns a human-readable description of a stage.
func StageDescription(s Stage) string {
	switch s {
	case StageFresh:
		return "Fresh - no page fetched yet"
	case StagePartial:
		return "Partial - resumable, more pages remain"
	case StageComplete:
		return "Complete - every page consumed or server signalled the end"
	default:
		return "Unknown stage"
	}
}
