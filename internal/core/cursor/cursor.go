// Package cursor tracks how far a paginated search has progressed.
//
// # Purpose
//
// The cursor is the bookmark of a search query: which page comes next, how
// many pages the server declared, and whether the query is finished. It lives
// inside domain.SearchState so it is persisted with the collected ids.
//
// # Stages
//
//	FRESH → PARTIAL → COMPLETE (valid)
//	FRESH → COMPLETE           (valid, single page or empty first page)
//	COMPLETE → PARTIAL         (invalid, a complete query is never re-fetched)
//
// Gap Detection - Advance(state, 4) when the state is at page 2 returns
// ErrPageGap, so a page boundary that was never reached cannot be recorded.
//
// # Quick Start
//
//	state := domain.SearchState{}
//	page := cursor.NextPage(state)            // 1
//	_ = cursor.Advance(&state, page, 3)       // PARTIAL, 1/3
//	_ = cursor.Advance(&state, 3, 3)          // ErrPageGap
//	if cursor.Exhausted(state) {
//	    _ = cursor.Finish(&state)
//	}
package cursor

import (
	"errors"
	"fmt"

	"github.com/utof/debtds/internal/core/domain"
)

var (
	// ErrPageGap is returned when a page is recorded out of sequence.
	ErrPageGap = errors.New("page gap")
	// ErrAlreadyComplete is returned when advancing a complete search.
	ErrAlreadyComplete = errors.New("search already complete")
)

// NextPage returns the page to request next.
func NextPage(s domain.SearchState) int {
	return s.LastPage + 1
}

// Advance records page as fetched. A non-positive totalPages keeps the
// previously declared count, or 1 if none was declared yet.
func Advance(s *domain.SearchState, page, totalPages int) error {
	if s.Complete {
		return ErrAlreadyComplete
	}
	if page != s.LastPage+1 {
		return fmt.Errorf("%w: at page %d, got %d", ErrPageGap, s.LastPage, page)
	}

	switch {
	case totalPages > 0:
		s.TotalPages = totalPages
	case s.TotalPages == 0:
		s.TotalPages = 1
	}
	s.LastPage = page
	return nil
}

// Exhausted reports whether every declared page has been fetched.
func Exhausted(s domain.SearchState) bool {
	return s.TotalPages > 0 && s.LastPage >= s.TotalPages
}

// Finish marks the search complete.
func Finish(s *domain.SearchState) error {
	from := StageOf(*s)
	if !CanTransition(from, StageComplete) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, StageComplete)
	}
	s.Complete = true
	return nil
}

// Progress renders the position as "last/total".
func Progress(s domain.SearchState) string {
	return fmt.Sprintf("%d/%d", s.LastPage, s.TotalPages)
}
