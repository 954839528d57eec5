package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// ErrUnknownStateShape is returned when a cached search entry matches none of
// the known shapes.
var ErrUnknownStateShape = errors.New("unknown search state shape")

// Names holds party names collected during search, used to match case
// participants that come back without an INN.
type Names struct {
	Debtor   []string `json:"debtor"`
	Creditor []string `json:"creditor"`
}

// SearchState is the pagination state of one search query. It is either
// complete (all pages consumed or the server returned an empty page) or
// partial, in which case the search resumes at LastPage+1.
type SearchState struct {
	CollectedIDs []string `json:"collected_ids"`
	LastPage     int      `json:"last_page_fetched"`
	TotalPages   int      `json:"total_pages"`
	Complete     bool     `json:"is_complete"`
	Names        Names    `json:"names"`
	// RawHits counts search hits before role filtering.
	RawHits int `json:"raw_hits"`
	// Terminal carries a sentinel recorded by older tooling instead of ids.
	Terminal string `json:"terminal,omitempty"`
	// LegacyHits holds unfiltered hits read from the raw-responses shape.
	// The role prefilter turns them into CollectedIDs before the state is used.
	LegacyHits []SearchHit `json:"-"`
}

// CompleteState returns a complete state holding ids.
func CompleteState(ids []string) SearchState {
	return SearchState{
		CollectedIDs: sortedUnique(ids),
		Complete:     true,
		RawHits:      len(ids),
	}
}

// PartialState returns a resumable state.
func PartialState(ids []string, lastPage, totalPages int) SearchState {
	return SearchState{
		CollectedIDs: sortedUnique(ids),
		LastPage:     lastPage,
		TotalPages:   totalPages,
	}
}

// Partial reports whether more pages remain to be fetched.
func (s SearchState) Partial() bool {
	return !s.Complete
}

// searchStateJSON breaks UnmarshalJSON recursion.
type searchStateJSON SearchState

type legacyResponses struct {
	Responses []struct {
		Result []SearchHit `json:"Result"`
	} `json:"responses"`
	Names Names `json:"names"`
}

// UnmarshalJSON reads the current object shape and migrates the legacy ones:
// a bare list of case ids, a bare sentinel string, and the raw-responses
// object that stored whole search envelopes.
func (s *SearchState) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrUnknownStateShape
	}

	switch data[0] {
	case '[':
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("legacy id list: %w", err)
		}
		*s = CompleteState(ids)
		return nil
	case '"':
		var sentinel string
		if err := json.Unmarshal(data, &sentinel); err != nil {
			return fmt.Errorf("legacy sentinel: %w", err)
		}
		*s = SearchState{Complete: true, Terminal: sentinel}
		return nil
	case '{':
	default:
		return ErrUnknownStateShape
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["responses"]; ok {
		var legacy legacyResponses
		if err := json.Unmarshal(data, &legacy); err != nil {
			return fmt.Errorf("legacy responses: %w", err)
		}
		hits := []SearchHit{}
		for _, resp := range legacy.Responses {
			hits = append(hits, resp.Result...)
		}
		*s = SearchState{
			Complete:   true,
			RawHits:    len(hits),
			Names:      legacy.Names,
			LegacyHits: hits,
		}
		return nil
	}

	var current searchStateJSON
	if err := json.Unmarshal(data, &current); err != nil {
		return err
	}
	*s = SearchState(current)
	s.CollectedIDs = sortedUnique(s.CollectedIDs)
	return nil
}

func sortedUnique(ids []string) []string {
	out := lo.Uniq(ids)
	slices.Sort(out)
	return out
}

// Merge returns the union of n and other, sorted and deduplicated.
func (n Names) Merge(other Names) Names {
	return Names{
		Debtor:   sortedUnique(append(slices.Clone(n.Debtor), other.Debtor...)),
		Creditor: sortedUnique(append(slices.Clone(n.Creditor), other.Creditor...)),
	}
}
