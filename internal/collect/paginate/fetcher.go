// Package paginate drives a resumable multi-page search.
//
// The Fetcher owns the loop and nothing else: the caller supplies how to get
// one page and how to persist the state after it. State is checkpointed after
// every page, so a failure on page k leaves last_page_fetched = k-1 and the
// next run resumes at k.
package paginate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/utof/debtds/internal/collect/metrics"
	"github.com/utof/debtds/internal/core/cursor"
	"github.com/utof/debtds/internal/core/domain"
)

// DefaultMaxPages is the per-run page ceiling per search.
const DefaultMaxPages = 50

// Page is what one page contributed.
type Page struct {
	// IDs are the ids accepted from this page.
	IDs []string
	// Hits is the raw record count of the page. Zero means end of data.
	Hits int
	// TotalPages is the page count declared by the page, 0 if unknown.
	TotalPages int
	// Names are party names learned from this page.
	Names domain.Names
}

// PageFunc fetches one page. known holds the names learned so far.
type PageFunc func(ctx context.Context, page int, known domain.Names) (Page, error)

// CheckpointFunc persists the state after a page.
type CheckpointFunc func(ctx context.Context, state domain.SearchState) error

// Result is the outcome of one Fetch.
type Result struct {
	State        domain.SearchState
	PagesFetched int
	Complete     bool
}

// Note describes an incomplete search, or returns "" for a complete one.
func (r Result) Note() string {
	if r.Complete {
		return ""
	}
	return fmt.Sprintf("partial: %d/%d pages fetched", r.State.LastPage, r.State.TotalPages)
}

// Fetcher runs the page loop.
type Fetcher struct {
	maxPages int
}

// NewFetcher creates a fetcher. A non-positive maxPages uses DefaultMaxPages.
func NewFetcher(maxPages int) *Fetcher {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Fetcher{maxPages: maxPages}
}

// MaxPages returns the per-run ceiling.
func (f *Fetcher) MaxPages() int {
	return f.maxPages
}

// Fetch resumes state at its next page and fetches until the search is
// complete, the ceiling is reached, or a page fails. On failure the returned
// Result holds the last checkpointed state.
func (f *Fetcher) Fetch(ctx context.Context, state domain.SearchState, fetch PageFunc, checkpoint CheckpointFunc) (Result, error) {
	if state.Complete {
		return Result{State: state, Complete: true}, nil
	}

	ids := mapset.NewThreadUnsafeSet(state.CollectedIDs...)
	fetched := 0

	for !state.Complete {
		if cursor.Exhausted(state) {
			if err := f.finish(ctx, &state, checkpoint); err != nil {
				return Result{State: state, PagesFetched: fetched}, err
			}
			break
		}
		if fetched >= f.maxPages {
			slog.Info("Page ceiling reached, search will resume next run",
				"pages", cursor.Progress(state), "ceiling", f.maxPages)
			return Result{State: state, PagesFetched: fetched}, nil
		}
		if err := ctx.Err(); err != nil {
			return Result{State: state, PagesFetched: fetched}, err
		}

		pageNum := cursor.NextPage(state)
		page, err := fetch(ctx, pageNum, state.Names)
		if err != nil {
			return Result{State: state, PagesFetched: fetched}, fmt.Errorf("page %d: %w", pageNum, err)
		}
		fetched++
		metrics.PagesFetched.Inc()

		next := state
		ids.Append(page.IDs...)
		next.CollectedIDs = ids.ToSlice()
		slices.Sort(next.CollectedIDs)
		next.Names = next.Names.Merge(page.Names)
		next.RawHits += page.Hits
		if err := cursor.Advance(&next, pageNum, page.TotalPages); err != nil {
			return Result{State: state, PagesFetched: fetched}, err
		}

		if page.Hits == 0 || cursor.Exhausted(next) {
			if err := cursor.Finish(&next); err != nil {
				return Result{State: state, PagesFetched: fetched}, err
			}
		}
		if err := checkpoint(ctx, next); err != nil {
			return Result{State: state, PagesFetched: fetched}, fmt.Errorf("checkpoint page %d: %w", pageNum, err)
		}
		state = next
		slog.Debug("Page fetched", "page", pageNum, "total", state.TotalPages,
			"hits", page.Hits, "accepted", len(page.IDs), "complete", state.Complete)
	}

	return Result{State: state, PagesFetched: fetched, Complete: true}, nil
}

func (f *Fetcher) finish(ctx context.Context, state *domain.SearchState, checkpoint CheckpointFunc) error {
	next := *state
	if err := cursor.Finish(&next); err != nil {
		return err
	}
	if err := checkpoint(ctx, next); err != nil {
		return fmt.Errorf("checkpoint completion: %w", err)
	}
	*state = next
	return nil
}
