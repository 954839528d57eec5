package control

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/utof/debtds/internal/collect/bankrot"
	"github.com/utof/debtds/internal/collect/courts"
	"github.com/utof/debtds/internal/collect/fssp"
	"github.com/utof/debtds/internal/core/cache"
	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/infra/apicloud"
)

// JobStatus summarizes what is stored for one job.
type JobStatus struct {
	Job             string
	Results         int
	Responses       int
	CaseDetails     int
	PartialSearches int
	PendingFailures int
}

// Status reports cache sizes and pending failures of every job.
func (a *App) Status(ctx context.Context) ([]JobStatus, error) {
	out := make([]JobStatus, 0, len(Jobs))
	for _, name := range Jobs {
		st, err := a.jobStatus(ctx, name)
		if err != nil {
			return nil, err
		}
		pending, err := a.ledger.PendingCount(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to count failures of %s: %w", name, err)
		}
		st.PendingFailures = pending
		out = append(out, st)
	}
	return out, nil
}

func (a *App) jobStatus(ctx context.Context, name string) (JobStatus, error) {
	st := JobStatus{Job: name}
	switch name {
	case courts.JobName:
		searches, err := cache.Open[domain.SearchState](ctx, a.store, courts.NamespaceSearch)
		if err != nil {
			return st, err
		}
		details, err := cache.Open[apicloud.CaseInfoResponse](ctx, a.store, courts.NamespaceCaseInfo)
		if err != nil {
			return st, err
		}
		results, err := cache.Open[domain.Result](ctx, a.store, courts.NamespaceResults)
		if err != nil {
			return st, err
		}
		st.Results = results.Len()
		st.Responses = searches.Len()
		st.CaseDetails = details.Len()
		st.PartialSearches = lo.CountBy(searches.Keys(), func(k string) bool {
			s, _ := searches.Peek(k)
			return s.Partial()
		})

	case bankrot.JobName:
		n, err := a.sizes(ctx, bankrot.NamespaceResults, bankrot.NamespaceResponses)
		if err != nil {
			return st, err
		}
		st.Results, st.Responses = n[0], n[1]

	case fssp.JobName:
		n, err := a.sizes(ctx, fssp.NamespaceResults, fssp.NamespaceResponses)
		if err != nil {
			return st, err
		}
		st.Results, st.Responses = n[0], n[1]

	default:
		return st, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return st, nil
}

// sizes counts the entries of raw namespaces without decoding them.
func (a *App) sizes(ctx context.Context, namespaces ...string) ([]int, error) {
	out := make([]int, len(namespaces))
	for i, ns := range namespaces {
		raw, err := a.store.Load(ctx, ns)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", ns, err)
		}
		out[i] = len(raw)
	}
	return out, nil
}

// ResetKey drops a key from the caches of a job so the next run fetches it
// again. For courts the key is "debtor|creditor" and the case details of its
// collected ids are dropped too. It returns the number of entries removed.
func (a *App) ResetKey(ctx context.Context, job, key string) (int, error) {
	key = strings.TrimSpace(key)
	switch job {
	case courts.JobName:
		key = domain.ParsePairKey(key).String()
		searches, err := cache.Open[domain.SearchState](ctx, a.store, courts.NamespaceSearch)
		if err != nil {
			return 0, err
		}
		removed := 0
		if state, ok := searches.Peek(key); ok {
			details, err := cache.Open[apicloud.CaseInfoResponse](ctx, a.store, courts.NamespaceCaseInfo)
			if err != nil {
				return 0, err
			}
			ids := state.CollectedIDs
			for _, hit := range state.LegacyHits {
				ids = append(ids, hit.CaseID)
			}
			for _, id := range ids {
				if details.Has(id) {
					if err := details.Delete(ctx, id); err != nil {
						return removed, err
					}
					removed++
				}
			}
		}
		n, err := a.drop(ctx, key, courts.NamespaceSearch, courts.NamespaceResults)
		return removed + n, err

	case bankrot.JobName:
		return a.drop(ctx, key, bankrot.NamespaceResponses, bankrot.NamespaceResults)

	case fssp.JobName:
		return a.drop(ctx, key, fssp.NamespaceResponses, fssp.NamespaceResults)
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownJob, job)
}

// drop deletes key from raw namespaces.
func (a *App) drop(ctx context.Context, key string, namespaces ...string) (int, error) {
	removed := 0
	for _, ns := range namespaces {
		raw, err := a.store.Load(ctx, ns)
		if err != nil {
			return removed, fmt.Errorf("failed to load %s: %w", ns, err)
		}
		if _, ok := raw[key]; !ok {
			continue
		}
		if err := a.store.Delete(ctx, ns, key); err != nil {
			return removed, fmt.Errorf("failed to delete %s from %s: %w", key, ns, err)
		}
		removed++
	}
	a.log.Info("Key reset", "key", key, "removed", removed)
	return removed, nil
}
