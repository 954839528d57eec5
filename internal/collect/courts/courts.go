// Package courts resolves (debtor, creditor) pairs to the court decisions
// of arbitration cases the creditor brought against the debtor.
//
// One key goes through:
//
//	search (paginated, resumable) → role prefilter → caseInfo per case
//	→ role validation → decision extraction → format
//
// Search state is checkpointed after every page and each case detail is
// cached as soon as it arrives, so an interrupted key resumes where it
// stopped.
package courts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/utof/debtds/internal/collect/batch"
	"github.com/utof/debtds/internal/collect/paginate"
	"github.com/utof/debtds/internal/core/cache"
	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/infra/apicloud"
)

// Job name and cache namespaces.
const (
	JobName           = "courts"
	NamespaceSearch   = "courts_search"
	NamespaceCaseInfo = "courts_caseinfo"
	NamespaceResults  = "courts_results"
)

// errSearchRejected marks a permanent API error on the first search page.
var errSearchRejected = errors.New("search rejected by api")

// API is the part of the api-cloud client the resolver needs.
type API interface {
	SearchCases(ctx context.Context, debtor, creditor string, page int) (*apicloud.SearchResponse, error)
	CaseInfo(ctx context.Context, caseID string) (*apicloud.CaseInfoResponse, error)
}

// Resolver implements batch.Resolver for court decisions.
type Resolver struct {
	api      API
	searches *cache.Cache[domain.SearchState]
	details  *cache.Cache[apicloud.CaseInfoResponse]
	fetcher  *paginate.Fetcher
}

// NewResolver creates a resolver over the search and case detail caches.
func NewResolver(api API, searches *cache.Cache[domain.SearchState], details *cache.Cache[apicloud.CaseInfoResponse], fetcher *paginate.Fetcher) *Resolver {
	if fetcher == nil {
		fetcher = paginate.NewFetcher(0)
	}
	return &Resolver{
		api:      api,
		searches: searches,
		details:  details,
		fetcher:  fetcher,
	}
}

// Resolve implements batch.Resolver. raw is a domain.PairKey.
func (r *Resolver) Resolve(ctx context.Context, raw string) (batch.Outcome, error) {
	key := domain.ParsePairKey(raw)
	if !key.Valid() {
		slog.Warn("Skipping pair with empty INN", "key", raw)
		return batch.Resolved(domain.SingleResult(domain.ResultInvalidInput)), nil
	}
	debtor, creditor := key.Split()

	res, err := r.search(ctx, key, debtor, creditor)
	if errors.Is(err, errSearchRejected) {
		slog.Warn("Search rejected by API", "key", raw, "error", err)
		return batch.Resolved(domain.SingleResult(domain.ResultAPIError)), nil
	}
	if err != nil {
		return batch.Outcome{}, err
	}

	state := res.State
	if state.Terminal != "" {
		return batch.Resolved(domain.SingleResult(state.Terminal)), nil
	}

	var text string
	switch {
	case len(state.CollectedIDs) > 0:
		d := newParty(debtor, state.Names.Debtor)
		c := newParty(creditor, state.Names.Creditor)
		docs, err := r.documents(ctx, state.CollectedIDs, d, c)
		if err != nil {
			return batch.Outcome{}, err
		}
		text = FormatDocuments(docs)
	case state.RawHits == 0:
		slog.Info("Search returned no cases", "key", raw)
		text = domain.ResultNoCases
	default:
		slog.Info("No search hit had the expected roles", "key", raw, "hits", state.RawHits)
		text = domain.ResultNoDocuments
	}

	if !res.Complete {
		return batch.Partial(domain.SingleResult(text + "\n" + res.Note())), nil
	}
	return batch.Resolved(domain.SingleResult(text)), nil
}

func (r *Resolver) search(ctx context.Context, key domain.PairKey, debtor, creditor string) (paginate.Result, error) {
	checkpoint := func(ctx context.Context, s domain.SearchState) error {
		r.searches.Set(key.String(), s)
		return r.searches.Flush(ctx)
	}

	state, ok := r.searches.Get(key.String())
	if ok && state.Complete {
		slog.Debug("Search cache hit", "key", key)
	}
	if state.LegacyHits != nil {
		state = prefilterLegacy(state, debtor, creditor)
		slog.Info("Migrated stored search hits", "key", key, "hits", state.RawHits, "kept", len(state.CollectedIDs))
		if err := checkpoint(ctx, state); err != nil {
			return paginate.Result{}, err
		}
	}

	fetch := func(ctx context.Context, page int, known domain.Names) (paginate.Page, error) {
		resp, err := r.api.SearchCases(ctx, debtor, creditor, page)
		if err != nil {
			if !apicloud.IsPermanent(err) {
				return paginate.Page{}, err
			}
			if page == 1 {
				return paginate.Page{}, fmt.Errorf("%w: %w", errSearchRejected, err)
			}
			slog.Warn("Search page rejected, treating as end of data", "key", key, "page", page, "error", err)
			return paginate.Page{}, nil
		}

		hits := []domain.SearchHit(resp.Result)
		names := namesFrom(hits, debtor, creditor)
		d := newParty(debtor, slices.Concat(known.Debtor, names.Debtor))
		c := newParty(creditor, slices.Concat(known.Creditor, names.Creditor))

		var ids []string
		for _, hit := range hits {
			if acceptHit(hit, d, c) {
				ids = append(ids, hit.CaseID)
			}
		}
		return paginate.Page{
			IDs:        ids,
			Hits:       len(hits),
			TotalPages: resp.TotalPages(),
			Names:      names,
		}, nil
	}

	return r.fetcher.Fetch(ctx, state, fetch, checkpoint)
}

// documents fetches the detail of every case and extracts the decisions of
// the cases whose roles check out.
func (r *Resolver) documents(ctx context.Context, ids []string, debtor, creditor party) ([]domain.Document, error) {
	var docs []domain.Document
	for _, id := range ids {
		detail, err := r.caseDetail(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", id, err)
		}
		if detail == nil {
			slog.Warn("No case detail available, skipping", "case_id", id)
			continue
		}
		if !validRoles(detail, debtor, creditor) {
			slog.Warn("Role mismatch in case detail, skipping", "case_id", id,
				"debtor", debtor.inn, "creditor", creditor.inn)
			continue
		}
		found := ExtractDocuments(detail)
		slog.Debug("Case processed", "case_id", id, "documents", len(found))
		docs = append(docs, found...)
	}
	return docs, nil
}

// caseDetail returns the cached detail of a case or fetches and caches it.
// A permanent API error is cached too and yields a nil detail.
func (r *Resolver) caseDetail(ctx context.Context, id string) (*domain.CaseDetail, error) {
	if cached, ok := r.details.Get(id); ok {
		return cached.Result, nil
	}

	resp, err := r.api.CaseInfo(ctx, id)
	if err != nil && !apicloud.IsPermanent(err) {
		return nil, err
	}
	r.details.Set(id, *resp)
	if ferr := r.details.Flush(ctx); ferr != nil {
		return nil, ferr
	}
	if err != nil {
		slog.Warn("Case detail rejected by API", "case_id", id, "error", err)
		return nil, nil
	}
	return resp.Result, nil
}

// Columns names the input and output columns of the job.
type Columns struct {
	Debtor   string `yaml:"debtor"`
	Creditor string `yaml:"creditor"`
	Output   string `yaml:"output"`
}

// DefaultColumns are the column names used when none are configured.
var DefaultColumns = Columns{
	Debtor:   "debtor_inn",
	Creditor: "creditor_inn",
	Output:   "court_decision_links",
}

// NewJob builds the batch job.
func NewJob(cols Columns, resolver batch.Resolver, results *cache.Cache[domain.Result]) batch.Job {
	return batch.Job{
		Name: JobName,
		Slots: []batch.Slot{{
			Inputs: []string{cols.Debtor, cols.Creditor},
			Key: func(v []string) string {
				return domain.NewPairKey(v[0], v[1]).String()
			},
			Outputs: []string{cols.Output},
		}},
		Resolver: resolver,
		Results:  results,
	}
}
