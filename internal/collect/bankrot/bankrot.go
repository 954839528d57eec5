// Package bankrot resolves INNs to their Fedresurs bankruptcy status code.
package bankrot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/utof/debtds/internal/collect/batch"
	"github.com/utof/debtds/internal/core/cache"
	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/infra/apicloud"
)

// Job name and cache namespaces.
const (
	JobName            = "bankrot"
	NamespaceResponses = "bankrot_responses"
	NamespaceResults   = "bankrot_results"
)

// Registry phrases that decide the status.
const (
	messageNotFound     = "Информация не найдена"
	phraseCompetitive   = "Конкурсное производство"
	phraseObservation   = "Наблюдение"
	phraseTerminated    = "Производство по делу прекращено"
	statusColumnPostfix = "_status"
)

// API is the part of the api-cloud client the resolver needs.
type API interface {
	SearchBankruptcy(ctx context.Context, inn string) (*apicloud.BankrotResponse, error)
}

// Classify derives the status of a registry response. ok is false when the
// response is an API error other than "not found".
func Classify(resp *apicloud.BankrotResponse) (status domain.BankruptcyStatus, ok bool) {
	if resp.Message == messageNotFound {
		return domain.BankruptcyNotFound, true
	}
	if resp.StatusCode() != apicloud.StatusOK {
		return 0, false
	}

	status = domain.BankruptcyNone
	if len(resp.Rez) == 0 {
		return status, true
	}
	rec := resp.Rez[0]
	switch desc := rec.Description.Value; {
	case strings.Contains(desc, phraseCompetitive):
		status = domain.BankruptcyCompetitive
	case desc == phraseObservation:
		status = domain.BankruptcyObservation
	case desc == phraseTerminated:
		status = domain.BankruptcyTerminated
	}
	if rec.Status.Value == phraseTerminated {
		status = domain.BankruptcyTerminated
	}
	return status, true
}

// Resolver implements batch.Resolver for bankruptcy status codes.
type Resolver struct {
	api       API
	responses *cache.Cache[apicloud.BankrotResponse]
}

// NewResolver creates a resolver over the raw response cache.
func NewResolver(api API, responses *cache.Cache[apicloud.BankrotResponse]) *Resolver {
	return &Resolver{api: api, responses: responses}
}

// Resolve implements batch.Resolver. key is an INN.
func (r *Resolver) Resolve(ctx context.Context, key string) (batch.Outcome, error) {
	inn := strings.TrimSpace(key)
	if inn == "" {
		return batch.Resolved(domain.SingleResult(domain.ResultInvalidInput)), nil
	}

	resp, err := r.response(ctx, inn)
	if err != nil {
		return batch.Outcome{}, err
	}

	status, ok := Classify(resp)
	if !ok {
		slog.Warn("Bankruptcy lookup rejected by API", "inn", inn, "status", resp.StatusCode(), "error", resp.ErrorMsg)
		return batch.Resolved(domain.SingleResult(domain.ResultAPIError)), nil
	}
	slog.Debug("Bankruptcy status", "inn", inn, "code", status.Code(), "status", status.String())
	return batch.Resolved(domain.SingleResult(status.Code())), nil
}

func (r *Resolver) response(ctx context.Context, inn string) (*apicloud.BankrotResponse, error) {
	if cached, ok := r.responses.Get(inn); ok {
		return &cached, nil
	}
	resp, err := r.api.SearchBankruptcy(ctx, inn)
	if err != nil && !apicloud.IsPermanent(err) {
		return nil, err
	}
	r.responses.Set(inn, *resp)
	if err := r.responses.Flush(ctx); err != nil {
		return nil, err
	}
	return resp, nil
}

// StatusColumn returns the output column for an INN column.
func StatusColumn(col string) string {
	return col + statusColumnPostfix
}

// NewJob builds the batch job with one slot per INN column.
func NewJob(innColumns []string, resolver batch.Resolver, results *cache.Cache[domain.Result]) batch.Job {
	slots := make([]batch.Slot, 0, len(innColumns))
	for _, col := range innColumns {
		slots = append(slots, batch.Slot{
			Inputs:  []string{col},
			Key:     func(v []string) string { return strings.TrimSpace(v[0]) },
			Outputs: []string{StatusColumn(col)},
		})
	}
	return batch.Job{
		Name:     JobName,
		Slots:    slots,
		Resolver: resolver,
		Results:  results,
	}
}
