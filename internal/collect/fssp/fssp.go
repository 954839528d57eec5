// Package fssp resolves enforcement proceeding numbers to the debt sum and
// the issuing body named in the writ.
package fssp

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/utof/debtds/internal/collect/batch"
	"github.com/utof/debtds/internal/core/cache"
	"github.com/utof/debtds/internal/core/domain"
	"github.com/utof/debtds/internal/infra/apicloud"
)

// Job name and cache namespaces.
const (
	JobName            = "fssp"
	NamespaceResponses = "fssp_responses"
	NamespaceResults   = "fssp_results"
)

// UnknownIssuer is written when the writ text does not match.
const UnknownIssuer = "Unknown"

// writPattern matches "№ ФС <number> <issuer> <number>" in a writ description.
var writPattern = regexp.MustCompile(`№ ФС (?:№ )?(\d+) (.+?) (\d+)`)

// Columns names the input and output columns of the job.
type Columns struct {
	Number string `yaml:"number"`
	Sum    string `yaml:"sum"`
	Issuer string `yaml:"issuer"`
}

// DefaultColumns are the column names used when none are configured.
var DefaultColumns = Columns{
	Number: "ip",
	Sum:    "fssp_sum",
	Issuer: "recispdoc",
}

// API is the part of the api-cloud client the resolver needs.
type API interface {
	EnforcementProceeding(ctx context.Context, number string) (*apicloud.FSSPResponse, error)
}

// Issuer extracts the issuing body from a writ description.
func Issuer(recIspDoc string) string {
	m := writPattern.FindStringSubmatch(recIspDoc)
	if m == nil {
		return UnknownIssuer
	}
	return m[2]
}

// Extract derives the two output fields from a response.
func Extract(resp *apicloud.FSSPResponse) domain.Result {
	if resp.StatusCode() != apicloud.StatusOK {
		return domain.FillResult(2, domain.ResultAPIError)
	}
	if len(resp.Records) == 0 {
		return domain.FillResult(2, domain.ResultNoCases)
	}
	rec := resp.Records[0]
	return domain.Result{rec.Sum.String(), Issuer(rec.RecIspDoc)}
}

// Resolver implements batch.Resolver for enforcement proceedings.
type Resolver struct {
	api       API
	responses *cache.Cache[apicloud.FSSPResponse]
}

// NewResolver creates a resolver over the raw response cache.
func NewResolver(api API, responses *cache.Cache[apicloud.FSSPResponse]) *Resolver {
	return &Resolver{api: api, responses: responses}
}

// Resolve implements batch.Resolver. key is a proceeding number.
func (r *Resolver) Resolve(ctx context.Context, key string) (batch.Outcome, error) {
	number := strings.TrimSpace(key)
	if number == "" {
		return batch.Resolved(domain.FillResult(2, domain.ResultInvalidInput)), nil
	}

	resp, ok := r.responses.Get(number)
	if !ok {
		fetched, err := r.api.EnforcementProceeding(ctx, number)
		if err != nil && !apicloud.IsPermanent(err) {
			return batch.Outcome{}, err
		}
		if err != nil {
			slog.Warn("Proceeding lookup rejected by API", "number", number, "error", err)
		}
		r.responses.Set(number, *fetched)
		if err := r.responses.Flush(ctx); err != nil {
			return batch.Outcome{}, err
		}
		resp = *fetched
	}
	return batch.Resolved(Extract(&resp)), nil
}

// NewJob builds the batch job.
func NewJob(cols Columns, resolver batch.Resolver, results *cache.Cache[domain.Result]) batch.Job {
	return batch.Job{
		Name: JobName,
		Slots: []batch.Slot{{
			Inputs:  []string{cols.Number},
			Key:     func(v []string) string { return strings.TrimSpace(v[0]) },
			Outputs: []string{cols.Sum, cols.Issuer},
		}},
		Resolver: resolver,
		Results:  results,
	}
}
