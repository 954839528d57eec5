package apicloud

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/utof/debtds/internal/core/domain"
)

// Participant types of the court search.
const (
	participantRespondent = "1"
	participantPlaintiff  = "0"
)

// SearchResponse is one page of the court registry search.
type SearchResponse struct {
	Envelope
	Result     List[domain.SearchHit] `json:"Result"`
	PagesCount domain.FlexString      `json:"PagesCount"`
}

// TotalPages returns the declared page count, or 0 when it is missing or
// unreadable.
func (r *SearchResponse) TotalPages() int {
	n, err := r.PagesCount.Int()
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// CaseInfoResponse is the detail record of one case. Result is nil when the
// API returned no case object.
type CaseInfoResponse struct {
	Envelope
	Result *domain.CaseDetail `json:"Result,omitempty"`
}

func (r *CaseInfoResponse) UnmarshalJSON(data []byte) error {
	type alias CaseInfoResponse
	aux := struct {
		*alias
		Result json.RawMessage `json:"Result"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.Result = nil
	raw := bytes.TrimSpace(aux.Result)
	if len(raw) > 0 && raw[0] == '{' {
		var detail domain.CaseDetail
		if err := json.Unmarshal(raw, &detail); err != nil {
			return err
		}
		r.Result = &detail
	}
	return nil
}

// SearchCases fetches one page of cases where debtor is a respondent and
// creditor a plaintiff.
func (c *Client) SearchCases(ctx context.Context, debtor, creditor string, page int) (*SearchResponse, error) {
	q := params{}.
		add("type", "search").
		add("CaseType", "G").
		add("participant", debtor).
		add("participantType", participantRespondent).
		add("participant", creditor).
		add("participantType", participantPlaintiff).
		add("page", strconv.Itoa(page))

	var resp SearchResponse
	if err := c.get(ctx, EndpointCourts, q, &resp); err != nil {
		return &resp, err
	}
	return &resp, nil
}

// CaseInfo fetches the detail record of a case.
func (c *Client) CaseInfo(ctx context.Context, caseID string) (*CaseInfoResponse, error) {
	q := params{}.
		add("type", "caseInfo").
		add("CaseId", caseID)

	var resp CaseInfoResponse
	if err := c.get(ctx, EndpointCourts, q, &resp); err != nil {
		return &resp, err
	}
	return &resp, nil
}
