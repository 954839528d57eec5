package apicloud

import (
	"context"

	"github.com/utof/debtds/internal/core/domain"
)

// FSSPRecord is one enforcement proceeding.
type FSSPRecord struct {
	ProcessTitle string            `json:"process_title"`
	RecIspDoc    string            `json:"recIspDoc"`
	Sum          domain.FlexString `json:"sum"`
}

// FSSPResponse is the bailiff registry answer for one proceeding number.
type FSSPResponse struct {
	Envelope
	Records List[FSSPRecord] `json:"records"`
}

// EnforcementProceeding looks up an enforcement proceeding by its number.
func (c *Client) EnforcementProceeding(ctx context.Context, number string) (*FSSPResponse, error) {
	q := params{}.
		add("type", "ip").
		add("number", number)

	var resp FSSPResponse
	if err := c.get(ctx, EndpointFSSP, q, &resp); err != nil {
		return &resp, err
	}
	return &resp, nil
}
