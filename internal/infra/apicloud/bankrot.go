package apicloud

import "context"

// Value is the {"value": ...} wrapper used by the bankruptcy registry.
type Value struct {
	Value string `json:"value"`
}

// BankrotRecord is one registry entry for an organisation.
type BankrotRecord struct {
	Description Value `json:"description"`
	Status      Value `json:"status"`
}

// BankrotResponse is the bankruptcy registry answer for one INN.
type BankrotResponse struct {
	Envelope
	Rez List[BankrotRecord] `json:"rez"`
}

// SearchBankruptcy looks up legal entities by INN in the Fedresurs registry.
func (c *Client) SearchBankruptcy(ctx context.Context, inn string) (*BankrotResponse, error) {
	q := params{}.
		add("type", "searchString").
		add("string", inn).
		add("legalStatus", "legal")

	var resp BankrotResponse
	if err := c.get(ctx, EndpointBankrot, q, &resp); err != nil {
		return &resp, err
	}
	return &resp, nil
}
