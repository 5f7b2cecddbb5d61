package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-invoices/invoice"
)

// ListCustomers returns the customers offered in the invoice form.
func (c *Client) ListCustomers(ctx context.Context) ([]invoice.Customer, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/customers", nil, &raw); err != nil {
		return nil, err
	}
	out := []invoice.Customer{}
	if err := decodeEnvelope(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []invoice.Customer{}
	}
	return out, nil
}
