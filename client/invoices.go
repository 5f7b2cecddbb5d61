package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-invoices/invoice"
)

// ListInvoices returns every invoice. A null body is an empty list.
func (c *Client) ListInvoices(ctx context.Context) ([]invoice.Invoice, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/invoices", nil, &raw); err != nil {
		return nil, err
	}
	out := []invoice.Invoice{}
	if err := decodeEnvelope(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []invoice.Invoice{}
	}
	return out, nil
}

// GetInvoice returns one invoice. The API wraps it in {data}.
func (c *Client) GetInvoice(ctx context.Context, id string) (invoice.Invoice, error) {
	path, err := invoicePath(id)
	if err != nil {
		return invoice.Invoice{}, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return invoice.Invoice{}, err
	}
	var inv invoice.Invoice
	if err := decodeEnvelope(raw, &inv); err != nil {
		return invoice.Invoice{}, err
	}
	if inv.ID == "" {
		return invoice.Invoice{}, invoice.NewError(invoice.KindNotFound, "invoice "+id+" not found", nil)
	}
	return inv, nil
}

// CreateInvoice validates and submits a new invoice.
func (c *Client) CreateInvoice(ctx context.Context, draft invoice.Draft) (invoice.Invoice, error) {
	if err := draft.Validate(); err != nil {
		return invoice.Invoice{}, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/invoices", draft, &raw); err != nil {
		return invoice.Invoice{}, err
	}
	var inv invoice.Invoice
	if err := decodeEnvelope(raw, &inv); err != nil {
		return invoice.Invoice{}, err
	}
	return inv, nil
}

// UpdateInvoice patches an existing invoice.
func (c *Client) UpdateInvoice(ctx context.Context, id string, draft invoice.Draft) (invoice.Invoice, error) {
	path, err := invoicePath(id)
	if err != nil {
		return invoice.Invoice{}, err
	}
	if err := draft.ValidateUpdate(); err != nil {
		return invoice.Invoice{}, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPatch, path, draft, &raw); err != nil {
		return invoice.Invoice{}, err
	}
	var inv invoice.Invoice
	if err := decodeEnvelope(raw, &inv); err != nil {
		return invoice.Invoice{}, err
	}
	if inv.ID == "" {
		inv.ID = id
	}
	return inv, nil
}

// DeleteInvoice deletes an invoice.
func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	path, err := invoicePath(id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func invoicePath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", invoice.NewError(invoice.KindValidation, "invoice ID is required", nil)
	}
	return "/invoices/" + url.PathEscape(id), nil
}
