package dashapi

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/goliatone/go-invoices/client"
	"github.com/goliatone/go-invoices/invoice"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// Request provides minimal request access for transport adapters.
type Request interface {
	Context() context.Context
	Method() string
	Path() string
	Header(name string) string
	Query(name string) string
	Body() io.ReadCloser
}

type draftPayload struct {
	CustomerID    string             `json:"customerId,omitempty"`
	CustomerName  string             `json:"customerName,omitempty"`
	CustomerPhone string             `json:"customerPhone,omitempty"`
	Date          string             `json:"date,omitempty"`
	Items         []invoice.LineItem `json:"items"`
}

func (p draftPayload) toDraft() invoice.Draft {
	return invoice.Draft{
		CustomerID:    strings.TrimSpace(p.CustomerID),
		CustomerName:  strings.TrimSpace(p.CustomerName),
		CustomerPhone: strings.TrimSpace(p.CustomerPhone),
		Date:          strings.TrimSpace(p.Date),
		Items:         p.Items,
	}
}

func decodeDraft(req Request, limit int64) (invoice.Draft, error) {
	var payload draftPayload
	if err := decodeJSON(req, limit, &payload); err != nil {
		return invoice.Draft{}, err
	}
	return payload.toDraft(), nil
}

func decodeCredentials(req Request, limit int64) (client.Credentials, error) {
	var creds client.Credentials
	if err := decodeJSON(req, limit, &creds); err != nil {
		return client.Credentials{}, err
	}
	return creds, nil
}

func decodeJSON(req Request, limit int64, dst any) error {
	body := req.Body()
	if body == nil {
		return invoice.NewError(invoice.KindValidation, "request body is required", nil)
	}
	defer body.Close()

	decoder := json.NewDecoder(io.LimitReader(body, limit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if err == io.EOF {
			return invoice.NewError(invoice.KindValidation, "request body is required", nil)
		}
		return invoice.NewError(invoice.KindValidation, "invalid request payload", err)
	}
	return nil
}

func parseHistoryFilter(req Request) (invoice.HistoryFilter, error) {
	filter := invoice.HistoryFilter{
		InvoiceID: strings.TrimSpace(req.Query("invoiceId")),
		Outcome:   invoice.Outcome(strings.TrimSpace(req.Query("outcome"))),
	}
	switch filter.Outcome {
	case "", invoice.OutcomeSucceeded, invoice.OutcomeFailed:
	default:
		return invoice.HistoryFilter{}, invoice.NewError(invoice.KindValidation, "invalid outcome", nil)
	}
	if raw := strings.TrimSpace(req.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return invoice.HistoryFilter{}, invoice.NewError(invoice.KindValidation, "invalid limit", err)
		}
		filter.Limit = limit
	}
	return filter, nil
}
