package query

import (
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoices/invoice"
)

// ListInvoices requests every invoice with derived totals.
type ListInvoices struct{}

func (ListInvoices) Type() string { return "invoice:list" }

func (ListInvoices) Validate() error { return nil }

// GetInvoice requests one invoice.
type GetInvoice struct {
	InvoiceID string
}

func (GetInvoice) Type() string { return "invoice:get" }

func (msg GetInvoice) Validate() error {
	if strings.TrimSpace(msg.InvoiceID) == "" {
		return errors.New("invoice ID is required", errors.CategoryValidation).
			WithTextCode("INVOICE_ID_REQUIRED")
	}
	return nil
}

// ListCustomers requests the customer list.
type ListCustomers struct{}

func (ListCustomers) Type() string { return "customer:list" }

func (ListCustomers) Validate() error { return nil }

// ExportHistory requests PDF export history.
type ExportHistory struct {
	Filter invoice.HistoryFilter
}

func (ExportHistory) Type() string { return "invoice:export-history" }

func (msg ExportHistory) Validate() error {
	if msg.Filter.Limit < 0 {
		return errors.New("limit must not be negative", errors.CategoryValidation).
			WithTextCode("LIMIT_INVALID")
	}
	switch msg.Filter.Outcome {
	case "", invoice.OutcomeSucceeded, invoice.OutcomeFailed:
	default:
		return errors.New("unknown outcome", errors.CategoryValidation).
			WithTextCode("OUTCOME_INVALID")
	}
	return nil
}

// ExporterStatus requests the state of the export slot.
type ExporterStatus struct{}

func (ExporterStatus) Type() string { return "invoice:exporter-status" }

func (ExporterStatus) Validate() error { return nil }

// Notifications requests the latest notification per operation.
type Notifications struct{}

func (Notifications) Type() string { return "notification:list" }

func (Notifications) Validate() error { return nil }

// CurrentSession requests the active session.
type CurrentSession struct{}

func (CurrentSession) Type() string { return "session:current" }

func (CurrentSession) Validate() error { return nil }
