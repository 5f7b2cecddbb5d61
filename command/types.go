package command

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoices/client"
	"github.com/goliatone/go-invoices/invoice"
	"github.com/goliatone/go-invoices/session"
)

// ExportedPDF is the outcome of an ExportInvoicePDF command.
type ExportedPDF struct {
	Document invoice.Document
	Result   invoice.Result
}

// ExportInvoicePDF captures the invoice surface and delivers a PDF.
type ExportInvoicePDF struct {
	InvoiceID string
	Result    *ExportedPDF
}

func (ExportInvoicePDF) Type() string { return "invoice:export-pdf" }

func (msg ExportInvoicePDF) Validate() error {
	if strings.TrimSpace(msg.InvoiceID) == "" {
		return errors.New("invoice ID is required", errors.CategoryValidation).
			WithTextCode("INVOICE_ID_REQUIRED")
	}
	return nil
}

// CreateInvoice submits a new invoice.
type CreateInvoice struct {
	Draft  invoice.Draft
	Result *invoice.Invoice
}

func (CreateInvoice) Type() string { return "invoice:create" }

func (msg CreateInvoice) Validate() error {
	if err := msg.Draft.Validate(); err != nil {
		return invoice.AsGoError(err)
	}
	return nil
}

// UpdateInvoice patches an existing invoice.
type UpdateInvoice struct {
	InvoiceID string
	Draft     invoice.Draft
	Result    *invoice.Invoice
}

func (UpdateInvoice) Type() string { return "invoice:update" }

func (msg UpdateInvoice) Validate() error {
	if strings.TrimSpace(msg.InvoiceID) == "" {
		return errors.New("invoice ID is required", errors.CategoryValidation).
			WithTextCode("INVOICE_ID_REQUIRED")
	}
	if err := msg.Draft.ValidateUpdate(); err != nil {
		return invoice.AsGoError(err)
	}
	return nil
}

// DeleteInvoice deletes an invoice.
type DeleteInvoice struct {
	InvoiceID string
}

func (DeleteInvoice) Type() string { return "invoice:delete" }

func (msg DeleteInvoice) Validate() error {
	if strings.TrimSpace(msg.InvoiceID) == "" {
		return errors.New("invoice ID is required", errors.CategoryValidation).
			WithTextCode("INVOICE_ID_REQUIRED")
	}
	return nil
}

// Login opens a session against the remote API.
type Login struct {
	Credentials client.Credentials
	Result      *session.Session
}

func (Login) Type() string { return "session:login" }

func (msg Login) Validate() error {
	if strings.TrimSpace(msg.Credentials.Email) == "" || strings.TrimSpace(msg.Credentials.Password) == "" {
		return errors.New("Please enter email and password", errors.CategoryValidation).
			WithTextCode("CREDENTIALS_REQUIRED")
	}
	return nil
}

// Logout drops the local session.
type Logout struct{}

func (Logout) Type() string { return "session:logout" }

func (Logout) Validate() error { return nil }

// PruneExports removes export history older than MaxAge.
type PruneExports struct {
	Now    time.Time
	MaxAge time.Duration
	Result *int64
}

func (PruneExports) Type() string { return "invoice:prune-exports" }

func (msg PruneExports) Validate() error {
	if msg.MaxAge < 0 {
		return errors.New("max age must not be negative", errors.CategoryValidation).
			WithTextCode("MAX_AGE_INVALID")
	}
	return nil
}
