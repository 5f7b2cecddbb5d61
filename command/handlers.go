package command

import (
	"context"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoices/dashboard"
	"github.com/goliatone/go-invoices/invoice"
	"github.com/goliatone/go-invoices/session"
)

func serviceRequired() error {
	return errors.New("dashboard service is required", errors.CategoryInternal).
		WithTextCode("SERVICE_REQUIRED")
}

// ExportInvoicePDFHandler runs the PDF export pipeline for one invoice.
type ExportInvoicePDFHandler struct {
	Service dashboard.Service
}

func NewExportInvoicePDFHandler(svc dashboard.Service) *ExportInvoicePDFHandler {
	return &ExportInvoicePDFHandler{Service: svc}
}

func (h *ExportInvoicePDFHandler) Execute(ctx context.Context, msg ExportInvoicePDF) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	doc, res, err := h.Service.ExportPDF(ctx, msg.InvoiceID)
	if err != nil {
		return err
	}
	out := ExportedPDF{Document: doc, Result: res}
	if msg.Result != nil {
		*msg.Result = out
	}
	if r := gcmd.ResultFromContext[ExportedPDF](ctx); r != nil {
		r.Store(out)
	}
	return nil
}

// CreateInvoiceHandler creates invoices.
type CreateInvoiceHandler struct {
	Service dashboard.Service
}

func NewCreateInvoiceHandler(svc dashboard.Service) *CreateInvoiceHandler {
	return &CreateInvoiceHandler{Service: svc}
}

func (h *CreateInvoiceHandler) Execute(ctx context.Context, msg CreateInvoice) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	inv, err := h.Service.CreateInvoice(ctx, msg.Draft)
	if err != nil {
		return err
	}
	storeInvoice(ctx, msg.Result, inv)
	return nil
}

// UpdateInvoiceHandler updates invoices.
type UpdateInvoiceHandler struct {
	Service dashboard.Service
}

func NewUpdateInvoiceHandler(svc dashboard.Service) *UpdateInvoiceHandler {
	return &UpdateInvoiceHandler{Service: svc}
}

func (h *UpdateInvoiceHandler) Execute(ctx context.Context, msg UpdateInvoice) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	inv, err := h.Service.UpdateInvoice(ctx, msg.InvoiceID, msg.Draft)
	if err != nil {
		return err
	}
	storeInvoice(ctx, msg.Result, inv)
	return nil
}

func storeInvoice(ctx context.Context, dst *invoice.Invoice, inv invoice.Invoice) {
	if dst != nil {
		*dst = inv
	}
	if r := gcmd.ResultFromContext[invoice.Invoice](ctx); r != nil {
		r.Store(inv)
	}
}

// DeleteInvoiceHandler deletes invoices.
type DeleteInvoiceHandler struct {
	Service dashboard.Service
}

func NewDeleteInvoiceHandler(svc dashboard.Service) *DeleteInvoiceHandler {
	return &DeleteInvoiceHandler{Service: svc}
}

func (h *DeleteInvoiceHandler) Execute(ctx context.Context, msg DeleteInvoice) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	return h.Service.DeleteInvoice(ctx, msg.InvoiceID)
}

// LoginHandler opens sessions.
type LoginHandler struct {
	Service dashboard.Service
}

func NewLoginHandler(svc dashboard.Service) *LoginHandler {
	return &LoginHandler{Service: svc}
}

func (h *LoginHandler) Execute(ctx context.Context, msg Login) error {
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	sess, err := h.Service.Login(ctx, msg.Credentials)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = sess
	}
	if r := gcmd.ResultFromContext[session.Session](ctx); r != nil {
		r.Store(sess)
	}
	return nil
}

// LogoutHandler closes sessions.
type LogoutHandler struct {
	Service dashboard.Service
}

func NewLogoutHandler(svc dashboard.Service) *LogoutHandler {
	return &LogoutHandler{Service: svc}
}

func (h *LogoutHandler) Execute(ctx context.Context, msg Logout) error {
	_ = msg
	if h == nil || h.Service == nil {
		return serviceRequired()
	}
	return h.Service.Logout(ctx)
}
