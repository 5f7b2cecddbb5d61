package query

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoices/dashboard"
	"github.com/goliatone/go-invoices/invoice"
	"github.com/goliatone/go-invoices/invoice/notify"
	"github.com/goliatone/go-invoices/session"
)

func serviceRequired() error {
	return errors.New("dashboard service is required", errors.CategoryInternal).
		WithTextCode("SERVICE_REQUIRED")
}

// ListInvoicesHandler returns invoice summaries.
type ListInvoicesHandler struct {
	Service dashboard.Service
}

func NewListInvoicesHandler(svc dashboard.Service) *ListInvoicesHandler {
	return &ListInvoicesHandler{Service: svc}
}

func (h *ListInvoicesHandler) Query(ctx context.Context, msg ListInvoices) ([]dashboard.Summary, error) {
	_ = msg
	if h == nil || h.Service == nil {
		return nil, serviceRequired()
	}
	return h.Service.ListInvoices(ctx)
}

// GetInvoiceHandler returns one invoice summary.
type GetInvoiceHandler struct {
	Service dashboard.Service
}

func NewGetInvoiceHandler(svc dashboard.Service) *GetInvoiceHandler {
	return &GetInvoiceHandler{Service: svc}
}

func (h *GetInvoiceHandler) Query(ctx context.Context, msg GetInvoice) (dashboard.Summary, error) {
	if h == nil || h.Service == nil {
		return dashboard.Summary{}, serviceRequired()
	}
	return h.Service.GetInvoice(ctx, msg.InvoiceID)
}

// ListCustomersHandler returns customers.
type ListCustomersHandler struct {
	Service dashboard.Service
}

func NewListCustomersHandler(svc dashboard.Service) *ListCustomersHandler {
	return &ListCustomersHandler{Service: svc}
}

func (h *ListCustomersHandler) Query(ctx context.Context, msg ListCustomers) ([]invoice.Customer, error) {
	_ = msg
	if h == nil || h.Service == nil {
		return nil, serviceRequired()
	}
	return h.Service.ListCustomers(ctx)
}

// ExportHistoryHandler returns export history.
type ExportHistoryHandler struct {
	Service dashboard.Service
}

func NewExportHistoryHandler(svc dashboard.Service) *ExportHistoryHandler {
	return &ExportHistoryHandler{Service: svc}
}

func (h *ExportHistoryHandler) Query(ctx context.Context, msg ExportHistory) ([]invoice.ExportRecord, error) {
	if h == nil || h.Service == nil {
		return nil, serviceRequired()
	}
	return h.Service.ExportHistory(ctx, msg.Filter)
}

// ExporterStatusHandler reports whether an export is running.
type ExporterStatusHandler struct {
	Service dashboard.Service
}

func NewExporterStatusHandler(svc dashboard.Service) *ExporterStatusHandler {
	return &ExporterStatusHandler{Service: svc}
}

func (h *ExporterStatusHandler) Query(ctx context.Context, msg ExporterStatus) (dashboard.ExporterStatus, error) {
	_ = msg
	if h == nil || h.Service == nil {
		return dashboard.ExporterStatus{}, serviceRequired()
	}
	return h.Service.ExporterStatus(ctx), nil
}

// NotificationsHandler returns the notification board.
type NotificationsHandler struct {
	Service dashboard.Service
}

func NewNotificationsHandler(svc dashboard.Service) *NotificationsHandler {
	return &NotificationsHandler{Service: svc}
}

func (h *NotificationsHandler) Query(ctx context.Context, msg Notifications) ([]notify.Event, error) {
	_ = msg
	if h == nil || h.Service == nil {
		return nil, serviceRequired()
	}
	return h.Service.Notifications(ctx), nil
}

// SessionState is the CurrentSession answer.
type SessionState struct {
	Authenticated bool          `json:"isAuthenticated"`
	User          *session.User `json:"user,omitempty"`
}

// CurrentSessionHandler returns the active session without its token.
type CurrentSessionHandler struct {
	Service dashboard.Service
}

func NewCurrentSessionHandler(svc dashboard.Service) *CurrentSessionHandler {
	return &CurrentSessionHandler{Service: svc}
}

func (h *CurrentSessionHandler) Query(ctx context.Context, msg CurrentSession) (SessionState, error) {
	_ = msg
	if h == nil || h.Service == nil {
		return SessionState{}, serviceRequired()
	}
	sess, ok := h.Service.CurrentSession(ctx)
	if !ok {
		return SessionState{}, nil
	}
	user := sess.User
	return SessionState{Authenticated: true, User: &user}, nil
}
