package dashboard

import (
	"context"
	"io"
	"time"

	storefs "github.com/goliatone/go-invoices/adapters/store/fs"
	"github.com/goliatone/go-invoices/client"
	"github.com/goliatone/go-invoices/invoice"
	"github.com/goliatone/go-invoices/invoice/notify"
	"github.com/goliatone/go-invoices/session"
)

// Notification messages for invoice operations other than PDF export.
const (
	DeleteOperationID = "invoice-delete"
	FetchOperationID  = "invoice-fetch"

	msgDeleteSucceeded = "تم حذف الفاتورة بنجاح"
	msgDeleteFailed    = "حدث خطأ أثناء حذف الفاتورة"
	msgFetchFailed     = "حدث خطأ أثناء جلب الفواتير"
)

// API is the remote invoice API as the dashboard consumes it.
type API interface {
	Session() *session.Manager
	Login(ctx context.Context, creds client.Credentials) (session.Session, error)
	Logout(ctx context.Context) error
	ListInvoices(ctx context.Context) ([]invoice.Invoice, error)
	GetInvoice(ctx context.Context, id string) (invoice.Invoice, error)
	CreateInvoice(ctx context.Context, draft invoice.Draft) (invoice.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, draft invoice.Draft) (invoice.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
	ListCustomers(ctx context.Context) ([]invoice.Customer, error)
}

// Archive reads documents the export pipeline stored on disk.
type Archive interface {
	Open(ctx context.Context, name string) (io.ReadCloser, storefs.Meta, error)
}

// SheetWriter writes an invoice list spreadsheet.
type SheetWriter interface {
	WriteInvoices(ctx context.Context, w io.Writer, invoices []invoice.Invoice) error
}

// Summary is an invoice row with its derived total and status.
type Summary struct {
	invoice.Invoice
	Total  float64        `json:"total"`
	Status invoice.Status `json:"status"`
}

// ExporterStatus reports whether an export holds the surface.
type ExporterStatus struct {
	Generating bool              `json:"isGenerating"`
	JobID      string            `json:"jobId,omitempty"`
	InvoiceID  string            `json:"invoiceId,omitempty"`
	StartedAt  *time.Time        `json:"startedAt,omitempty"`
	Status     invoice.JobStatus `json:"status"`
}

// Download is an exported or archived document ready to send.
type Download struct {
	Filename    string
	ContentType string
	Size        int64
	ModTime     time.Time
	Reader      io.Reader
	JobID       string
}

// Service is the dashboard application surface.
type Service interface {
	Login(ctx context.Context, creds client.Credentials) (session.Session, error)
	Logout(ctx context.Context) error
	CurrentSession(ctx context.Context) (session.Session, bool)

	ListInvoices(ctx context.Context) ([]Summary, error)
	GetInvoice(ctx context.Context, id string) (Summary, error)
	CreateInvoice(ctx context.Context, draft invoice.Draft) (invoice.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, draft invoice.Draft) (invoice.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
	ListCustomers(ctx context.Context) ([]invoice.Customer, error)

	ExportPDF(ctx context.Context, id string) (invoice.Document, invoice.Result, error)
	ExporterStatus(ctx context.Context) ExporterStatus
	ExportHistory(ctx context.Context, filter invoice.HistoryFilter) ([]invoice.ExportRecord, error)
	DownloadExport(ctx context.Context, exportID string) (Download, io.Closer, error)
	WriteInvoiceSheet(ctx context.Context, w io.Writer) error

	Notifications(ctx context.Context) []notify.Event
	DismissNotification(ctx context.Context, operationID string)
}

// Config wires the dashboard service.
type Config struct {
	API      API
	Exporter *invoice.Exporter
	Surface  invoice.SurfaceRef
	History  invoice.HistoryTracker
	Archive  Archive
	Sheet    SheetWriter
	Notifier notify.Notifier
	Board    *notify.Board
	Logger   invoice.Logger
}

type service struct {
	api      API
	exporter *invoice.Exporter
	surface  invoice.SurfaceRef
	history  invoice.HistoryTracker
	archive  Archive
	sheet    SheetWriter
	notifier notify.Notifier
	board    *notify.Board
	logger   invoice.Logger
}

// NewService creates a Service with the provided configuration.
func NewService(cfg Config) Service {
	svc := &service{
		api:      cfg.API,
		exporter: cfg.Exporter,
		surface:  cfg.Surface,
		history:  cfg.History,
		archive:  cfg.Archive,
		sheet:    cfg.Sheet,
		notifier: cfg.Notifier,
		board:    cfg.Board,
		logger:   cfg.Logger,
	}
	if svc.notifier == nil {
		if svc.board != nil {
			svc.notifier = svc.board
		} else {
			svc.notifier = notify.Nop{}
		}
	}
	if svc.logger == nil {
		svc.logger = invoice.NopLogger{}
	}
	return svc
}

func (s *service) requireAPI() error {
	if s == nil || s.api == nil {
		return invoice.NewError(invoice.KindInternal, "api client is required", nil)
	}
	return nil
}

func (s *service) Login(ctx context.Context, creds client.Credentials) (session.Session, error) {
	if err := s.requireAPI(); err != nil {
		return session.Session{}, err
	}
	return s.api.Login(ctx, creds)
}

func (s *service) Logout(ctx context.Context) error {
	if err := s.requireAPI(); err != nil {
		return err
	}
	return s.api.Logout(ctx)
}

func (s *service) CurrentSession(ctx context.Context) (session.Session, bool) {
	_ = ctx
	if s.requireAPI() != nil {
		return session.Session{}, false
	}
	return s.api.Session().Current()
}

func (s *service) ListInvoices(ctx context.Context) ([]Summary, error) {
	if err := s.requireAPI(); err != nil {
		return nil, err
	}
	invoices, err := s.api.ListInvoices(ctx)
	if err != nil {
		s.notify(ctx, notify.Event{OperationID: FetchOperationID, Stage: notify.StageFailure, Message: msgFetchFailed, Error: err.Error()})
		return nil, err
	}
	out := make([]Summary, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, summarize(inv))
	}
	return out, nil
}

func (s *service) GetInvoice(ctx context.Context, id string) (Summary, error) {
	if err := s.requireAPI(); err != nil {
		return Summary{}, err
	}
	inv, err := s.api.GetInvoice(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return summarize(inv), nil
}

func (s *service) CreateInvoice(ctx context.Context, draft invoice.Draft) (invoice.Invoice, error) {
	if err := s.requireAPI(); err != nil {
		return invoice.Invoice{}, err
	}
	return s.api.CreateInvoice(ctx, draft)
}

func (s *service) UpdateInvoice(ctx context.Context, id string, draft invoice.Draft) (invoice.Invoice, error) {
	if err := s.requireAPI(); err != nil {
		return invoice.Invoice{}, err
	}
	return s.api.UpdateInvoice(ctx, id, draft)
}

func (s *service) DeleteInvoice(ctx context.Context, id string) error {
	if err := s.requireAPI(); err != nil {
		return err
	}
	if err := s.api.DeleteInvoice(ctx, id); err != nil {
		s.notify(ctx, notify.Event{OperationID: DeleteOperationID, Stage: notify.StageFailure, Message: msgDeleteFailed, InvoiceID: id, Error: err.Error()})
		return err
	}
	s.notify(ctx, notify.Event{OperationID: DeleteOperationID, Stage: notify.StageSuccess, Message: msgDeleteSucceeded, InvoiceID: id})
	return nil
}

func (s *service) ListCustomers(ctx context.Context) ([]invoice.Customer, error) {
	if err := s.requireAPI(); err != nil {
		return nil, err
	}
	return s.api.ListCustomers(ctx)
}

// ExportPDF loads the invoice and runs it through the export pipeline. The
// document is returned to the caller as well as handed to the configured
// delivery.
func (s *service) ExportPDF(ctx context.Context, id string) (invoice.Document, invoice.Result, error) {
	if err := s.requireAPI(); err != nil {
		return invoice.Document{}, invoice.Result{}, err
	}
	if s.exporter == nil {
		return invoice.Document{}, invoice.Result{}, invoice.NewError(invoice.KindInternal, "exporter is required", nil)
	}
	inv, err := s.api.GetInvoice(ctx, id)
	if err != nil {
		return invoice.Document{}, invoice.Result{}, err
	}

	download := invoice.NewMemoryDelivery()
	res, err := s.exporter.Export(ctx, inv, s.surface, invoice.WithDelivery(download))
	if err != nil {
		return invoice.Document{}, invoice.Result{}, err
	}
	doc, ok := download.Last()
	if !ok {
		return invoice.Document{}, invoice.Result{}, invoice.NewError(invoice.KindExportFailed, "export produced no document", nil)
	}
	return doc, res, nil
}

func (s *service) ExporterStatus(ctx context.Context) ExporterStatus {
	_ = ctx
	status := ExporterStatus{Status: invoice.JobIdle}
	if s.exporter == nil {
		return status
	}
	status.Generating = s.exporter.IsGenerating()
	if job, ok := s.exporter.CurrentJob(); ok {
		started := job.StartedAt
		status.JobID = job.ID
		status.InvoiceID = job.Invoice.ID
		status.StartedAt = &started
		status.Status = job.Status
	}
	return status
}

func (s *service) ExportHistory(ctx context.Context, filter invoice.HistoryFilter) ([]invoice.ExportRecord, error) {
	if s.history == nil {
		return []invoice.ExportRecord{}, nil
	}
	return s.history.List(ctx, filter)
}

func (s *service) DownloadExport(ctx context.Context, exportID string) (Download, io.Closer, error) {
	if exportID == "" {
		return Download{}, nil, invoice.NewError(invoice.KindValidation, "export ID is required", nil)
	}
	if s.history == nil || s.archive == nil {
		return Download{}, nil, invoice.NewError(invoice.KindNotFound, "export archive is not configured", nil)
	}
	rec, err := s.history.Get(ctx, exportID)
	if err != nil {
		return Download{}, nil, err
	}
	if rec.Outcome != invoice.OutcomeSucceeded {
		return Download{}, nil, invoice.NewError(invoice.KindNotFound, "export "+exportID+" has no document", nil)
	}
	reader, meta, err := s.archive.Open(ctx, rec.Key())
	if err != nil {
		return Download{}, nil, err
	}
	return Download{
		Filename:    rec.Filename,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		ModTime:     meta.CreatedAt,
		Reader:      reader,
		JobID:       rec.ID,
	}, reader, nil
}

func (s *service) WriteInvoiceSheet(ctx context.Context, w io.Writer) error {
	if err := s.requireAPI(); err != nil {
		return err
	}
	if s.sheet == nil {
		return invoice.NewError(invoice.KindInternal, "spreadsheet writer is not configured", nil)
	}
	invoices, err := s.api.ListInvoices(ctx)
	if err != nil {
		return err
	}
	return s.sheet.WriteInvoices(ctx, w, invoices)
}

func (s *service) Notifications(ctx context.Context) []notify.Event {
	_ = ctx
	if s.board == nil {
		return []notify.Event{}
	}
	return s.board.Events()
}

func (s *service) DismissNotification(ctx context.Context, operationID string) {
	_ = ctx
	if s.board != nil {
		s.board.Dismiss(operationID)
	}
}

func (s *service) notify(ctx context.Context, evt notify.Event) {
	evt.At = time.Now()
	if err := s.notifier.Send(ctx, evt); err != nil {
		s.logger.Errorf("dashboard: notify %s: %v", evt.OperationID, err)
	}
}

func summarize(inv invoice.Invoice) Summary {
	return Summary{Invoice: inv, Total: inv.Total(), Status: inv.Status()}
}
