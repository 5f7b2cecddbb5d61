package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	storefs "github.com/goliatone/go-invoices/adapters/store/fs"
	"github.com/goliatone/go-invoices/client"
	"github.com/goliatone/go-invoices/invoice"
	"github.com/goliatone/go-invoices/invoice/notify"
	"github.com/goliatone/go-invoices/session"
)

type stubAPI struct {
	sess      *session.Manager
	invoices  map[string]invoice.Invoice
	listErr   error
	deleteErr error
	deleted   []string
}

func newStubAPI(invoices ...invoice.Invoice) *stubAPI {
	api := &stubAPI{sess: session.NewManager(nil), invoices: map[string]invoice.Invoice{}}
	for _, inv := range invoices {
		api.invoices[inv.ID] = inv
	}
	return api
}

func (a *stubAPI) Session() *session.Manager { return a.sess }

func (a *stubAPI) Login(ctx context.Context, creds client.Credentials) (session.Session, error) {
	s := session.Session{User: session.User{Email: creds.Email}, Token: "tok"}
	return s, a.sess.Login(ctx, s)
}

func (a *stubAPI) Logout(ctx context.Context) error { return a.sess.Logout(ctx) }

func (a *stubAPI) ListInvoices(context.Context) ([]invoice.Invoice, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	out := []invoice.Invoice{}
	for _, inv := range a.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (a *stubAPI) GetInvoice(_ context.Context, id string) (invoice.Invoice, error) {
	inv, ok := a.invoices[id]
	if !ok {
		return invoice.Invoice{}, invoice.NewError(invoice.KindNotFound, "invoice "+id+" not found", nil)
	}
	return inv, nil
}

func (a *stubAPI) CreateInvoice(_ context.Context, d invoice.Draft) (invoice.Invoice, error) {
	return invoice.Invoice{ID: "new", CustomerName: d.CustomerName, Items: d.Items}, nil
}

func (a *stubAPI) UpdateInvoice(_ context.Context, id string, d invoice.Draft) (invoice.Invoice, error) {
	return invoice.Invoice{ID: id, Items: d.Items}, nil
}

func (a *stubAPI) DeleteInvoice(_ context.Context, id string) error {
	if a.deleteErr != nil {
		return a.deleteErr
	}
	a.deleted = append(a.deleted, id)
	return nil
}

func (a *stubAPI) ListCustomers(context.Context) ([]invoice.Customer, error) {
	return []invoice.Customer{{ID: "c1", Name: "Mona"}}, nil
}

type stubSurface struct {
	mu    sync.Mutex
	attrs invoice.SurfaceAttributes
}

func (s *stubSurface) Attributes(context.Context) (invoice.SurfaceAttributes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attrs, nil
}

func (s *stubSurface) ApplyAttributes(_ context.Context, attrs invoice.SurfaceAttributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = attrs
	return nil
}

type stubSheet struct {
	rows int
}

func (s *stubSheet) WriteInvoices(_ context.Context, w io.Writer, invoices []invoice.Invoice) error {
	s.rows = len(invoices)
	_, err := io.WriteString(w, "sheet")
	return err
}

func newExporter(t *testing.T, history invoice.HistoryTracker, notifier notify.Notifier, delivery invoice.Delivery) *invoice.Exporter {
	t.Helper()
	return invoice.NewExporter(invoice.ExporterConfig{
		Capturer: invoice.CapturerFunc(func(context.Context, invoice.RenderSurface, invoice.CaptureOptions) (invoice.Bitmap, error) {
			return invoice.Bitmap{PNG: []byte("png"), Width: 100, Height: 200}, nil
		}),
		Assembler: invoice.AssemblerFunc(func(context.Context, invoice.Bitmap, invoice.PageGeometry) ([]byte, error) {
			return []byte("%PDF-1.4 test"), nil
		}),
		Delivery:    delivery,
		Notifier:    notifier,
		History:     history,
		SettleDelay: -1,
	})
}

func TestExportPDFReturnsDocumentAndArchives(t *testing.T) {
	ctx := context.Background()
	api := newStubAPI(invoice.Invoice{ID: "inv-1", InvoiceNumber: "INV-7"})
	history := invoice.NewMemoryHistory()
	board := notify.NewBoard()
	store := &storefs.Store{Root: t.TempDir()}
	surface := &stubSurface{attrs: invoice.SurfaceAttributes{Position: "absolute", Visibility: "hidden", Left: "-9999px"}}

	svc := NewService(Config{
		API:      api,
		Exporter: newExporter(t, history, board, store),
		Surface:  invoice.StaticSurface(surface),
		History:  history,
		Archive:  store,
		Board:    board,
	})

	doc, res, err := svc.ExportPDF(ctx, "inv-1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.Filename != "invoice_INV-7.pdf" || res.Filename != doc.Filename {
		t.Fatalf("unexpected document %q result %+v", doc.Filename, res)
	}
	if !bytes.HasPrefix(doc.Bytes, []byte("%PDF-")) {
		t.Fatalf("expected pdf bytes")
	}
	if surface.attrs.Left != "-9999px" {
		t.Fatalf("expected surface restored, got %+v", surface.attrs)
	}

	records, err := svc.ExportHistory(ctx, invoice.HistoryFilter{InvoiceID: "inv-1"})
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one history record, got %v %v", records, err)
	}

	dl, closer, err := svc.DownloadExport(ctx, records[0].ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer closer.Close()
	body, _ := io.ReadAll(dl.Reader)
	if !bytes.Equal(body, doc.Bytes) || dl.ContentType != "application/pdf" {
		t.Fatalf("unexpected archived document %q %q", body, dl.ContentType)
	}

	evt, ok := board.Get(notify.PDFOperationID)
	if !ok || evt.Stage != notify.StageSuccess {
		t.Fatalf("expected success notification, got %+v", evt)
	}
	if status := svc.ExporterStatus(ctx); status.Generating {
		t.Fatalf("expected idle exporter")
	}
}

func TestDownloadExportServesEachJobsOwnDocument(t *testing.T) {
	ctx := context.Background()
	api := newStubAPI(invoice.Invoice{ID: "inv-1", InvoiceNumber: "INV-42"})
	history := invoice.NewMemoryHistory()
	store := &storefs.Store{Root: t.TempDir()}

	version := 0
	exporter := invoice.NewExporter(invoice.ExporterConfig{
		Capturer: invoice.CapturerFunc(func(context.Context, invoice.RenderSurface, invoice.CaptureOptions) (invoice.Bitmap, error) {
			return invoice.Bitmap{PNG: []byte("png"), Width: 100, Height: 200}, nil
		}),
		Assembler: invoice.AssemblerFunc(func(context.Context, invoice.Bitmap, invoice.PageGeometry) ([]byte, error) {
			version++
			return []byte(fmt.Sprintf("pdf-v%d", version)), nil
		}),
		Delivery:    store,
		History:     history,
		SettleDelay: -1,
	})
	svc := NewService(Config{
		API:      api,
		Exporter: exporter,
		Surface:  invoice.StaticSurface(&stubSurface{}),
		History:  history,
		Archive:  store,
	})

	_, first, err := svc.ExportPDF(ctx, "inv-1")
	if err != nil {
		t.Fatalf("first export: %v", err)
	}
	_, second, err := svc.ExportPDF(ctx, "inv-1")
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if first.Filename != second.Filename {
		t.Fatalf("expected the same download name, got %q and %q", first.Filename, second.Filename)
	}

	for jobID, want := range map[string]string{first.JobID: "pdf-v1", second.JobID: "pdf-v2"} {
		dl, closer, err := svc.DownloadExport(ctx, jobID)
		if err != nil {
			t.Fatalf("download %s: %v", jobID, err)
		}
		body, _ := io.ReadAll(dl.Reader)
		_ = closer.Close()
		if string(body) != want || dl.Filename != "invoice_INV-42.pdf" {
			t.Fatalf("download %s: expected %q as %q, got %q as %q", jobID, want, "invoice_INV-42.pdf", body, dl.Filename)
		}
	}
}

func TestExportPDFUnknownInvoice(t *testing.T) {
	svc := NewService(Config{
		API:      newStubAPI(),
		Exporter: newExporter(t, nil, nil, nil),
		Surface:  invoice.StaticSurface(&stubSurface{}),
	})
	_, _, err := svc.ExportPDF(context.Background(), "missing")
	if !invoice.IsKind(err, invoice.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExportPDFWithoutSurface(t *testing.T) {
	svc := NewService(Config{
		API:      newStubAPI(invoice.Invoice{ID: "inv-1"}),
		Exporter: newExporter(t, nil, nil, nil),
		Surface:  invoice.SurfaceRefFunc(func() invoice.RenderSurface { return nil }),
	})
	_, _, err := svc.ExportPDF(context.Background(), "inv-1")
	if !invoice.IsKind(err, invoice.KindSurfaceUnavailable) {
		t.Fatalf("expected surface unavailable, got %v", err)
	}
}

func TestDownloadExportRejectsFailedRecord(t *testing.T) {
	ctx := context.Background()
	history := invoice.NewMemoryHistory()
	rec, _ := history.Record(ctx, invoice.ExportRecord{InvoiceID: "inv-1", Outcome: invoice.OutcomeFailed})
	svc := NewService(Config{API: newStubAPI(), History: history, Archive: &storefs.Store{Root: t.TempDir()}})

	if _, _, err := svc.DownloadExport(ctx, rec.ID); !invoice.IsKind(err, invoice.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := svc.DownloadExport(ctx, ""); !invoice.IsKind(err, invoice.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListInvoicesSummaries(t *testing.T) {
	total := 50.0
	api := newStubAPI(
		invoice.Invoice{ID: "a", Items: []invoice.LineItem{{Name: "x", Quantity: 2, Price: 3}}},
		invoice.Invoice{ID: "b", TotalAmount: &total, IsDeleted: true},
	)
	svc := NewService(Config{API: api})

	list, err := svc.ListInvoices(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := map[string]Summary{}
	for _, s := range list {
		got[s.ID] = s
	}
	if got["a"].Total != 6 || got["a"].Status != invoice.StatusActive {
		t.Fatalf("unexpected summary %+v", got["a"])
	}
	if got["b"].Total != 50 || got["b"].Status != invoice.StatusDeleted {
		t.Fatalf("unexpected summary %+v", got["b"])
	}
}

func TestListInvoicesFailureNotifies(t *testing.T) {
	api := newStubAPI()
	api.listErr = errors.New("boom")
	board := notify.NewBoard()
	svc := NewService(Config{API: api, Board: board})

	if _, err := svc.ListInvoices(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	evt, ok := board.Get(FetchOperationID)
	if !ok || evt.Stage != notify.StageFailure || evt.Message != msgFetchFailed {
		t.Fatalf("unexpected notification %+v", evt)
	}
}

func TestDeleteInvoiceNotifies(t *testing.T) {
	api := newStubAPI()
	board := notify.NewBoard()
	svc := NewService(Config{API: api, Board: board})
	ctx := context.Background()

	if err := svc.DeleteInvoice(ctx, "inv-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if evt, _ := board.Get(DeleteOperationID); evt.Stage != notify.StageSuccess {
		t.Fatalf("expected success, got %+v", evt)
	}

	api.deleteErr = errors.New("nope")
	if err := svc.DeleteInvoice(ctx, "inv-2"); err == nil {
		t.Fatalf("expected delete error")
	}
	if evt, _ := board.Get(DeleteOperationID); evt.Stage != notify.StageFailure || evt.InvoiceID != "inv-2" {
		t.Fatalf("expected failure, got %+v", evt)
	}
	if len(svc.Notifications(ctx)) != 1 {
		t.Fatalf("expected latest delete event only")
	}
}

func TestSessionAndSheet(t *testing.T) {
	ctx := context.Background()
	sheet := &stubSheet{}
	api := newStubAPI(invoice.Invoice{ID: "a"}, invoice.Invoice{ID: "b"})
	svc := NewService(Config{API: api, Sheet: sheet})

	if _, ok := svc.CurrentSession(ctx); ok {
		t.Fatalf("expected no session")
	}
	if _, err := svc.Login(ctx, client.Credentials{Email: "a@b.c", Password: "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if s, ok := svc.CurrentSession(ctx); !ok || s.User.Email != "a@b.c" {
		t.Fatalf("unexpected session %+v", s)
	}

	var buf strings.Builder
	if err := svc.WriteInvoiceSheet(ctx, &buf); err != nil {
		t.Fatalf("sheet: %v", err)
	}
	if sheet.rows != 2 || buf.String() != "sheet" {
		t.Fatalf("unexpected sheet output rows=%d %q", sheet.rows, buf.String())
	}

	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := svc.CurrentSession(ctx); ok {
		t.Fatalf("expected session cleared")
	}
}

func TestNilAPI(t *testing.T) {
	svc := NewService(Config{})
	if _, err := svc.ListInvoices(context.Background()); !invoice.IsKind(err, invoice.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestDismissNotification(t *testing.T) {
	board := notify.NewBoard()
	svc := NewService(Config{API: newStubAPI(), Board: board})
	ctx := context.Background()
	if err := svc.DeleteInvoice(ctx, "inv-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	svc.DismissNotification(ctx, DeleteOperationID)
	if len(svc.Notifications(ctx)) != 0 {
		t.Fatalf("expected board cleared")
	}
}
