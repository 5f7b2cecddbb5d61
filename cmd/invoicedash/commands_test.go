package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-invoices/command"
	"github.com/goliatone/go-invoices/dashboard"
	"github.com/goliatone/go-invoices/invoice"
	"github.com/goliatone/go-invoices/query"
	"github.com/goliatone/go-invoices/session"
)

type stubService struct {
	dashboard.Service
	exported []string
}

func (s *stubService) ExportPDF(_ context.Context, id string) (invoice.Document, invoice.Result, error) {
	s.exported = append(s.exported, id)
	doc := invoice.Document{Filename: "invoice_" + id + ".pdf", ContentType: "application/pdf", Bytes: []byte("%PDF-1.4")}
	return doc, invoice.Result{JobID: "job-" + id, Filename: doc.Filename, Bytes: len(doc.Bytes)}, nil
}

func (s *stubService) ListInvoices(context.Context) ([]dashboard.Summary, error) {
	return []dashboard.Summary{{Invoice: invoice.Invoice{ID: "inv-1"}, Total: 30, Status: invoice.StatusActive}}, nil
}

func (s *stubService) ExporterStatus(context.Context) dashboard.ExporterStatus {
	return dashboard.ExporterStatus{Status: invoice.JobIdle}
}

type stubPruner struct {
	cutoff time.Time
}

func (p *stubPruner) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return 4, nil
}

func TestRegisterHandlersDispatch(t *testing.T) {
	svc := &stubService{}
	pruner := &stubPruner{}
	reg := gcmd.NewRegistry()
	handlers, err := registerHandlers(reg, svc, pruner, 24*time.Hour)
	if err != nil {
		t.Fatalf("register handlers: %v", err)
	}
	defer func() {
		for _, sub := range handlers.subscriptions {
			sub.Unsubscribe()
		}
	}()

	out, err := dispatcher.DispatchWithResult[command.ExportInvoicePDF, command.ExportedPDF](
		context.Background(),
		command.ExportInvoicePDF{InvoiceID: "inv-1"},
	)
	if err != nil {
		t.Fatalf("dispatch export: %v", err)
	}
	if out.Result.JobID != "job-inv-1" || out.Document.Filename != "invoice_inv-1.pdf" {
		t.Fatalf("unexpected export result %+v", out.Result)
	}
	if len(svc.exported) != 1 {
		t.Fatalf("expected one export, got %v", svc.exported)
	}

	list, err := dispatcher.Query[query.ListInvoices, []dashboard.Summary](context.Background(), query.ListInvoices{})
	if err != nil {
		t.Fatalf("query invoices: %v", err)
	}
	if len(list) != 1 || list[0].Total != 30 {
		t.Fatalf("unexpected invoices %+v", list)
	}

	status, err := dispatcher.Query[query.ExporterStatus, dashboard.ExporterStatus](context.Background(), query.ExporterStatus{})
	if err != nil {
		t.Fatalf("query status: %v", err)
	}
	if status.Generating || status.Status != invoice.JobIdle {
		t.Fatalf("unexpected status %+v", status)
	}

	removed, err := dispatcher.DispatchWithResult[command.PruneExports, int64](
		context.Background(),
		command.PruneExports{Now: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	)
	if err != nil {
		t.Fatalf("dispatch prune: %v", err)
	}
	if removed != 4 || !pruner.cutoff.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected prune removed=%d cutoff=%s", removed, pruner.cutoff)
	}
}

func TestRegisterHandlersRequiresService(t *testing.T) {
	if _, err := registerHandlers(nil, nil, nil, 0); err == nil {
		t.Fatalf("expected error without service")
	}
}

func TestCLICommands(t *testing.T) {
	app := &App{
		Export: command.NewExportInvoicePDFHandler(&stubService{}),
		Prune:  command.NewPruneExportsHandler(&stubPruner{}, time.Hour),
	}
	paths := map[string]bool{}
	for _, cmd := range app.CLICommands() {
		opts := cmd.CLIOptions()
		if opts.Group != "invoices" || cmd.CLIHandler() == nil {
			t.Fatalf("unexpected cli command %+v", opts)
		}
		for _, p := range opts.Path {
			paths[p] = true
		}
	}
	if !paths["invoice-pdf"] || !paths["exports-prune"] {
		t.Fatalf("unexpected cli paths %v", paths)
	}
}

func TestSessionStore(t *testing.T) {
	if _, ok := sessionStore("").(*session.MemoryStore); !ok {
		t.Fatalf("expected memory store for empty path")
	}
	path := filepath.Join(t.TempDir(), "state", "session.json")
	store := sessionStore(path)
	ctx := context.Background()
	if err := store.Save(ctx, session.Session{User: session.User{ID: "u1"}, Token: "t"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load(ctx)
	if err != nil || !ok || got.User.ID != "u1" {
		t.Fatalf("unexpected load %+v %v %v", got, ok, err)
	}
}
