package invoicexlsx

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-invoices/invoice"
	"github.com/xuri/excelize/v2"
)

func TestWriter_WritesInvoiceRows(t *testing.T) {
	total := 120.0
	invoices := []invoice.Invoice{
		{
			ID:            "inv-1",
			InvoiceNumber: "INV-1",
			CustomerName:  "Mona",
			CustomerPhone: "0100",
			Date:          time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			Items:         []invoice.LineItem{{Name: "a", Quantity: 2, Price: 3}},
		},
		{ID: "inv-2", InvoiceNumber: "INV-2", TotalAmount: &total, IsDeleted: true},
	}

	buf := &bytes.Buffer{}
	if err := (Writer{}).WriteInvoices(context.Background(), buf, invoices); err != nil {
		t.Fatalf("write: %v", err)
	}

	file, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	sheet := file.GetSheetName(0)
	if sheet != defaultSheetName {
		t.Fatalf("expected sheet %q, got %q", defaultSheetName, sheet)
	}
	rows, err := file.GetRows(sheet)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != defaultHeaders[0] {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "INV-1" || rows[1][1] != "Mona" || rows[1][3] != "2024/05/01" || rows[1][5] != "6.00" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[2][4] != defaultStatusLabels[invoice.StatusDeleted] || rows[2][5] != "120.00" {
		t.Fatalf("unexpected second row %v", rows[2])
	}
}

func TestWriter_EmptyList(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (Writer{SheetName: "Invoices", LeftToRight: true}).WriteInvoices(context.Background(), buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	file, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	rows, _ := file.GetRows("Invoices")
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}

func TestWriter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := (Writer{}).WriteInvoices(ctx, &bytes.Buffer{}, []invoice.Invoice{{ID: "a"}})
	if err == nil {
		t.Fatalf("expected context error")
	}
}
