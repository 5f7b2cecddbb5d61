package chromiumsurface

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-invoices/invoice"
)

func chromeBinaryPath(t *testing.T) string {
	t.Helper()

	chromePath := os.Getenv("CHROME_BIN")
	if chromePath == "" {
		for _, candidate := range []string{"google-chrome", "chromium", "chromium-browser"} {
			if path, err := exec.LookPath(candidate); err == nil {
				chromePath = path
				break
			}
		}
	}
	if chromePath == "" {
		t.Skip("chromium binary not found; set CHROME_BIN to run this test")
	}
	return chromePath
}

func TestTemplateRendersEmptyItemsPlaceholder(t *testing.T) {
	tpl, err := DefaultTemplate()
	if err != nil {
		t.Fatalf("default template: %v", err)
	}

	out, err := tpl.Render(invoice.Invoice{ID: "inv-1"}, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `class="no-items"`) || !strings.Contains(out, DefaultEmptyLabel) {
		t.Fatalf("expected placeholder row, got %s", out)
	}
	if !strings.Contains(out, "0.00 "+DefaultCurrency) {
		t.Fatalf("expected zero total")
	}
	if !strings.Contains(out, DefaultCustomerLabel) || !strings.Contains(out, DefaultPhoneLabel) {
		t.Fatalf("expected customer defaults")
	}
	if !strings.Contains(out, "2024/03/09") {
		t.Fatalf("expected fallback date")
	}
	if strings.Contains(out, "رقم الفاتورة") {
		t.Fatalf("did not expect invoice number line")
	}
}

func TestTemplateRendersLineItems(t *testing.T) {
	tpl, err := DefaultTemplate()
	if err != nil {
		t.Fatalf("default template: %v", err)
	}

	inv := invoice.Invoice{
		InvoiceNumber: "INV-42",
		CustomerName:  "<b>Mona</b>",
		Date:          time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
		Items: []invoice.LineItem{
			{Name: "Paper", Quantity: 2, Price: 12.5},
			{Name: "Ink", Quantity: 1, Price: 30},
		},
	}
	out, err := tpl.Render(inv, time.Now())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Count(out, `class="line-item"`) != 2 {
		t.Fatalf("expected two rows")
	}
	for _, want := range []string{"#INV-42", "25.00", "30.00", "55.00", "2024/07/01"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output", want)
		}
	}
	if strings.Contains(out, "<b>Mona</b>") {
		t.Fatalf("expected customer name to be escaped")
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#ffffff")
	if err != nil || c == nil || c.R != 255 || c.G != 255 || c.B != 255 || c.A != 1 {
		t.Fatalf("unexpected white %+v %v", c, err)
	}
	c, err = parseHexColor("#0a0")
	if err != nil || c.R != 0 || c.G != 0xaa || c.B != 0 {
		t.Fatalf("unexpected short color %+v %v", c, err)
	}
	if c, err := parseHexColor(""); err != nil || c != nil {
		t.Fatalf("expected no override for empty color")
	}
	if _, err := parseHexColor("#zzzzzz"); err == nil {
		t.Fatalf("expected invalid color error")
	}
}

func TestBlockExternalAssetsPatterns(t *testing.T) {
	params := blockExternalAssets()
	if len(params.URLPatterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(params.URLPatterns))
	}
	for i, p := range params.URLPatterns {
		if !p.Block || p.URLPattern != externalAssetPatterns[i] {
			t.Fatalf("unexpected pattern %d: %+v", i, p)
		}
	}
	if !strings.HasPrefix(params.URLPatterns[0].URLPattern, "http://") || !strings.HasPrefix(params.URLPatterns[1].URLPattern, "https://") {
		t.Fatalf("expected http and https patterns, got %+v", params.URLPatterns)
	}
}

func TestAllocatorOptionsFromArgs(t *testing.T) {
	opts := allocatorOptionsFromArgs([]string{"--no-sandbox", " ", "--lang=ar", "--"})
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
}

func TestCurrentIsNilBeforeMount(t *testing.T) {
	s := &Surface{}
	if s.Current() != nil {
		t.Fatalf("expected no surface before mount")
	}
	if _, err := s.Attributes(context.Background()); invoice.KindFromError(err) != invoice.KindSurfaceUnavailable {
		t.Fatalf("expected surface_unavailable, got %v", err)
	}
}

func TestSurfaceExportSmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chromium smoke test in short mode")
	}
	chromePath := chromeBinaryPath(t)

	s := &Surface{BrowserPath: chromePath, Headless: true, Args: []string{"no-sandbox"}}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := s.Mount(ctx); err != nil {
		t.Fatalf("mount: %v", err)
	}
	before, err := s.Attributes(ctx)
	if err != nil {
		t.Fatalf("attributes: %v", err)
	}
	if before.Left != "-9999px" {
		t.Fatalf("expected off-screen surface, got %+v", before)
	}

	exporter := invoice.NewExporter(invoice.ExporterConfig{
		Capturer: s,
		Assembler: invoice.AssemblerFunc(func(ctx context.Context, bmp invoice.Bitmap, geom invoice.PageGeometry) ([]byte, error) {
			if bmp.Width == 0 || bmp.Height == 0 {
				t.Fatalf("expected non-empty bitmap")
			}
			return []byte("%PDF-stub"), nil
		}),
		Delivery: invoice.NewMemoryDelivery(),
	})
	inv := invoice.Invoice{ID: "inv-1", InvoiceNumber: "INV-42", Items: []invoice.LineItem{{Name: "Paper", Quantity: 1, Price: 3}}}
	if _, err := exporter.Export(ctx, inv, s); err != nil {
		t.Fatalf("export: %v", err)
	}

	after, err := s.Attributes(ctx)
	if err != nil {
		t.Fatalf("attributes: %v", err)
	}
	if after != before {
		t.Fatalf("expected restored attributes %+v, got %+v", before, after)
	}
}
