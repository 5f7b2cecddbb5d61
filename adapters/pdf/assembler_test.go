package invoicepdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/goliatone/go-invoices/invoice"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	img.Set(0, 0, color.RGBA{A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestAssemblerProducesPDF(t *testing.T) {
	asm := &Assembler{Title: "invoice INV-42"}
	bmp := invoice.Bitmap{PNG: testPNG(t, 40, 60), Width: 40, Height: 60}

	data, err := asm.Assemble(context.Background(), bmp, invoice.DefaultGeometry())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("expected pdf header, got %q", data[:8])
	}
	if !bytes.Contains(data, []byte("/Count 1")) {
		t.Fatalf("expected a single page document")
	}
}

func TestAssemblerKeepsSinglePageForTallBitmaps(t *testing.T) {
	asm := &Assembler{}
	bmp := invoice.Bitmap{PNG: testPNG(t, 10, 200), Width: 10, Height: 200}

	data, err := asm.Assemble(context.Background(), bmp, invoice.PageGeometry{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !bytes.Contains(data, []byte("/Count 1")) {
		t.Fatalf("expected tall content to stay on one page")
	}
}

func TestAssemblerRejectsInvalidInput(t *testing.T) {
	asm := &Assembler{}
	if _, err := asm.Assemble(context.Background(), invoice.Bitmap{}, invoice.DefaultGeometry()); err == nil {
		t.Fatalf("expected error for empty bitmap")
	}
	bad := invoice.Bitmap{PNG: []byte("not a png"), Width: 10, Height: 10}
	if _, err := asm.Assemble(context.Background(), bad, invoice.DefaultGeometry()); err == nil {
		t.Fatalf("expected error for undecodable image")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	good := invoice.Bitmap{PNG: testPNG(t, 4, 4), Width: 4, Height: 4}
	if _, err := asm.Assemble(ctx, good, invoice.DefaultGeometry()); err == nil {
		t.Fatalf("expected canceled context error")
	}
}
