package invoicepdf

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-invoices/invoice"
	"github.com/jung-kurt/gofpdf"
)

// Assembler embeds a captured bitmap into a single portrait page.
type Assembler struct {
	Title   string
	Creator string
	Now     func() time.Time
}

var imageSeq uint64

// Assemble fits bmp to the content width of geom and places it at the
// top-left margin. Content taller than the page is not split across pages.
func (a *Assembler) Assemble(ctx context.Context, bmp invoice.Bitmap, geom invoice.PageGeometry) ([]byte, error) {
	if a == nil {
		return nil, invoice.NewError(invoice.KindInternal, "pdf assembler is nil", nil)
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if len(bmp.PNG) == 0 {
		return nil, invoice.NewError(invoice.KindValidation, "bitmap is empty", nil)
	}
	if geom.Width == 0 {
		geom = invoice.DefaultGeometry()
	}
	placement, err := geom.Fit(bmp.Width, bmp.Height)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: geom.Width, Ht: geom.Height},
	})
	pdf.SetMargins(geom.Margin, geom.Margin, geom.Margin)
	pdf.SetAutoPageBreak(false, geom.Margin)
	if a.Title != "" {
		pdf.SetTitle(a.Title, true)
	}
	creator := a.Creator
	if creator == "" {
		creator = "go-invoices"
	}
	pdf.SetCreator(creator, true)
	if a.Now != nil {
		pdf.SetCreationDate(a.Now())
	}
	pdf.AddPage()

	name := fmt.Sprintf("capture-%d", atomic.AddUint64(&imageSeq, 1))
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(bmp.PNG))
	pdf.ImageOptions(name, placement.X, placement.Y, placement.Width, placement.Height, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
