package invoicexlsx

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goliatone/go-invoices/invoice"
	"github.com/xuri/excelize/v2"
)

const (
	excelMaxRows      = 1048576
	defaultSheetName  = "الفواتير"
	defaultDateFormat = "yyyy/mm/dd"
	defaultMoneyFmt   = "#,##0.00"
)

var defaultHeaders = []string{"رقم الفاتورة", "العميل", "الهاتف", "التاريخ", "الحالة", "الإجمالي"}

var defaultStatusLabels = map[invoice.Status]string{
	invoice.StatusActive:   "نشطة",
	invoice.StatusModified: "معدلة",
	invoice.StatusDeleted:  "محذوفة",
}

// Writer renders invoice lists as XLSX workbooks.
type Writer struct {
	SheetName string
	// Location converts invoice dates before writing. Nil keeps them as-is.
	Location *time.Location
	// LeftToRight disables the right-to-left sheet view.
	LeftToRight bool
}

// WriteInvoices streams one row per invoice into a workbook written to w.
func (x Writer) WriteInvoices(ctx context.Context, w io.Writer, invoices []invoice.Invoice) error {
	if w == nil {
		return invoice.NewError(invoice.KindValidation, "writer is required", nil)
	}
	if len(invoices) > excelMaxRows-1 {
		return invoice.NewError(invoice.KindValidation, "xlsx row limit exceeded", nil)
	}

	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	sheetName := x.SheetName
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	defaultSheet := file.GetSheetName(0)
	if defaultSheet != sheetName {
		if err := file.SetSheetName(defaultSheet, sheetName); err != nil {
			return err
		}
	}
	if !x.LeftToRight {
		rtl := true
		if err := file.SetSheetView(sheetName, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
			return err
		}
	}

	styles, err := buildStyles(file)
	if err != nil {
		return err
	}

	stream, err := file.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	headers := make([]interface{}, len(defaultHeaders))
	for i, label := range defaultHeaders {
		headers[i] = excelize.Cell{StyleID: styles.headerID, Value: label}
	}
	if err := stream.SetRow("A1", headers); err != nil {
		return err
	}

	for i, inv := range invoices {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stream.SetRow(fmt.Sprintf("A%d", i+2), x.row(inv, styles)); err != nil {
			return err
		}
	}

	if err := stream.Flush(); err != nil {
		return err
	}
	_, err = file.WriteTo(w)
	return err
}

func (x Writer) row(inv invoice.Invoice, styles sheetStyles) []interface{} {
	date := inv.Date
	if date.IsZero() {
		date = inv.CreatedAt
	}
	var dateCell excelize.Cell
	if date.IsZero() {
		dateCell = excelize.Cell{Value: ""}
	} else {
		if x.Location != nil {
			date = date.In(x.Location)
		}
		dateCell = excelize.Cell{Value: date, StyleID: styles.dateID}
	}

	status := inv.Status()
	label, ok := defaultStatusLabels[status]
	if !ok {
		label = string(status)
	}

	return []interface{}{
		excelize.Cell{Value: inv.InvoiceNumber},
		excelize.Cell{Value: inv.CustomerName},
		excelize.Cell{Value: inv.CustomerPhone},
		dateCell,
		excelize.Cell{Value: label},
		excelize.Cell{Value: inv.Total(), StyleID: styles.moneyID},
	}
}

type sheetStyles struct {
	headerID int
	dateID   int
	moneyID  int
}

func buildStyles(file *excelize.File) (sheetStyles, error) {
	headerID, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return sheetStyles{}, err
	}
	dateID, err := newCustomStyle(file, defaultDateFormat)
	if err != nil {
		return sheetStyles{}, err
	}
	moneyID, err := newCustomStyle(file, defaultMoneyFmt)
	if err != nil {
		return sheetStyles{}, err
	}
	return sheetStyles{headerID: headerID, dateID: dateID, moneyID: moneyID}, nil
}

func newCustomStyle(file *excelize.File, format string) (int, error) {
	return file.NewStyle(&excelize.Style{CustomNumFmt: &format})
}
