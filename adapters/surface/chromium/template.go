package chromiumsurface

import (
	_ "embed"
	"strconv"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/goliatone/go-invoices/invoice"
)

//go:embed templates/invoice.html
var defaultInvoiceTemplate string

const (
	DefaultCurrency      = "جنيه"
	DefaultCustomerLabel = "عميل غير محدد"
	DefaultPhoneLabel    = "غير محدد"
	DefaultEmptyLabel    = "لا توجد عناصر"
	printedDateLayout    = "2006/01/02"
)

// Template renders the printable invoice markup placed on the surface.
type Template struct {
	Currency      string
	CustomerLabel string
	PhoneLabel    string
	EmptyLabel    string

	tpl *pongo2.Template
}

type invoiceView struct {
	Number        string
	CustomerName  string
	CustomerPhone string
	Date          string
	Items         []lineView
	Total         string
	Currency      string
	EmptyLabel    string
}

type lineView struct {
	Index    int
	Name     string
	Quantity string
	Price    string
	Total    string
}

// DefaultTemplate returns the built-in RTL invoice template.
func DefaultTemplate() (*Template, error) {
	return NewTemplate(defaultInvoiceTemplate)
}

// NewTemplate compiles a pongo2 template. The template receives an
// "invoice" value with preformatted fields.
func NewTemplate(source string) (*Template, error) {
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, invoice.NewError(invoice.KindValidation, "compile invoice template", err)
	}
	return &Template{tpl: tpl}, nil
}

// Render returns the invoice markup. now stands in for a missing date.
func (t *Template) Render(inv invoice.Invoice, now time.Time) (string, error) {
	if t == nil || t.tpl == nil {
		return "", invoice.NewError(invoice.KindInternal, "invoice template is not compiled", nil)
	}
	out, err := t.tpl.Execute(pongo2.Context{"invoice": t.view(inv, now)})
	if err != nil {
		return "", invoice.NewError(invoice.KindExportFailed, "render invoice template", err)
	}
	return out, nil
}

func (t *Template) view(inv invoice.Invoice, now time.Time) invoiceView {
	view := invoiceView{
		Number:        strings.TrimSpace(inv.InvoiceNumber),
		CustomerName:  fallback(inv.CustomerName, t.CustomerLabel, DefaultCustomerLabel),
		CustomerPhone: fallback(inv.CustomerPhone, t.PhoneLabel, DefaultPhoneLabel),
		Date:          printedDate(inv, now),
		Total:         money(inv.Total()),
		Currency:      fallback("", t.Currency, DefaultCurrency),
		EmptyLabel:    fallback("", t.EmptyLabel, DefaultEmptyLabel),
		Items:         make([]lineView, 0, len(inv.Items)),
	}
	for i, item := range inv.Items {
		view.Items = append(view.Items, lineView{
			Index:    i + 1,
			Name:     item.Name,
			Quantity: strconv.FormatFloat(item.Quantity, 'f', -1, 64),
			Price:    money(item.Price),
			Total:    money(item.LineTotal()),
		})
	}
	return view
}

func printedDate(inv invoice.Invoice, now time.Time) string {
	switch {
	case !inv.Date.IsZero():
		return inv.Date.Format(printedDateLayout)
	case !inv.CreatedAt.IsZero():
		return inv.CreatedAt.Format(printedDateLayout)
	default:
		return now.Format(printedDateLayout)
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
