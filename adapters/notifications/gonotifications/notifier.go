package gonotifications

import (
	"context"
	"strings"

	"github.com/goliatone/go-invoices/invoice"
	"github.com/goliatone/go-invoices/invoice/notify"
	"github.com/goliatone/go-notifications/pkg/onready"
)

// Config controls how finished exports are announced.
type Config struct {
	Recipients []string
	Channels   []string
	Locale     string
	TenantID   string
	// URL builds the download link for an event. Optional.
	URL func(evt notify.Event) string
	// Actor resolves the acting user ID. Optional.
	Actor func(ctx context.Context) string
}

// Notifier forwards successful PDF exports to a go-notifications
// OnReadyNotifier. Other events are ignored.
type Notifier struct {
	delegate onready.OnReadyNotifier
	cfg      Config
}

// NewNotifier wraps a go-notifications notifier.
func NewNotifier(delegate onready.OnReadyNotifier, cfg Config) *Notifier {
	return &Notifier{delegate: delegate, cfg: cfg}
}

// Send forwards the event to the underlying go-notifications notifier.
func (n *Notifier) Send(ctx context.Context, evt notify.Event) error {
	if n == nil || n.delegate == nil {
		return invoice.NewError(invoice.KindInternal, "go-notifications notifier not configured", nil)
	}
	if evt.OperationID != notify.PDFOperationID || evt.Stage != notify.StageSuccess {
		return nil
	}
	if len(n.cfg.Recipients) == 0 {
		return nil
	}

	payload := onready.OnReadyEvent{
		Recipients: append([]string(nil), n.cfg.Recipients...),
		Locale:     n.cfg.Locale,
		TenantID:   n.cfg.TenantID,
		Channels:   append([]string(nil), n.cfg.Channels...),
		FileName:   evt.Filename,
		Format:     "pdf",
		Rows:       1,
		Parts:      1,
		Message:    message(evt),
	}
	if n.cfg.Actor != nil {
		payload.ActorID = n.cfg.Actor(ctx)
	}
	if n.cfg.URL != nil {
		payload.URL = n.cfg.URL(evt)
	}

	return n.delegate.Send(ctx, payload)
}

func message(evt notify.Event) string {
	msg := strings.TrimSpace(evt.Message)
	if msg == "" {
		msg = notify.MessageSucceeded
	}
	if evt.InvoiceNumber != "" {
		msg += " (" + evt.InvoiceNumber + ")"
	}
	return msg
}
