package notify

import (
	"context"
	"errors"
	"time"
)

// PDFOperationID keys every PDF export notification so later events
// replace earlier ones.
const PDFOperationID = "pdf-generation"

// Stage is the lifecycle step an event reports.
type Stage string

const (
	StageStart   Stage = "start"
	StageSuccess Stage = "success"
	StageFailure Stage = "failure"
)

// Default user-facing messages.
const (
	MessageGenerating = "Generating PDF..."
	MessageSucceeded  = "PDF generated successfully"
	MessageFailed     = "Failed to generate PDF"
)

// Event is a user-visible progress notification.
type Event struct {
	OperationID   string    `json:"operationId"`
	Stage         Stage     `json:"stage"`
	Message       string    `json:"message"`
	InvoiceID     string    `json:"invoiceId,omitempty"`
	InvoiceNumber string    `json:"invoiceNumber,omitempty"`
	Filename      string    `json:"filename,omitempty"`
	Bytes         int       `json:"bytes,omitempty"`
	ErrorKind     string    `json:"errorKind,omitempty"`
	Error         string    `json:"error,omitempty"`
	At            time.Time `json:"at"`
}

// Notifier delivers notifications.
type Notifier interface {
	Send(ctx context.Context, evt Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, evt Event) error

func (fn NotifierFunc) Send(ctx context.Context, evt Event) error {
	return fn(ctx, evt)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Send(context.Context, Event) error { return nil }

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, evt Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
