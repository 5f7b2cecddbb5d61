package invoiceactivity

import (
	"context"
	"strings"

	"github.com/goliatone/go-invoices/invoice"
	"github.com/goliatone/go-invoices/invoice/notify"
	"github.com/goliatone/go-users/activity"
	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Actor identifies who triggered an invoice operation.
type Actor struct {
	ID       string
	TenantID string
	OrgID    string
}

// Config configures the activity emitter adapter.
type Config struct {
	Sink       types.ActivitySink
	Channel    string
	ObjectType string
	// Actor resolves the acting user for an event. Optional.
	Actor func(ctx context.Context) Actor
}

// Emitter records invoice notifications as go-users activity entries.
type Emitter struct {
	sink       types.ActivitySink
	channel    string
	objectType string
	actor      func(ctx context.Context) Actor
}

// NewEmitter creates a new activity emitter.
func NewEmitter(cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = "invoices"
	}
	objectType := strings.TrimSpace(cfg.ObjectType)
	if objectType == "" {
		objectType = "invoice"
	}
	return &Emitter{
		sink:       cfg.Sink,
		channel:    channel,
		objectType: objectType,
		actor:      cfg.Actor,
	}
}

// Send logs the event to the configured ActivitySink. Events without an
// invoice are not activity and are skipped.
func (e *Emitter) Send(ctx context.Context, evt notify.Event) error {
	if e == nil {
		return invoice.NewError(invoice.KindInternal, "activity emitter is nil", nil)
	}
	if e.sink == nil {
		return invoice.NewError(invoice.KindInternal, "activity sink not configured", nil)
	}
	objectID := strings.TrimSpace(evt.InvoiceID)
	if objectID == "" {
		return nil
	}
	verb := Verb(evt)
	if verb == "" {
		return invoice.NewError(invoice.KindValidation, "activity verb is required", nil)
	}

	var actor Actor
	if e.actor != nil {
		actor = e.actor(ctx)
	}

	record, err := activity.BuildRecordFromUUID(
		parseUUID(actor.ID),
		verb,
		e.objectType,
		objectID,
		buildMetadata(evt, actor),
		activity.WithChannel(e.channel),
		activity.WithOccurredAt(evt.At),
		activity.WithTenant(parseUUID(actor.TenantID)),
		activity.WithOrg(parseUUID(actor.OrgID)),
	)
	if err != nil {
		return err
	}
	return e.sink.Log(ctx, record)
}

// Verb names the activity for an event, e.g. "pdf-generation.success".
func Verb(evt notify.Event) string {
	op := strings.TrimSpace(evt.OperationID)
	stage := strings.TrimSpace(string(evt.Stage))
	if op == "" || stage == "" {
		return ""
	}
	return op + "." + stage
}

func buildMetadata(evt notify.Event, actor Actor) map[string]any {
	meta := make(map[string]any, 6)
	if evt.InvoiceNumber != "" {
		meta["invoice_number"] = evt.InvoiceNumber
	}
	if evt.Filename != "" {
		meta["filename"] = evt.Filename
	}
	if evt.Bytes > 0 {
		meta["bytes"] = evt.Bytes
	}
	if evt.ErrorKind != "" {
		meta["error_kind"] = evt.ErrorKind
	}
	if evt.Error != "" {
		meta["error"] = evt.Error
	}
	if actor.ID != "" && parseUUID(actor.ID) == uuid.Nil {
		// remote user IDs are not UUIDs
		meta["user_id"] = actor.ID
	}
	return meta
}

func parseUUID(value string) uuid.UUID {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
